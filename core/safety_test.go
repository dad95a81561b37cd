package core

import (
	"context"
	"testing"
)

func TestSafetyGateDefaults(t *testing.T) {
	gate := NewSafetyGate(nil)
	cases := []struct {
		command string
		term    string
		match   bool
	}{
		{command: "delete the prod database", term: "delete", match: true},
		{command: "please RM -RF the build dir", term: "rm -rf", match: true},
		{command: "reboot the router", term: "reboot", match: true},
		{command: "summarize this thread", match: false},
		{command: "list the product information", match: false},
		{command: "reformat this paragraph", match: false},
		{command: "which skill fits this role", match: false},
		{command: "wipe the staging cache", term: "wipe", match: true},
	}
	for _, tc := range cases {
		term, ok := gate.Match(tc.command)
		if ok != tc.match || term != tc.term {
			t.Fatalf("Match(%q) = %q, %v; want %q, %v", tc.command, term, ok, tc.term, tc.match)
		}
	}
}

func TestSafetyGateCustomTerms(t *testing.T) {
	gate := NewSafetyGate([]string{" Deploy ", "deploy", ""})
	if got := gate.Terms(); len(got) != 1 || got[0] != "deploy" {
		t.Fatalf("unexpected terms %q", got)
	}
	if _, ok := gate.Match("delete everything"); ok {
		t.Fatalf("custom list should replace defaults")
	}
	if term, ok := gate.Match("DEPLOY now"); !ok || term != "deploy" {
		t.Fatalf("expected deploy match")
	}
}

func TestSafetyGateDisabled(t *testing.T) {
	gate := NewSafetyGate([]string{})
	if _, ok := gate.Match("rm -rf /"); ok {
		t.Fatalf("empty list should disable the gate")
	}
}

func TestNewConfirmerModes(t *testing.T) {
	if _, err := NewConfirmer(ConfirmDialog, nil); err == nil {
		t.Fatalf("expected dialog mode without dialog to fail")
	}
	dialog := &fakeConfirmer{answer: true}
	got, err := NewConfirmer("", dialog)
	if err != nil || got != Confirmer(dialog) {
		t.Fatalf("expected dialog confirmer, got %v %v", got, err)
	}
	allow, err := NewConfirmer(ConfirmAllow, nil)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if ok, _ := allow.Confirm(context.Background(), ConfirmRequest{}); !ok {
		t.Fatalf("allow mode should approve")
	}
	deny, err := NewConfirmer(ConfirmDeny, dialog)
	if err != nil {
		t.Fatalf("deny: %v", err)
	}
	if ok, _ := deny.Confirm(context.Background(), ConfirmRequest{}); ok {
		t.Fatalf("deny mode should decline")
	}
	if _, err := NewConfirmer("maybe", nil); err == nil {
		t.Fatalf("expected invalid mode error")
	}
}
