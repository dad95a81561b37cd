package persist

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"pkt.systems/askd/schema"
)

func TestStoreLoadMissing(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state", "history.json"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	entries, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if entries != nil {
		t.Fatalf("expected no entries, got %+v", entries)
	}
}

func TestStoreAppendLoad(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	entries := []schema.CommandExecution{
		{
			ID:          "cmd-1",
			CommandText: "summarize this",
			ResultText:  "A summary.",
			Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			AgentName:   "Claude Code",
			Trigger:     "askclaude ",
		},
		{
			ID:          "cmd-2",
			CommandText: "write tests",
			ResultText:  "Error: copilot executable not found",
			Timestamp:   time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
			AgentName:   "GitHub Copilot",
			Trigger:     "askcopilot ",
		},
	}
	for i, entry := range entries {
		stored, err := store.Append(entry)
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if len(stored) != i+1 {
			t.Fatalf("expected %d stored entries, got %d", i+1, len(stored))
		}
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(entries, got) {
		t.Fatalf("history mismatch:\nwant: %+v\ngot:  %+v", entries, got)
	}
	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 history file, got %v", info.Mode().Perm())
	}
}

func TestStoreClearWritesEmptyFile(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Append(schema.CommandExecution{ID: "cmd-1", CommandText: "hi"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if want := "{\n  \"version\": 1,\n  \"entries\": []\n}"; string(data) != want {
		t.Fatalf("unexpected file %q", data)
	}
}

func TestStoreLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not-json"), 0o600); err != nil {
		t.Fatalf("write bad json: %v", err)
	}
	if _, err := store.Load(); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

func TestNewStoreRequiresPath(t *testing.T) {
	if _, err := NewStore(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestStoreAppendSeesOtherWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	daemon, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	cli, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := daemon.Append(schema.CommandExecution{ID: "cmd-1", CommandText: "old command"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := cli.Append(schema.CommandExecution{ID: "cmd-2", CommandText: "from run"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	stored, err := daemon.Append(schema.CommandExecution{ID: "cmd-3", CommandText: "new command"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(stored) != 3 || stored[1].CommandText != "from run" {
		t.Fatalf("expected the other writer's entry to be kept, got %+v", stored)
	}

	if err := cli.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	stored, err = daemon.Append(schema.CommandExecution{ID: "cmd-4", CommandText: "after clear"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(stored) != 1 || stored[0].CommandText != "after clear" {
		t.Fatalf("expected clear to hold, got %+v", stored)
	}
}
