package agent

import (
	"strings"
	"testing"

	"pkt.systems/askd/schema"
)

func TestCodexFinalMessageFromJSONL(t *testing.T) {
	out := strings.Join([]string{
		`{"type":"thread.started","thread_id":"t-1"}`,
		`{"type":"turn.started"}`,
		`{"type":"item.completed","item":{"id":"item_0","type":"reasoning","text":"thinking"}}`,
		`{"type":"item.completed","item":{"id":"item_1","type":"agent_message","text":"draft"}}`,
		`{"type":"item.completed","item":{"id":"item_2","type":"command_execution","command":"ls"}}`,
		`{"type":"item.completed","item":{"id":"item_3","type":"agent_message","text":"  Final answer\n"}}`,
		`{"type":"turn.completed","usage":{"input_tokens":10,"output_tokens":3}}`,
	}, "\n")
	if got := codexFinalMessage(out); got != "Final answer" {
		t.Fatalf("unexpected final message %q", got)
	}
}

func TestCodexFinalMessageReportsFailedTurn(t *testing.T) {
	out := `{"type":"turn.started"}
{"type":"turn.failed","error":{"message":"usage limit reached"}}
`
	got := codexFinalMessage(out)
	if got != schema.ErrorPrefix+"usage limit reached" {
		t.Fatalf("unexpected failure text %q", got)
	}
}

func TestCodexJSONLRejectsPlainText(t *testing.T) {
	if _, err := codexJSONLMessage("just text\n"); err == nil {
		t.Fatalf("expected plain text to be rejected")
	}
	if _, err := codexJSONLMessage(`{"answer":42}`); err == nil {
		t.Fatalf("expected untyped JSON to be rejected")
	}
}
