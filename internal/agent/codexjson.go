package agent

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"pkt.systems/askd/schema"
)

// codex exec --json event and item types the final message depends on.
const (
	codexEventItemCompleted = "item.completed"
	codexEventTurnFailed    = "turn.failed"
	codexEventError         = "error"
	codexItemAgentMessage   = "agent_message"
)

type codexEvent struct {
	Type    string      `json:"type"`
	Item    *codexItem  `json:"item,omitempty"`
	Error   *codexError `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

type codexItem struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
}

type codexError struct {
	Message string `json:"message,omitempty"`
}

var errNotJSONL = errors.New("not a codex jsonl stream")

// codexJSONLMessage returns the last completed agent message in a codex
// exec --json stream. A failed turn with no message becomes an error result.
func codexJSONLMessage(stdout string) (string, error) {
	reader := bufio.NewReader(strings.NewReader(stdout))
	var message, failure string
	decoded := 0
	for {
		line, err := reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var event codexEvent
			if decodeErr := json.Unmarshal(line, &event); decodeErr != nil || event.Type == "" {
				if decoded == 0 {
					return "", errNotJSONL
				}
			} else {
				decoded++
				switch event.Type {
				case codexEventItemCompleted:
					if event.Item != nil && event.Item.Type == codexItemAgentMessage {
						message = event.Item.Text
					}
				case codexEventTurnFailed, codexEventError:
					failure = event.errorText()
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return "", err
			}
			break
		}
	}
	if decoded == 0 {
		return "", errNotJSONL
	}
	if strings.TrimSpace(message) == "" && failure != "" {
		return schema.ErrorPrefix + failure, nil
	}
	return strings.TrimSpace(message), nil
}

func (e codexEvent) errorText() string {
	if e.Error != nil && strings.TrimSpace(e.Error.Message) != "" {
		return strings.TrimSpace(e.Error.Message)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	return "codex turn failed"
}
