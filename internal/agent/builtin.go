package agent

import (
	"regexp"
	"strings"

	"pkt.systems/askd/schema"
)

// Builtin trigger words.
const (
	ClaudeWord  = "askclaude"
	CopilotWord = "askcopilot"
	CodexWord   = "askcodex"
)

// Builtins returns the built-in agent definitions in trigger evaluation order.
func Builtins() []Definition {
	return []Definition{
		{
			Name:    "Claude Code",
			Trigger: schema.Trigger(ClaudeWord + " "),
			Binary:  "claude",
			Args: func(prompt string, extra []string) []string {
				return append(append([]string{}, extra...), "-p", prompt)
			},
		},
		{
			Name:    "GitHub Copilot",
			Trigger: schema.Trigger(CopilotWord + " "),
			Binary:  "copilot",
			Args: func(prompt string, extra []string) []string {
				args := append([]string{"-p", prompt, "--allow-all-tools"}, extra...)
				return args
			},
		},
		{
			Name:        "Codex",
			Trigger:     schema.Trigger(CodexWord + " "),
			Binary:      "codex",
			SearchPaths: []string{"~/.codex/bin"},
			Args: func(_ string, extra []string) []string {
				args := append([]string{"exec", "--json", "--skip-git-repo-check"}, extra...)
				return append(args, "-")
			},
			Stdin:       true,
			PostProcess: codexFinalMessage,
		},
	}
}

// BuiltinDefinition returns the built-in definition for a trigger word.
func BuiltinDefinition(word string) (Definition, bool) {
	word = schema.NormalizeTriggerWord(word)
	for _, def := range Builtins() {
		if def.Trigger.Word() == word {
			return def, true
		}
	}
	return Definition{}, false
}

var (
	codexHeaderLine = regexp.MustCompile(`^(\[[^\]]+\]\s*)?codex$`)
	codexTokensLine = regexp.MustCompile(`^(\[[^\]]+\]\s*)?tokens used:?`)
)

// codexFinalMessage extracts the last agent message from codex exec output,
// either a --json event stream or the plain transcript. Output that carries
// no transcript headers is returned trimmed.
func codexFinalMessage(stdout string) string {
	if msg, err := codexJSONLMessage(stdout); err == nil {
		return msg
	}
	lines := strings.Split(strings.ReplaceAll(stdout, "\r\n", "\n"), "\n")
	start := -1
	for i, line := range lines {
		if codexHeaderLine.MatchString(strings.TrimSpace(line)) {
			start = i + 1
		}
	}
	if start < 0 {
		return strings.TrimSpace(stdout)
	}
	end := len(lines)
	for i := start; i < len(lines); i++ {
		if codexTokensLine.MatchString(strings.TrimSpace(lines[i])) {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}
