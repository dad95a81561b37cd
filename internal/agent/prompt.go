package agent

import "strings"

const systemContext = "You are a writing assistant invoked from a text field in another application. " +
	"The user typed a command where they were writing, and your reply replaces that command in place."

const instructionSuffix = "Reply with only the text to insert into the text field. " +
	"Do not add explanations, preambles or markdown code fences."

// BuildPrompt assembles the prompt handed to an agent. Empty sections are
// omitted.
func BuildPrompt(environment, document, command string) string {
	var b strings.Builder
	b.WriteString(systemContext)
	if env := strings.TrimSpace(environment); env != "" {
		b.WriteString("\n\nEnvironment:\n")
		b.WriteString(env)
	}
	if doc := strings.TrimSpace(document); doc != "" {
		b.WriteString("\n\nText already in the field:\n")
		b.WriteString(doc)
	}
	b.WriteString("\n\nCommand:\n")
	b.WriteString(strings.TrimSpace(command))
	b.WriteString("\n\n")
	b.WriteString(instructionSuffix)
	return b.String()
}
