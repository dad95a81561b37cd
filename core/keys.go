package core

// KeyCode classifies the keys the engine treats specially. Platform sources
// translate native key codes into these values.
type KeyCode int

const (
	// KeyOther is any character-producing key.
	KeyOther KeyCode = iota
	// KeyReturn is the main Enter/Return key.
	KeyReturn
	// KeyKeypadEnter is the numeric keypad Enter key.
	KeyKeypadEnter
	// KeyBackspace deletes the previous character.
	KeyBackspace
	// KeyEscape abandons the current capture.
	KeyEscape
	// KeyIgnored is a non-printing key (arrows, modifiers, function keys).
	KeyIgnored
)

// KeyEvent is one keyboard event as observed by a key source.
type KeyEvent struct {
	Down bool
	Code KeyCode
	// Text holds the characters the key produced, if any.
	Text string
}

// IsCommit reports whether the key submits the current command.
func (c KeyCode) IsCommit() bool {
	return c == KeyReturn || c == KeyKeypadEnter
}
