package core

import (
	"unicode"

	"pkt.systems/askd/schema"
)

const defaultMaxRunes = schema.DefaultBufferMaxRunes

// typingBuffer holds the most recent typed runes. It is not safe for
// concurrent use; the engine guards it with its mutex.
type typingBuffer struct {
	runes    []rune
	maxRunes int
}

func newTypingBuffer(maxRunes int) *typingBuffer {
	if maxRunes <= 0 {
		maxRunes = defaultMaxRunes
	}
	return &typingBuffer{maxRunes: maxRunes}
}

// Append adds printable runes from text and truncates from the front when the
// buffer grows past its bound.
func (b *typingBuffer) Append(text string) {
	if text == "" {
		return
	}
	for _, r := range text {
		if r == '\t' || !unicode.IsControl(r) {
			b.runes = append(b.runes, r)
		}
	}
	maxRunes := b.maxRunes
	if maxRunes <= 0 {
		maxRunes = defaultMaxRunes
	}
	if len(b.runes) > maxRunes {
		trim := len(b.runes) - maxRunes
		b.runes = append(b.runes[:0], b.runes[trim:]...)
	}
}

// DeleteLast removes the final rune. It reports whether anything was removed.
func (b *typingBuffer) DeleteLast() bool {
	if len(b.runes) == 0 {
		return false
	}
	b.runes = b.runes[:len(b.runes)-1]
	return true
}

// HasSuffix reports whether the buffer ends with s.
func (b *typingBuffer) HasSuffix(s string) bool {
	suffix := []rune(s)
	if len(suffix) == 0 || len(suffix) > len(b.runes) {
		return false
	}
	tail := b.runes[len(b.runes)-len(suffix):]
	for i := range suffix {
		if tail[i] != suffix[i] {
			return false
		}
	}
	return true
}

// KeepLast discards everything but the final n runes.
func (b *typingBuffer) KeepLast(n int) {
	if n < 0 {
		n = 0
	}
	if n >= len(b.runes) {
		return
	}
	b.runes = append(b.runes[:0], b.runes[len(b.runes)-n:]...)
}

// Reset empties the buffer.
func (b *typingBuffer) Reset() {
	b.runes = b.runes[:0]
}

// Len returns the number of buffered runes.
func (b *typingBuffer) Len() int {
	return len(b.runes)
}

// String returns a copy of the buffer contents.
func (b *typingBuffer) String() string {
	return string(b.runes)
}
