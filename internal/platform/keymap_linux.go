//go:build linux

package platform

import "pkt.systems/askd/core"

// Linux input event key codes (linux/input-event-codes.h).
const (
	keyEsc        = 1
	keyBackspace  = 14
	keyTab        = 15
	keyEnter      = 28
	keyLeftCtrl   = 29
	keyLeftShift  = 42
	keyRightShift = 54
	keyLeftAlt    = 56
	keySpace      = 57
	keyCapsLock   = 58
	keyKPEnter    = 96
	keyRightCtrl  = 97
	keyRightAlt   = 100
	keyLeftMeta   = 125
	keyRightMeta  = 126
)

// usLayout maps key codes to unshifted and shifted characters for a US
// layout.
var usLayout = map[uint16][2]rune{
	2: {'1', '!'}, 3: {'2', '@'}, 4: {'3', '#'}, 5: {'4', '$'}, 6: {'5', '%'},
	7: {'6', '^'}, 8: {'7', '&'}, 9: {'8', '*'}, 10: {'9', '('}, 11: {'0', ')'},
	12: {'-', '_'}, 13: {'=', '+'},
	16: {'q', 'Q'}, 17: {'w', 'W'}, 18: {'e', 'E'}, 19: {'r', 'R'}, 20: {'t', 'T'},
	21: {'y', 'Y'}, 22: {'u', 'U'}, 23: {'i', 'I'}, 24: {'o', 'O'}, 25: {'p', 'P'},
	26: {'[', '{'}, 27: {']', '}'},
	30: {'a', 'A'}, 31: {'s', 'S'}, 32: {'d', 'D'}, 33: {'f', 'F'}, 34: {'g', 'G'},
	35: {'h', 'H'}, 36: {'j', 'J'}, 37: {'k', 'K'}, 38: {'l', 'L'},
	39: {';', ':'}, 40: {'\'', '"'}, 41: {'`', '~'}, 43: {'\\', '|'},
	44: {'z', 'Z'}, 45: {'x', 'X'}, 46: {'c', 'C'}, 47: {'v', 'V'}, 48: {'b', 'B'},
	49: {'n', 'N'}, 50: {'m', 'M'},
	51: {',', '<'}, 52: {'.', '>'}, 53: {'/', '?'},
	keySpace: {' ', ' '},
	keyTab:   {'\t', '\t'},
}

// keymap tracks modifier state across events.
type keymap struct {
	shift    int
	chord    int
	capsLock bool
}

func newKeymap() *keymap {
	return &keymap{}
}

// translate converts one EV_KEY record. Modifier keys update state and
// produce no event. Keys pressed with Ctrl, Alt or Meta held are reported as
// KeyIgnored so shortcuts never reach the typing buffer.
func (k *keymap) translate(code uint16, value int32) (core.KeyEvent, bool) {
	down := value == keyPressed || value == keyRepeated
	switch code {
	case keyLeftShift, keyRightShift:
		k.shift = adjust(k.shift, value)
		return core.KeyEvent{}, false
	case keyLeftCtrl, keyRightCtrl, keyLeftAlt, keyRightAlt, keyLeftMeta, keyRightMeta:
		k.chord = adjust(k.chord, value)
		return core.KeyEvent{}, false
	case keyCapsLock:
		if value == keyPressed {
			k.capsLock = !k.capsLock
		}
		return core.KeyEvent{}, false
	}
	if k.chord > 0 {
		return core.KeyEvent{Down: down, Code: core.KeyIgnored}, true
	}
	switch code {
	case keyEnter:
		return core.KeyEvent{Down: down, Code: core.KeyReturn}, true
	case keyKPEnter:
		return core.KeyEvent{Down: down, Code: core.KeyKeypadEnter}, true
	case keyBackspace:
		return core.KeyEvent{Down: down, Code: core.KeyBackspace}, true
	case keyEsc:
		return core.KeyEvent{Down: down, Code: core.KeyEscape}, true
	}
	pair, ok := usLayout[code]
	if !ok {
		return core.KeyEvent{Down: down, Code: core.KeyIgnored}, true
	}
	shifted := k.shift > 0
	if k.capsLock && pair[0] >= 'a' && pair[0] <= 'z' {
		shifted = !shifted
	}
	r := pair[0]
	if shifted {
		r = pair[1]
	}
	return core.KeyEvent{Down: down, Code: core.KeyOther, Text: string(r)}, true
}

func adjust(count int, value int32) int {
	switch value {
	case keyPressed:
		return count + 1
	case keyReleased:
		if count > 0 {
			return count - 1
		}
	}
	return count
}
