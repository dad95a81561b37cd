package core

import (
	"fmt"
	"strings"
	"unicode"

	"pkt.systems/askd/schema"
)

// TriggerSet is an ordered set of delimiter-terminated triggers.
type TriggerSet struct {
	triggers []schema.Trigger
}

// NewTriggerSet validates triggers and preserves their order. Triggers must be
// unique, end in a non-alphanumeric delimiter, and no trigger may end with
// another trigger, since both would then match the same buffer suffix.
func NewTriggerSet(triggers []schema.Trigger) (TriggerSet, error) {
	if len(triggers) == 0 {
		return TriggerSet{}, fmt.Errorf("%w: no triggers configured", schema.ErrInvalidTrigger)
	}
	seen := make(map[schema.Trigger]struct{}, len(triggers))
	out := make([]schema.Trigger, 0, len(triggers))
	for _, trigger := range triggers {
		if err := validateTrigger(trigger); err != nil {
			return TriggerSet{}, err
		}
		if _, ok := seen[trigger]; ok {
			return TriggerSet{}, fmt.Errorf("%w: duplicate trigger %q", schema.ErrInvalidTrigger, trigger)
		}
		seen[trigger] = struct{}{}
		out = append(out, trigger)
	}
	for i, a := range out {
		for j, b := range out {
			if i != j && strings.HasSuffix(string(a), string(b)) {
				return TriggerSet{}, fmt.Errorf("%w: trigger %q ends with trigger %q", schema.ErrInvalidTrigger, a, b)
			}
		}
	}
	return TriggerSet{triggers: out}, nil
}

func validateTrigger(trigger schema.Trigger) error {
	word := trigger.Word()
	if strings.TrimSpace(word) == "" {
		return fmt.Errorf("%w: %q has no word", schema.ErrInvalidTrigger, trigger)
	}
	delim := trigger.Delimiter()
	if unicode.IsLetter(delim) || unicode.IsDigit(delim) {
		return fmt.Errorf("%w: %q must end with a delimiter", schema.ErrInvalidTrigger, trigger)
	}
	if strings.ContainsFunc(word, unicode.IsSpace) {
		return fmt.Errorf("%w: %q must be a single word", schema.ErrInvalidTrigger, trigger)
	}
	return nil
}

// Triggers returns the triggers in evaluation order.
func (s TriggerSet) Triggers() []schema.Trigger {
	return append([]schema.Trigger(nil), s.triggers...)
}

// match returns the first trigger that is a suffix of the buffer.
func (s TriggerSet) match(buf *typingBuffer) (schema.Trigger, bool) {
	for _, trigger := range s.triggers {
		if buf.HasSuffix(string(trigger)) {
			return trigger, true
		}
	}
	return "", false
}

// Match returns the first trigger that is a suffix of text.
func (s TriggerSet) Match(text string) (schema.Trigger, bool) {
	for _, trigger := range s.triggers {
		if strings.HasSuffix(text, string(trigger)) {
			return trigger, true
		}
	}
	return "", false
}
