package platform

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"

	"pkt.systems/askd/core"
)

// StdinSource turns a character stream into key events. It serves terminals
// and scripted input: newline or carriage return commits, DEL or ^H deletes,
// ESC cancels. Every rune produces one key-down event. On a terminal the
// injected answer is echoed into the same stream once injection has ended,
// so interactive use should pipe input instead.
type StdinSource struct {
	r io.Reader
}

// NewStdinSource reads from r, or os.Stdin when r is nil.
func NewStdinSource(r io.Reader) *StdinSource {
	if r == nil {
		r = os.Stdin
	}
	return &StdinSource{r: r}
}

// Run reads until EOF or ctx is done. EOF is not an error.
func (s *StdinSource) Run(ctx context.Context, handle func(core.KeyEvent)) error {
	runes := make(chan rune)
	errs := make(chan error, 1)
	go func() {
		br := bufio.NewReader(s.r)
		for {
			r, _, err := br.ReadRune()
			if err != nil {
				errs <- err
				return
			}
			select {
			case runes <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case r := <-runes:
			handle(runeEvent(r))
		}
	}
}

func runeEvent(r rune) core.KeyEvent {
	switch r {
	case '\n', '\r':
		return core.KeyEvent{Down: true, Code: core.KeyReturn}
	case 0x7f, 0x08:
		return core.KeyEvent{Down: true, Code: core.KeyBackspace}
	case 0x1b:
		return core.KeyEvent{Down: true, Code: core.KeyEscape}
	}
	if r < 0x20 && r != '\t' {
		return core.KeyEvent{Down: true, Code: core.KeyIgnored}
	}
	return core.KeyEvent{Down: true, Code: core.KeyOther, Text: string(r)}
}
