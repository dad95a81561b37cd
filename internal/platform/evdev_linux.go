//go:build linux

package platform

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sys/unix"
	"pkt.systems/askd/core"
)

// inputEvent mirrors struct input_event from linux/input.h.
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

const (
	evKey = 0x01

	keyReleased = 0
	keyPressed  = 1
	keyRepeated = 2
)

// EvdevSource reads a keyboard device node. The process needs read access
// to the node, usually through the input group.
type EvdevSource struct {
	device string
}

// NewEvdevSource opens device, or the first keyboard under /dev/input/by-path
// when device is empty.
func NewEvdevSource(device string) (*EvdevSource, error) {
	if device == "" {
		found, err := findKeyboard()
		if err != nil {
			return nil, err
		}
		device = found
	}
	return &EvdevSource{device: device}, nil
}

// Device returns the device node path.
func (s *EvdevSource) Device() string {
	return s.device
}

func findKeyboard() (string, error) {
	matches, err := filepath.Glob("/dev/input/by-path/*-event-kbd")
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		matches, _ = filepath.Glob("/dev/input/by-id/*-event-kbd")
	}
	if len(matches) == 0 {
		return "", errors.New("no keyboard device found under /dev/input; set input.device")
	}
	sort.Strings(matches)
	return matches[0], nil
}

// Run reads key events until ctx is done.
func (s *EvdevSource) Run(ctx context.Context, handle func(core.KeyEvent)) error {
	f, err := os.Open(s.device)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("open %s: %w (add the user to the input group)", s.device, err)
		}
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = f.Close()
	})
	defer func() {
		if stop() {
			_ = f.Close()
		}
	}()
	err = decodeEvents(f, newKeymap(), handle)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// decodeEvents translates raw input_event records from r.
func decodeEvents(r io.Reader, km *keymap, handle func(core.KeyEvent)) error {
	buf := make([]byte, inputEventSize*64)
	pending := 0
	for {
		n, err := r.Read(buf[pending:])
		pending += n
		off := 0
		for pending-off >= inputEventSize {
			var ev inputEvent
			if decodeErr := binary.Read(bytes.NewReader(buf[off:off+inputEventSize]), binary.NativeEndian, &ev); decodeErr != nil {
				return decodeErr
			}
			off += inputEventSize
			if ev.Type != evKey {
				continue
			}
			if key, ok := km.translate(ev.Code, ev.Value); ok {
				handle(key)
			}
		}
		pending = copy(buf, buf[off:pending])
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
