//go:build linux

package platform

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"pkt.systems/askd/core"
	"pkt.systems/askd/internal/procrun"
)

func encodeEvents(t *testing.T, events ...inputEvent) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, ev := range events {
		if err := binary.Write(&buf, binary.NativeEndian, ev); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	return buf.Bytes()
}

func key(code uint16, value int32) inputEvent {
	return inputEvent{Type: evKey, Code: code, Value: value}
}

func press(code uint16) []inputEvent {
	return []inputEvent{key(code, keyPressed), {Type: 0}, key(code, keyReleased)}
}

// chunkedReader returns at most n bytes per Read to exercise partial records.
type chunkedReader struct {
	data []byte
	n    int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.n
	if n > len(p) {
		n = len(p)
	}
	if n > len(c.data) {
		n = len(c.data)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func TestDecodeEventsTypesText(t *testing.T) {
	var events []inputEvent
	events = append(events, key(keyLeftShift, keyPressed))
	events = append(events, press(30)...) // A
	events = append(events, key(keyLeftShift, keyReleased))
	events = append(events, press(48)...) // b
	events = append(events, press(keySpace)...)
	events = append(events, press(keyBackspace)...)
	events = append(events, press(keyEnter)...)

	var got []core.KeyEvent
	reader := &chunkedReader{data: encodeEvents(t, events...), n: 7}
	if err := decodeEvents(reader, newKeymap(), func(ev core.KeyEvent) {
		if ev.Down {
			got = append(got, ev)
		}
	}); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []core.KeyEvent{
		{Down: true, Code: core.KeyOther, Text: "A"},
		{Down: true, Code: core.KeyOther, Text: "b"},
		{Down: true, Code: core.KeyOther, Text: " "},
		{Down: true, Code: core.KeyBackspace},
		{Down: true, Code: core.KeyReturn},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: want %+v got %+v", i, want[i], got[i])
		}
	}
}

func TestKeymapModifiers(t *testing.T) {
	km := newKeymap()
	km.translate(keyCapsLock, keyPressed)
	km.translate(keyCapsLock, keyReleased)
	if ev, _ := km.translate(31, keyPressed); ev.Text != "S" {
		t.Fatalf("expected caps lock upper case, got %q", ev.Text)
	}
	if ev, _ := km.translate(2, keyPressed); ev.Text != "1" {
		t.Fatalf("caps lock must not shift digits, got %q", ev.Text)
	}
	km.translate(keyLeftShift, keyPressed)
	if ev, _ := km.translate(31, keyPressed); ev.Text != "s" {
		t.Fatalf("expected shift to cancel caps lock, got %q", ev.Text)
	}
	km.translate(keyLeftShift, keyReleased)

	km.translate(keyLeftCtrl, keyPressed)
	if ev, ok := km.translate(46, keyPressed); !ok || ev.Code != core.KeyIgnored {
		t.Fatalf("expected ctrl chord ignored, got %+v", ev)
	}
	km.translate(keyLeftCtrl, keyReleased)
	if ev, _ := km.translate(46, keyPressed); ev.Code != core.KeyOther {
		t.Fatalf("expected plain key after ctrl release, got %+v", ev)
	}
	if _, ok := km.translate(keyLeftShift, keyRepeated); ok {
		t.Fatalf("modifiers must not produce events")
	}
	if ev, _ := km.translate(keyKPEnter, keyPressed); ev.Code != core.KeyKeypadEnter {
		t.Fatalf("expected keypad enter, got %+v", ev)
	}
	if ev, _ := km.translate(105, keyPressed); ev.Code != core.KeyIgnored {
		t.Fatalf("expected arrow key ignored, got %+v", ev)
	}
}

func TestXdotoolInjectorArgs(t *testing.T) {
	var calls []recordedCall
	x := XdotoolInjector{xdotool: fakeHelper(&calls, procrun.Result{Stdout: "Slack\n"}, nil)}
	ctx := context.Background()
	if err := x.TypeRune(ctx, '-'); err != nil {
		t.Fatalf("type: %v", err)
	}
	if err := x.TypeRune(ctx, '\n'); err != nil {
		t.Fatalf("type newline: %v", err)
	}
	if err := x.PressBackspace(ctx); err != nil {
		t.Fatalf("backspace: %v", err)
	}
	app, err := x.FrontmostApp(ctx)
	if err != nil || app != "Slack" {
		t.Fatalf("unexpected app %q %v", app, err)
	}
	want := []string{
		"type --delay 0 -- -",
		"key --clearmodifiers Return",
		"key --clearmodifiers BackSpace",
		"getactivewindow getwindowclassname",
	}
	for i, w := range want {
		if got := strings.Join(calls[i].req.Args, " "); got != w {
			t.Fatalf("call %d: want %q got %q", i, w, got)
		}
	}
}

func TestZenityConfirmer(t *testing.T) {
	var calls []recordedCall
	z := ZenityConfirmer{zenity: fakeHelper(&calls, procrun.Result{}, nil)}
	req := core.ConfirmRequest{CommandText: "delete the prod database", Matched: "delete"}
	ok, err := z.Confirm(context.Background(), req)
	if err != nil || !ok {
		t.Fatalf("expected approval, got %v %v", ok, err)
	}
	args := strings.Join(calls[0].req.Args, "\x00")
	if !strings.Contains(args, "--question") || !strings.Contains(args, "delete the prod database") {
		t.Fatalf("unexpected args %q", calls[0].req.Args)
	}
	if calls[0].req.Timeout != dialogTimeout {
		t.Fatalf("expected dialog timeout, got %s", calls[0].req.Timeout)
	}

	z = ZenityConfirmer{zenity: fakeHelper(&calls, procrun.Result{ExitCode: 1}, nil)}
	if ok, err := z.Confirm(context.Background(), req); err != nil || ok {
		t.Fatalf("expected decline, got %v %v", ok, err)
	}
	z = ZenityConfirmer{zenity: fakeHelper(&calls, procrun.Result{ExitCode: 5}, nil)}
	if ok, err := z.Confirm(context.Background(), req); err == nil || ok {
		t.Fatalf("expected error on timeout exit, got %v %v", ok, err)
	}
}
