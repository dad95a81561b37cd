//go:build linux

package platform

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"pkt.systems/askd/core"
)

// XdotoolInjector posts synthetic input to the X11 focus through xdotool.
type XdotoolInjector struct {
	xdotool helper
}

// NewXdotoolInjector locates xdotool on PATH.
func NewXdotoolInjector() (XdotoolInjector, error) {
	path, err := exec.LookPath("xdotool")
	if err != nil {
		return XdotoolInjector{}, fmt.Errorf("xdotool is required for synthetic input: %w", err)
	}
	return XdotoolInjector{xdotool: newHelper(path)}, nil
}

func (x XdotoolInjector) TypeRune(ctx context.Context, r rune) error {
	if r == '\n' {
		return x.PressEnter(ctx)
	}
	_, _, err := x.xdotool.call(ctx, "", 0, "type", "--delay", "0", "--", string(r))
	return err
}

func (x XdotoolInjector) PressEnter(ctx context.Context) error {
	_, _, err := x.xdotool.call(ctx, "", 0, "key", "--clearmodifiers", "Return")
	return err
}

func (x XdotoolInjector) PressBackspace(ctx context.Context) error {
	_, _, err := x.xdotool.call(ctx, "", 0, "key", "--clearmodifiers", "BackSpace")
	return err
}

func (x XdotoolInjector) FrontmostApp(ctx context.Context) (string, error) {
	out, _, err := x.xdotool.call(ctx, "", 0, "getactivewindow", "getwindowclassname")
	return strings.TrimSpace(out), err
}

// ZenityConfirmer asks with a zenity question dialog.
type ZenityConfirmer struct {
	zenity helper
}

func (z ZenityConfirmer) Confirm(ctx context.Context, req core.ConfirmRequest) (bool, error) {
	msg := fmt.Sprintf("This command contains %q and may be destructive:\n\n%s\n\nRun it?", req.Matched, req.CommandText)
	_, code, err := z.zenity.call(ctx, "", dialogTimeout,
		"--question", "--title=askd", "--no-markup", "--ok-label=Run", "--cancel-label=Cancel", "--text="+msg)
	switch {
	case code == 0 && err == nil:
		return true, nil
	case code == 1:
		return false, nil
	default:
		return false, err
	}
}

// New returns the Linux backends. With opts.Accessor the focused field is
// read and written over AT-SPI; when the accessibility bus cannot be reached
// the accessor reports unavailable and every write goes through xdotool.
func New(opts Options) (Backend, error) {
	injector, err := NewXdotoolInjector()
	if err != nil {
		return Backend{}, err
	}
	b := Backend{
		Accessor: Unavailable{Reason: "accessor disabled"},
		Injector: injector,
	}
	if opts.Accessor {
		ctx, cancel := context.WithTimeout(context.Background(), atspiConnectBudget)
		acc, err := NewATSPIAccessor(ctx)
		cancel()
		if err != nil {
			b.Accessor = Unavailable{Reason: err.Error()}
		} else {
			b.Accessor = acc
		}
	}
	if path, err := exec.LookPath("zenity"); err == nil {
		b.Dialog = ZenityConfirmer{zenity: newHelper(path)}
	}
	return b, nil
}

func newNativeKeySource(opts Options) (KeySource, error) {
	return NewEvdevSource(opts.Device)
}
