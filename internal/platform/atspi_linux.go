//go:build linux

package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"pkt.systems/askd/schema"
)

const (
	atspiEventObject   = "org.a11y.atspi.Event.Object"
	atspiText          = "org.a11y.atspi.Text"
	atspiEditableText  = "org.a11y.atspi.EditableText"
	atspiFocusedEvent  = "object:state-changed:focused"
	atspiConnectBudget = 3 * time.Second
)

// atspiBus is the slice of *dbus.Conn the accessor calls.
type atspiBus interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	Close() error
}

type atspiRef struct {
	sender string
	path   dbus.ObjectPath
}

// ATSPIAccessor reads and writes the focused text field over the AT-SPI
// accessibility bus. Focus is tracked from state-changed signals, so the
// first field only becomes reachable after focus moves once.
type ATSPIAccessor struct {
	bus atspiBus

	mu    sync.Mutex
	focus atspiRef
}

// NewATSPIAccessor connects to the accessibility bus advertised on the
// session bus and subscribes to focus changes.
func NewATSPIAccessor(ctx context.Context) (*ATSPIAccessor, error) {
	session, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("session bus: %w", err)
	}
	var addr string
	err = session.Object("org.a11y.Bus", "/org/a11y/bus").
		CallWithContext(ctx, "org.a11y.Bus.GetAddress", 0).Store(&addr)
	_ = session.Close()
	if err != nil {
		return nil, fmt.Errorf("accessibility bus address: %w", err)
	}
	conn, err := dbus.Connect(addr, dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("accessibility bus: %w", err)
	}
	registry := conn.Object("org.a11y.atspi.Registry", "/org/a11y/atspi/registry")
	if call := registry.CallWithContext(ctx, "org.a11y.atspi.Registry.RegisterEvent", 0, atspiFocusedEvent); call.Err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("register focus events: %w", call.Err)
	}
	if err := conn.AddMatchSignalContext(ctx,
		dbus.WithMatchInterface(atspiEventObject),
		dbus.WithMatchMember("StateChanged"),
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("match focus events: %w", err)
	}
	a := &ATSPIAccessor{bus: conn}
	signals := make(chan *dbus.Signal, 64)
	conn.Signal(signals)
	go func() {
		for sig := range signals {
			a.observe(sig)
		}
	}()
	return a, nil
}

// observe updates the focused object from a StateChanged signal. Losing
// focus only clears the reference when it names the current object.
func (a *ATSPIAccessor) observe(sig *dbus.Signal) {
	if sig == nil || sig.Name != atspiEventObject+".StateChanged" || len(sig.Body) < 2 {
		return
	}
	kind, ok := sig.Body[0].(string)
	if !ok || kind != "focused" {
		return
	}
	gained, ok := sig.Body[1].(int32)
	if !ok {
		return
	}
	ref := atspiRef{sender: sig.Sender, path: sig.Path}
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case gained == 1:
		a.focus = ref
	case a.focus == ref:
		a.focus = atspiRef{}
	}
}

func (a *ATSPIAccessor) focused() (dbus.BusObject, error) {
	a.mu.Lock()
	ref := a.focus
	a.mu.Unlock()
	if ref.sender == "" {
		return nil, fmt.Errorf("%w: no focused accessible", schema.ErrAccessUnavailable)
	}
	return a.bus.Object(ref.sender, ref.path), nil
}

func (a *ATSPIAccessor) ReadFocusedText(ctx context.Context) (string, error) {
	obj, err := a.focused()
	if err != nil {
		return "", err
	}
	var text string
	if err := obj.CallWithContext(ctx, atspiText+".GetText", 0, int32(0), int32(-1)).Store(&text); err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrAccessUnavailable, err)
	}
	return text, nil
}

func (a *ATSPIAccessor) WriteFocusedText(ctx context.Context, text string) error {
	obj, err := a.focused()
	if err != nil {
		return err
	}
	var ok bool
	if err := obj.CallWithContext(ctx, atspiEditableText+".SetTextContents", 0, text).Store(&ok); err != nil {
		return fmt.Errorf("%w: %v", schema.ErrAccessUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%w: focused accessible rejected the text", schema.ErrAccessUnavailable)
	}
	return nil
}

// Close disconnects from the accessibility bus.
func (a *ATSPIAccessor) Close() error {
	if a == nil || a.bus == nil {
		return nil
	}
	return a.bus.Close()
}
