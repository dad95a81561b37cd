package appconfig

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeConfig(t, `
config_version: 1
process:
  timeout_seconds: 30
`)
	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, func(cfg Config) {
			changes <- cfg
		})
	}()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("watch: %v", err)
		}
	}()

	// Keep rewriting until the watcher is registered and reports a reload.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		if err := os.WriteFile(path, []byte("config_version: 1\nprocess:\n  timeout_seconds: 45\n"), 0o600); err != nil {
			t.Fatalf("rewrite config: %v", err)
		}
		select {
		case cfg := <-changes:
			if cfg.Process.TimeoutSeconds != 45 {
				t.Fatalf("unexpected reloaded config %+v", cfg.Process)
			}
			return
		case <-deadline:
			t.Fatalf("timed out waiting for reload")
		case <-tick.C:
		}
	}
}

func TestWatchSkipsInvalidConfig(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeConfig(t, "config_version: 1\n")
	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, func(cfg Config) {
			changes <- cfg
		})
	}()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("config_version: 9\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	select {
	case cfg := <-changes:
		t.Fatalf("invalid config must not be delivered: %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch: %v", err)
	}
}
