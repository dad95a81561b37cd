package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"pkt.systems/askd/schema"
	"pkt.systems/pslog"
)

// SimulatorConfig controls synthetic keystroke pacing.
type SimulatorConfig struct {
	KeyDelay       time.Duration
	Settle         time.Duration
	SubmitDelay    time.Duration
	// AutoSubmitApps are application ids or glob patterns ("com.tinyspeck.*"),
	// matched case-insensitively.
	AutoSubmitApps []string
}

// Simulator injects text one character at a time while the engine ignores
// the resulting events. The suppression window closes a fixed settle delay
// after the last injected key, so a target that renders slower than that can
// still leak events back into the engine.
type Simulator struct {
	cfg        SimulatorConfig
	injector   Injector
	suppressor Suppressor
	log        pslog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	submitApps []glob.Glob
}

// NewSimulator constructs a keystroke simulator.
func NewSimulator(cfg SimulatorConfig, injector Injector, suppressor Suppressor, logger pslog.Logger) (*Simulator, error) {
	if injector == nil {
		return nil, errors.New("simulator injector is required")
	}
	if suppressor == nil {
		return nil, errors.New("simulator suppressor is required")
	}
	if cfg.KeyDelay <= 0 {
		cfg.KeyDelay = schema.DefaultKeyDelay
	}
	if cfg.Settle <= 0 {
		cfg.Settle = schema.DefaultSettleDelay
	}
	if cfg.SubmitDelay <= 0 {
		cfg.SubmitDelay = schema.DefaultSubmitDelay
	}
	if cfg.AutoSubmitApps == nil {
		cfg.AutoSubmitApps = schema.DefaultAutoSubmitApps
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	submitApps := make([]glob.Glob, 0, len(cfg.AutoSubmitApps))
	for _, pattern := range cfg.AutoSubmitApps {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("auto-submit app pattern %q: %w", pattern, err)
		}
		submitApps = append(submitApps, g)
	}
	return &Simulator{
		cfg:        cfg,
		injector:   injector,
		suppressor: suppressor,
		log:        logger,
		sleep:      sleepContext,
		submitApps: submitApps,
	}, nil
}

// TypeText injects text.
func (s *Simulator) TypeText(ctx context.Context, text string) error {
	return s.Replace(ctx, 0, text)
}

// Replace injects erase backspaces followed by text, then submits with Enter
// when the foreground application is on the auto-submit list. The engine's
// suppression flag stays set until every key, including the submit, is sent.
func (s *Simulator) Replace(ctx context.Context, erase int, text string) error {
	s.suppressor.BeginInjection()
	defer s.suppressor.EndInjection()

	started := time.Now()
	sent := 0
	for i := 0; i < erase; i++ {
		if err := s.pace(ctx, sent); err != nil {
			return err
		}
		if err := s.injector.PressBackspace(ctx); err != nil {
			s.log.Warn("simulator backspace failed", "err", err)
			return err
		}
		sent++
	}
	for _, r := range text {
		if err := s.pace(ctx, sent); err != nil {
			return err
		}
		if err := s.injector.TypeRune(ctx, r); err != nil {
			s.log.Warn("simulator type failed", "err", err, "sent", sent)
			return err
		}
		sent++
	}
	if err := s.sleep(ctx, s.cfg.Settle); err != nil {
		return err
	}
	submitted := false
	if text != "" {
		app, err := s.injector.FrontmostApp(ctx)
		if err != nil {
			s.log.Debug("simulator frontmost app unknown", "err", err)
		} else if s.autoSubmit(app) {
			if err := s.sleep(ctx, s.cfg.SubmitDelay); err != nil {
				return err
			}
			if err := s.injector.PressEnter(ctx); err != nil {
				s.log.Warn("simulator submit failed", "app", app, "err", err)
				return err
			}
			submitted = true
		}
	}
	s.log.Debug("simulator injected", "erase", erase, "runes", sent-erase, "submitted", submitted, "duration_ms", time.Since(started).Milliseconds())
	return nil
}

func (s *Simulator) pace(ctx context.Context, sent int) error {
	if sent == 0 {
		return ctx.Err()
	}
	return s.sleep(ctx, s.cfg.KeyDelay)
}

func (s *Simulator) autoSubmit(app string) bool {
	app = strings.TrimSpace(app)
	if app == "" {
		return false
	}
	app = strings.ToLower(app)
	for _, g := range s.submitApps {
		if g.Match(app) {
			return true
		}
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
