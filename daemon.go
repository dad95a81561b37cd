package askd

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/askd/core"
	"pkt.systems/askd/internal/agent"
	"pkt.systems/askd/internal/eventbus"
	"pkt.systems/askd/internal/platform"
	"pkt.systems/askd/schema"
	"pkt.systems/pslog"
)

// Daemon watches keystrokes and answers triggered commands in place.
type Daemon interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
	History() *core.History
	Events() *eventbus.Bus
	ReloadAgents(agents []core.Agent) error
}

// DaemonConfig configures the daemon.
type DaemonConfig struct {
	MaxRunes   int
	QueueDepth int
	Simulator  core.SimulatorConfig
	Dispatcher core.DispatcherConfig
}

// DaemonDeps captures dependencies required to build the daemon.
type DaemonDeps struct {
	Keys      platform.KeySource
	Accessor  core.TextAccessor
	Injector  core.Injector
	Confirmer core.Confirmer
	Agents    *agent.Registry
	// Store persists history; its entries seed the in-memory history.
	Store HistoryStore
	// Sinks receive history events next to the daemon's event bus.
	Sinks  []core.HistorySink
	Logger pslog.Logger
}

// HistoryStore loads and saves the command history.
type HistoryStore interface {
	core.HistoryStore
	Load() ([]schema.CommandExecution, error)
}

// New constructs a daemon. Triggers come from the agent registry.
func New(cfg DaemonConfig, deps DaemonDeps) (Daemon, error) {
	if deps.Keys == nil {
		return nil, errors.New("key source is required")
	}
	if deps.Injector == nil {
		return nil, errors.New("injector is required")
	}
	if deps.Agents == nil {
		return nil, errors.New("agent registry is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	engine, err := core.NewEngine(core.EngineConfig{
		Triggers: deps.Agents.Triggers(),
		MaxRunes: cfg.MaxRunes,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	simulator, err := core.NewSimulator(cfg.Simulator, deps.Injector, engine, logger)
	if err != nil {
		return nil, err
	}

	bus := eventbus.New(logger)
	sinks := []core.HistorySink{bus}
	for _, sink := range deps.Sinks {
		if sink != nil {
			sinks = append(sinks, sink)
		}
	}
	historyDeps := core.HistoryDeps{Sink: historyFanout{sinks: sinks}, Logger: logger}
	var persisted []schema.CommandExecution
	if deps.Store != nil {
		historyDeps.Store = deps.Store
		persisted, err = deps.Store.Load()
		if err != nil {
			logger.Warn("history load failed; starting empty", "err", err)
			persisted = nil
		}
	}
	history := core.NewHistoryFromPersisted(persisted, historyDeps)

	dispatcher, err := core.NewDispatcher(cfg.Dispatcher, core.DispatcherDeps{
		Accessor:  deps.Accessor,
		Simulator: simulator,
		Agents:    deps.Agents,
		Confirmer: deps.Confirmer,
		History:   history,
		Apps:      deps.Injector,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	return &daemon{
		cfg:        cfg,
		keys:       deps.Keys,
		engine:     engine,
		dispatcher: dispatcher,
		worker:     core.NewWorker(dispatcher, cfg.QueueDepth, logger),
		agents:     deps.Agents,
		history:    history,
		bus:        bus,
	}, nil
}

type daemon struct {
	cfg        DaemonConfig
	keys       platform.KeySource
	engine     *core.Engine
	dispatcher *core.Dispatcher
	worker     *core.Worker
	agents     *agent.Registry
	history    *core.History
	bus        *eventbus.Bus

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	done    chan struct{}
	started bool
	logger  pslog.Logger
}

func (d *daemon) History() *core.History { return d.history }

func (d *daemon) Events() *eventbus.Bus { return d.bus }

// ReloadAgents swaps the registered agents. Triggers the engine was not
// started with stay inactive until restart.
func (d *daemon) ReloadAgents(agents []core.Agent) error {
	if err := d.agents.Replace(agents); err != nil {
		return err
	}
	log := d.log()
	known := make(map[schema.Trigger]bool)
	for _, trigger := range d.engine.Triggers() {
		known[trigger] = true
	}
	for _, a := range agents {
		if !known[a.Trigger()] {
			log.Warn("agent trigger requires restart", "agent", a.Name(), "trigger", a.Trigger().Word())
		}
	}
	log.Info("agents reloaded", "agents", len(agents))
	return nil
}

func (d *daemon) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		pslog.Ctx(ctx).Warn("daemon start rejected", "reason", "already started")
		return errors.New("daemon already started")
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.errCh = make(chan error, 1)
	d.done = make(chan struct{})
	d.started = true
	d.logger = pslog.Ctx(d.ctx)
	d.mu.Unlock()

	log := d.logger
	triggers := d.engine.Triggers()
	words := make([]string, 0, len(triggers))
	for _, t := range triggers {
		words = append(words, t.Word())
	}
	log.Info("daemon start", "triggers", words, "history", d.history.Len(), "queue_depth", d.cfg.QueueDepth)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = d.worker.Run(d.ctx)
	}()
	go func() {
		defer wg.Done()
		err := d.keys.Run(d.ctx, d.onKey)
		// Input is finished; let queued commands complete.
		d.worker.Close()
		if err != nil {
			log.Error("key source failed", "err", err)
			d.errCh <- err
			d.cancel()
			return
		}
		log.Info("key source ended")
	}()
	go func() {
		wg.Wait()
		close(d.done)
	}()
	return nil
}

func (d *daemon) onKey(ev core.KeyEvent) {
	_, fire := d.engine.OnKeyEvent(ev)
	if fire == nil {
		return
	}
	if err := d.worker.Enqueue(*fire); err != nil {
		d.log().Warn("command dropped", "trigger", fire.Trigger.Word(), "err", err)
	}
}

func (d *daemon) Wait() error {
	d.mu.Lock()
	done := d.done
	errCh := d.errCh
	started := d.started
	d.mu.Unlock()
	if !started {
		return errors.New("daemon not started")
	}
	<-done
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

func (d *daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	cancel := d.cancel
	done := d.done
	started := d.started
	d.mu.Unlock()
	if !started {
		return nil
	}
	log := d.log()
	log.Info("daemon stop requested")
	cancel()
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-ctx.Done():
		log.Warn("daemon stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-done:
		log.Info("daemon stopped")
		return nil
	}
}

func (d *daemon) log() pslog.Logger {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.logger != nil {
		return d.logger
	}
	return pslog.Ctx(context.Background())
}
