package appconfig

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"pkt.systems/pslog"
)

// DefaultWatchDebounce batches the burst of events editors emit on save.
const DefaultWatchDebounce = 250 * time.Millisecond

// Watch reloads the config file whenever it changes and hands each valid
// result to onChange. Invalid configs are logged and skipped. The parent
// directory is watched so editors that save by rename are seen. Watch blocks
// until ctx is done.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(Config)) error {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return err
		}
		path = defaultPath
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	path = filepath.Clean(path)
	log := pslog.Ctx(ctx).With("config", path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		_ = watcher.Close()
	}()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	log.Debug("config watch started")

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("config watch stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watch error", "err", err)
		case <-timer.C:
			cfg, err := Load(path)
			if err != nil {
				log.Warn("config reload failed", "err", err)
				continue
			}
			log.Info("config reloaded")
			onChange(cfg)
		}
	}
}
