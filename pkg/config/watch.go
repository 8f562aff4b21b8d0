package config

import (
	"path/filepath"

	"github.com/cuemby/buildmux/pkg/log"
	"github.com/fsnotify/fsnotify"
)

// Watch re-reads path whenever it changes on disk and invokes onChange
// with the newly loaded Config. A parse failure on reload is logged and
// skipped - the previously loaded Config keeps running rather than
// tearing anything down over a bad edit. The directory containing path
// is watched rather than the file itself, since editors commonly
// replace a file instead of writing it in place.
func Watch(path string, onChange func(Config)) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	logger := log.WithComponent("config-watch")
	target := filepath.Base(path)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(evt.Name) != target {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					logger.Warn().Err(err).Msg("config reload failed, keeping previous configuration")
					continue
				}
				logger.Info().Int("max_node_count", cfg.MaxNodeCount).Msg("configuration reloaded")
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error().Err(err).Msg("config watcher error")
			case <-done:
				return
			}
		}
	}()

	stop = func() {
		close(done)
		watcher.Close()
	}
	return stop, nil
}
