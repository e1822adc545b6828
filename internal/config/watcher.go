package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/markdown-ticket/mdt/internal/logging"
)

// Watcher reloads the config service when the global config file changes
// and fires its change hooks when registry files change. Used by the
// daemon; the CLI loads fresh state per invocation and does not need one.
type Watcher struct {
	watcher *fsnotify.Watcher
	service *Service
	logger  *logging.Logger
	stop    chan struct{}
	done    chan struct{}
}

// NewWatcher watches the config directory and the global projects
// directory. Directories are watched rather than files so atomic-rename
// writes (remove + create) are still observed.
func NewWatcher(service *Service, logger *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	dir, err := Dir()
	if err != nil {
		fsw.Close()
		return nil, err
	}
	projects, err := ProjectsDir()
	if err != nil {
		fsw.Close()
		return nil, err
	}
	for _, d := range []string{dir, projects} {
		if err := fsw.Add(d); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", d, err)
		}
	}

	w := &Watcher{
		watcher: fsw,
		service: service,
		logger:  logger.Named("configwatch"),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	name := filepath.Base(event.Name)
	switch {
	case name == "config.toml":
		w.logger.Info("global config changed, reloading")
		if err := w.service.Reload(); err != nil {
			w.logger.Warn("config reload failed, keeping previous config", zap.Error(err))
		}
	case filepath.Ext(name) == ".toml":
		// A registry entry changed outside this process.
		w.logger.Debug("registry entry changed", zap.String("file", name))
		w.service.Notify()
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	close(w.stop)
	err := w.watcher.Close()
	<-w.done
	return err
}
