package config

import (
	"sync"
)

// Service owns the loaded global configuration for the lifetime of the
// process. It is constructed once at startup and passed by reference to
// every consumer. Mutation callbacks and the filesystem watcher both
// funnel through Notify so cache invalidation has one entry point.
type Service struct {
	mu       sync.RWMutex
	path     string
	cfg      *Config
	onChange []func()
}

// NewService loads the config from path (empty means the default
// location) and returns a service owning it.
func NewService(path string) (*Service, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Service{path: path, cfg: cfg}, nil
}

// Discovery returns a copy of the current discovery settings.
func (s *Service) Discovery() Discovery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.cfg.Discovery
	d.SearchPaths = append([]string(nil), d.SearchPaths...)
	return d
}

// Current returns a shallow copy of the whole configuration.
func (s *Service) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.cfg
}

// OnChange registers a hook invoked after every successful reload and on
// every Notify call. Hooks must be fast and must not call back into the
// service.
func (s *Service) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Reload re-reads the config file and fires the change hooks. On load
// failure the previous configuration stays in effect and the error is
// returned.
func (s *Service) Reload() error {
	cfg, err := Load(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.Notify()
	return nil
}

// Notify fires the registered change hooks without reloading. Mutating
// operations call this to invalidate caches.
func (s *Service) Notify() {
	s.mu.RLock()
	hooks := append([]func(){}, s.onChange...)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}
