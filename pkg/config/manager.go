package config

import (
	"context"
	"fmt"
	"sync"

	"github.com/knadh/koanf/v2"
)

// Service is the mutable holder a Manager publishes resolved config into;
// kept separate from Manager so callers can swap the backing store (the
// teacher does the analogous split for its config service/manager pair).
type Service struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewService returns a Service seeded with the hardcoded defaults.
func NewService() *Service {
	return &Service{cfg: Default()}
}

func (s *Service) set(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Get returns the current resolved configuration.
func (s *Service) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Manager loads and merges Provider layers into a Service.
type Manager struct {
	svc    *Service
	k      *koanf.Koanf
	cancel []func()
}

// NewManager returns a Manager publishing into svc.
func NewManager(svc *Service) *Manager {
	return &Manager{svc: svc, k: koanf.New(".")}
}

// Load merges each provider's layer into the Manager's koanf instance, in
// order (later providers win), and unmarshals the result into the Service.
func (m *Manager) Load(_ context.Context, providers ...Provider) (*Config, error) {
	for _, p := range providers {
		switch p.Type() {
		case SourceEnv:
			if err := m.k.Load(koanfEnvProvider(), nil); err != nil {
				return nil, fmt.Errorf("config: loading env layer: %w", err)
			}
		default:
			data, err := p.Load()
			if err != nil {
				return nil, fmt.Errorf("config: loading %s layer: %w", p.Type(), err)
			}
			if err := m.k.Load(mapProvider(data), nil); err != nil {
				return nil, fmt.Errorf("config: merging %s layer: %w", p.Type(), err)
			}
		}
	}
	cfg := Default()
	if err := m.k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	m.svc.set(cfg)
	return cfg, nil
}

// Get returns the current resolved configuration.
func (m *Manager) Get() *Config { return m.svc.Get() }

// Close releases any provider watches started by Load.
func (m *Manager) Close(_ context.Context) error {
	for _, cancel := range m.cancel {
		cancel()
	}
	m.cancel = nil
	return nil
}
