package config

import (
	"context"
	"fmt"
	"strings"

	"dario.cat/mergo"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
)

// Source identifies where a configuration layer came from.
type Source string

const (
	SourceDefault  Source = "default"
	SourceEnv      Source = "env"
	SourceOverride Source = "override"
)

// Provider is a configuration layer that can be loaded into a Manager and,
// optionally, watched for changes.
type Provider interface {
	Load() (map[string]any, error)
	Type() Source
	Watch(ctx context.Context, onChange func()) error
}

// defaultProvider supplies the hardcoded defaults via koanf's structs provider.
type defaultProvider struct{}

// NewDefaultProvider returns a Provider seeded from Default().
func NewDefaultProvider() Provider { return &defaultProvider{} }

func (p *defaultProvider) Load() (map[string]any, error) {
	sp := structs.Provider(*Default(), "koanf")
	return sp.Read()
}

func (p *defaultProvider) Type() Source { return SourceDefault }

func (p *defaultProvider) Watch(_ context.Context, _ func()) error { return nil }

// envProvider overlays environment variables of the form RSO_<SECTION>_<FIELD>.
type envProvider struct{}

// NewEnvProvider returns a Provider reading RSO_-prefixed environment variables.
func NewEnvProvider() Provider { return &envProvider{} }

func (p *envProvider) Load() (map[string]any, error) {
	// Environment values are merged directly into the Manager's koanf
	// instance at Load time (koanf's env.Provider streams key/value pairs
	// rather than a prebuilt map); this method exists to satisfy Provider
	// and always reports an empty overlay on its own.
	return map[string]any{}, nil
}

func (p *envProvider) Type() Source { return SourceEnv }

func (p *envProvider) Watch(_ context.Context, _ func()) error { return nil }

// overrideProvider layers a partial, project-specific Config (e.g. decoded
// from a per-project settings file) onto Default() before the env layer
// applies. Unlike the map-merge the default/env layers use, a partial
// Config has zero-valued fields that must NOT clobber the defaults they
// were never meant to touch — mergo.Merge with WithOverride applies
// exactly that "only non-zero fields win" semantics directly on the typed
// struct, which koanf's key-presence map merge cannot express without the
// caller manually pruning zero fields first.
type overrideProvider struct {
	overrides *Config
}

// NewOverrideProvider returns a Provider that overlays overrides onto
// Default(), keeping any field overrides leaves at its zero value.
func NewOverrideProvider(overrides *Config) Provider { return &overrideProvider{overrides: overrides} }

func (p *overrideProvider) Load() (map[string]any, error) {
	merged := *Default()
	if err := mergo.Merge(&merged, *p.overrides, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("config: merge override layer: %w", err)
	}
	sp := structs.Provider(merged, "koanf")
	return sp.Read()
}

func (p *overrideProvider) Type() Source { return SourceOverride }

func (p *overrideProvider) Watch(_ context.Context, _ func()) error { return nil }

// envPrefix is the prefix recognized for environment variable overrides,
// e.g. RSO_SOLVER_ABSOLUTE_CAP.
const envPrefix = "RSO_"

// koanfEnvProvider builds the underlying koanf provider used by Manager.Load
// for SourceEnv providers: RSO_SECTION_FIELD maps to section.field.
func koanfEnvProvider() *env.Env {
	return env.Provider(envPrefix, ".", func(s string) string {
		trimmed := strings.TrimPrefix(s, envPrefix)
		return strings.Replace(strings.ToLower(trimmed), "_", ".", 1)
	})
}
