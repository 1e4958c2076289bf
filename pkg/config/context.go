package config

import "context"

type ctxKey string

// ConfigCtxKey is the context key a *Config is stored under.
const ConfigCtxKey ctxKey = "rso.config"

// ContextWithConfig returns a copy of ctx carrying cfg.
func ContextWithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ConfigCtxKey, cfg)
}

// FromContext returns the *Config stored in ctx, or Default() when ctx
// carries none.
func FromContext(ctx context.Context) *Config {
	if ctx == nil {
		return Default()
	}
	v := ctx.Value(ConfigCtxKey)
	if v == nil {
		return Default()
	}
	cfg, ok := v.(*Config)
	if !ok || cfg == nil {
		return Default()
	}
	return cfg
}
