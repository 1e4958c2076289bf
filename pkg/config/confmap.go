package config

import "github.com/knadh/koanf/providers/confmap"

// mapProvider adapts an already-resolved map into a koanf.Provider, used for
// the default and structs-derived layers.
func mapProvider(data map[string]any) *confmap.Confmap {
	return confmap.Provider(data, ".")
}
