package envmod

import "sort"

// Config is the declarative form of an environment fragment, as it
// appears in toolchain and manifest files.
type Config struct {
	Set         map[string]string `json:"set,omitempty" yaml:"set,omitempty"`
	Unset       []string          `json:"unset,omitempty" yaml:"unset,omitempty"`
	PrependPath map[string]string `json:"prependPath,omitempty" yaml:"prependPath,omitempty"`
	AppendPath  map[string]string `json:"appendPath,omitempty" yaml:"appendPath,omitempty"`
	RemovePath  map[string]string `json:"removePath,omitempty" yaml:"removePath,omitempty"`
}

// FromConfig converts a declarative fragment into a ledger. Map keys
// are processed in sorted order so the resulting ledger is
// deterministic.
func FromConfig(cfg Config) *EnvironmentModifications {
	env := New()
	for _, k := range sortedKeys(cfg.Set) {
		env.Set(k, cfg.Set[k])
	}
	for _, name := range cfg.Unset {
		env.Unset(name)
	}
	for _, k := range sortedKeys(cfg.PrependPath) {
		env.PrependPath(k, cfg.PrependPath[k])
	}
	for _, k := range sortedKeys(cfg.AppendPath) {
		env.AppendPath(k, cfg.AppendPath[k])
	}
	for _, k := range sortedKeys(cfg.RemovePath) {
		env.RemovePath(k, cfg.RemovePath[k])
	}
	return env
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
