// Package envmod implements an ordered, replayable ledger of
// environment modifications.
//
// Operations are accumulated from multiple sources (the synthesizer,
// toolchain extensions, dependency hooks, recipe hooks) and applied
// atomically at the end. Insertion order is significant: later Set and
// Unset operations on the same variable win, and path operations
// accumulate in insertion order.
package envmod

import (
	"os"
	"path/filepath"
	"strings"
)

// Op identifies one kind of ledger operation.
type Op string

const (
	OpSet         Op = "set"
	OpUnset       Op = "unset"
	OpSetPath     Op = "set-path"
	OpPrependPath Op = "prepend-path"
	OpAppendPath  Op = "append-path"
	OpRemovePath  Op = "remove-path"
)

// Modification is a single recorded environment operation.
type Modification struct {
	Op        Op       `json:"op"`
	Name      string   `json:"name"`
	Value     string   `json:"value,omitempty"`
	Values    []string `json:"values,omitempty"`
	Separator string   `json:"separator,omitempty"`
}

func (m Modification) separator() string {
	if m.Separator != "" {
		return m.Separator
	}
	return string(os.PathListSeparator)
}

// EnvironmentModifications is the ledger: an ordered sequence of
// operations replayed onto an environment.
type EnvironmentModifications struct {
	mods []Modification
}

// New creates an empty ledger.
func New() *EnvironmentModifications {
	return &EnvironmentModifications{}
}

// Set records "name=value". The last Set on a variable wins.
func (e *EnvironmentModifications) Set(name, value string) {
	e.mods = append(e.mods, Modification{Op: OpSet, Name: name, Value: value})
}

// Unset records removal of a variable.
func (e *EnvironmentModifications) Unset(name string) {
	e.mods = append(e.mods, Modification{Op: OpUnset, Name: name})
}

// SetPath records "name=v1:v2:..." from a list, replacing any prior value.
func (e *EnvironmentModifications) SetPath(name string, values []string) {
	e.mods = append(e.mods, Modification{Op: OpSetPath, Name: name, Values: values})
}

// PrependPath records insertion of a directory at the front of a
// path-list variable.
func (e *EnvironmentModifications) PrependPath(name, value string) {
	e.mods = append(e.mods, Modification{Op: OpPrependPath, Name: name, Value: value})
}

// AppendPath records insertion of a directory at the back of a
// path-list variable.
func (e *EnvironmentModifications) AppendPath(name, value string) {
	e.mods = append(e.mods, Modification{Op: OpAppendPath, Name: name, Value: value})
}

// RemovePath records removal of a directory from a path-list variable.
// Removing from an unset variable is a no-op.
func (e *EnvironmentModifications) RemovePath(name, value string) {
	e.mods = append(e.mods, Modification{Op: OpRemovePath, Name: name, Value: value})
}

// Extend merges another ledger's operations after this one's, in order.
func (e *EnvironmentModifications) Extend(other *EnvironmentModifications) {
	if other == nil {
		return
	}
	e.mods = append(e.mods, other.mods...)
}

// Len returns the number of recorded operations.
func (e *EnvironmentModifications) Len() int { return len(e.mods) }

// Modifications returns a copy of the recorded operations, in order.
func (e *EnvironmentModifications) Modifications() []Modification {
	out := make([]Modification, len(e.mods))
	copy(out, e.mods)
	return out
}

// IsUnset reports whether the net effect of the ledger on a variable is
// an unset (the last Set/Unset recorded for it is an Unset).
func (e *EnvironmentModifications) IsUnset(name string) bool {
	unset := false
	for _, m := range e.mods {
		if m.Name != name {
			continue
		}
		switch m.Op {
		case OpUnset:
			unset = true
		case OpSet, OpSetPath, OpPrependPath, OpAppendPath:
			unset = false
		}
	}
	return unset
}

// Touches reports whether any operation names the variable.
func (e *EnvironmentModifications) Touches(name string) bool {
	for _, m := range e.mods {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Apply replays the ledger onto the live process environment.
func (e *EnvironmentModifications) Apply() {
	for _, m := range e.mods {
		applyOne(m, os.Getenv, os.Setenv, os.Unsetenv)
	}
}

// ApplyTo replays the ledger onto a plain map, for tests and for
// computing an environment without mutating the process.
func (e *EnvironmentModifications) ApplyTo(env map[string]string) {
	get := func(name string) string { return env[name] }
	set := func(name, value string) error {
		env[name] = value
		return nil
	}
	unset := func(name string) error {
		delete(env, name)
		return nil
	}
	for _, m := range e.mods {
		applyOne(m, get, set, unset)
	}
}

func applyOne(m Modification, get func(string) string,
	set func(string, string) error, unset func(string) error) {
	switch m.Op {
	case OpSet:
		set(m.Name, m.Value)
	case OpUnset:
		unset(m.Name)
	case OpSetPath:
		set(m.Name, strings.Join(m.Values, m.separator()))
	case OpPrependPath:
		parts := splitPath(get(m.Name), m.separator())
		parts = Dedupe(append([]string{m.Value}, parts...))
		set(m.Name, strings.Join(parts, m.separator()))
	case OpAppendPath:
		parts := splitPath(get(m.Name), m.separator())
		parts = Dedupe(append(parts, m.Value))
		set(m.Name, strings.Join(parts, m.separator()))
	case OpRemovePath:
		cur := get(m.Name)
		if cur == "" {
			return
		}
		parts := splitPath(cur, m.separator())
		kept := parts[:0]
		for _, p := range parts {
			if filepath.Clean(p) != filepath.Clean(m.Value) {
				kept = append(kept, p)
			}
		}
		set(m.Name, strings.Join(kept, m.separator()))
	}
}

func splitPath(value, sep string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(value, sep) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetPath splits a path-list environment variable into its entries.
func GetPath(name string) []string {
	return splitPath(os.Getenv(name), string(os.PathListSeparator))
}

// Dedupe removes duplicate entries while preserving first-seen order.
func Dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		key := filepath.Clean(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// PreserveEnvironment snapshots the named variables and returns a
// restore function. Used to shield compiler identity variables from
// module-load side effects.
func PreserveEnvironment(names ...string) func() {
	type saved struct {
		value string
		ok    bool
	}
	snapshot := make(map[string]saved, len(names))
	for _, name := range names {
		v, ok := os.LookupEnv(name)
		snapshot[name] = saved{value: v, ok: ok}
	}
	return func() {
		for name, s := range snapshot {
			if s.ok {
				os.Setenv(name, s.value)
			} else {
				os.Unsetenv(name)
			}
		}
	}
}

// Validate warns about ledgers that are likely to surprise: the same
// variable assigned by Set more than once, or a Set following path
// accumulation on the same variable.
func (e *EnvironmentModifications) Validate(warn func(msg string)) {
	setCount := make(map[string]int)
	pathTouched := make(map[string]bool)
	for _, m := range e.mods {
		switch m.Op {
		case OpSet, OpSetPath:
			setCount[m.Name]++
			if pathTouched[m.Name] {
				warn("variable " + m.Name + " is overwritten after path accumulation")
			}
		case OpPrependPath, OpAppendPath:
			pathTouched[m.Name] = true
		}
	}
	for name, n := range setCount {
		if n > 1 {
			warn("variable " + name + " is set more than once; the last value wins")
		}
	}
}
