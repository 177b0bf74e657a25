// Package types provides core types and configuration for Forge
package types

import (
	"fmt"
	"runtime"
	"strings"
)

// DepType tags a dependency edge and controls which environment
// contribution hooks apply to it.
type DepType string

const (
	DepBuild DepType = "build"
	DepLink  DepType = "link"
	DepRun   DepType = "run"
	DepTest  DepType = "test"
)

// DepTypeSet is a set of dependency edge tags.
type DepTypeSet map[DepType]struct{}

// DepTypes builds a set from the given edge tags.
func DepTypes(types ...DepType) DepTypeSet {
	s := make(DepTypeSet, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

// Has reports whether the tag is in the set.
func (s DepTypeSet) Has(t DepType) bool {
	_, ok := s[t]
	return ok
}

// ContainsAny reports whether any of the given tags is in the set.
func (s DepTypeSet) ContainsAny(types []DepType) bool {
	for _, t := range types {
		if s.Has(t) {
			return true
		}
	}
	return false
}

// SetupContext selects which environment is being synthesized.
type SetupContext string

const (
	ContextBuild SetupContext = "build"
	ContextRun   SetupContext = "run"
	ContextTest  SetupContext = "test"
)

// SharedLinking selects how shared libraries locate their dependencies.
type SharedLinking string

const (
	LinkingRpath   SharedLinking = "rpath"
	LinkingRunpath SharedLinking = "runpath"
)

// Settings is the small set of configuration options consumed by the
// environment synthesizer.
type Settings struct {
	// BuildLanguage forces the locale inside builds so tool output is
	// parseable (e.g. "C" or "en_US.UTF-8").
	BuildLanguage string `json:"buildLanguage,omitempty" yaml:"buildLanguage,omitempty"`

	// SharedLinking chooses between RPATH and RUNPATH dtag semantics.
	SharedLinking SharedLinking `json:"sharedLinking,omitempty" yaml:"sharedLinking,omitempty"`

	// BuildJobs caps build parallelism. Zero means "one job per CPU".
	BuildJobs int `json:"buildJobs,omitempty" yaml:"buildJobs,omitempty"`

	// CCache routes compiler invocations through ccache.
	CCache bool `json:"ccache,omitempty" yaml:"ccache,omitempty"`

	// Debug enables debug tracing variables in the build environment.
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`
}

// EffectiveJobs clamps the configured job count to the host CPU count.
// A package that disallows parallel builds always gets one job.
func (s Settings) EffectiveJobs(parallel bool) int {
	if !parallel {
		return 1
	}
	jobs := s.BuildJobs
	if jobs <= 0 || jobs > runtime.NumCPU() {
		jobs = runtime.NumCPU()
	}
	return jobs
}

// Validate checks option values that have a closed domain.
func (s Settings) Validate() error {
	switch s.SharedLinking {
	case "", LinkingRpath, LinkingRunpath:
	default:
		return fmt.Errorf("invalid sharedLinking %q: must be %q or %q",
			s.SharedLinking, LinkingRpath, LinkingRunpath)
	}
	if s.BuildJobs < 0 {
		return fmt.Errorf("buildJobs must not be negative, got %d", s.BuildJobs)
	}
	return nil
}

// Outcome is the result classification of one isolated build action.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeStopped   Outcome = "stopped"
	OutcomeFailed    Outcome = "failed"
)

// Result is what the isolation runner hands back to its caller.
// Stopped is a control directive, not a failure; the error (if any)
// travels separately.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message,omitempty"`
}

// ObjectFormat is the host object-file family, which decides shared
// library linker conventions.
type ObjectFormat string

const (
	FormatELF   ObjectFormat = "elf"
	FormatMachO ObjectFormat = "macho"
)

// FormatForTarget maps an architecture tag like "linux-x86_64" or
// "darwin-arm64" onto its object format family. Cray machines are
// ELF-class.
func FormatForTarget(target string) ObjectFormat {
	if strings.Contains(target, "darwin") {
		return FormatMachO
	}
	return FormatELF
}

// DsoSuffix returns the shared library filename suffix for a format.
func (f ObjectFormat) DsoSuffix() string {
	if f == FormatMachO {
		return "dylib"
	}
	return "so"
}

// Platform describes the host machine class the build runs on.
type Platform struct {
	Name string `json:"name" yaml:"name"` // "linux", "darwin", "cray"
	OS   string `json:"os,omitempty" yaml:"os,omitempty"`
}

// IsCray reports whether this is a Cray-class machine.
func (p Platform) IsCray() bool { return p.Name == "cray" }

// IsCNL reports whether the Cray machine runs Compute Node Linux, which
// needs the vendor variables the sanitizer would otherwise clear.
func (p Platform) IsCNL() bool {
	return strings.HasPrefix(strings.ToLower(p.OS), "cnl")
}

// HostPlatform returns the platform of the current process.
func HostPlatform() Platform {
	return Platform{Name: runtime.GOOS}
}
