package buildenv

import (
	"os"
	"strings"

	"github.com/forgebuild/forge/pkg/envmod"
	"github.com/forgebuild/forge/pkg/types"
)

// Variables that leak host dynamic-linker state into builds.
var linkerSearchVars = []string{
	"LD_LIBRARY_PATH",
	"LD_RUN_PATH",
	"LD_PRELOAD",
	"DYLD_LIBRARY_PATH",
	"DYLD_FALLBACK_LIBRARY_PATH",
	"DYLD_INSERT_LIBRARIES",
	"LIBRARY_PATH",
	"CPATH",
}

// Classic build-system variables that would override the wrappers.
var buildSystemVars = []string{
	"CC", "CFLAGS", "CPP", "CPPFLAGS",
	"CXX", "CCC", "CXXFLAGS", "CXXCPP",
	"F77", "FFLAGS", "FLIBS",
	"FC", "FCFLAGS", "F90",
	"LDFLAGS", "LIBS", "LDLIBS",
}

// MPI provider variables that pin builds to a host MPI.
var mpiVars = []string{"MPICC", "MPICXX", "MPIFC", "MPIF77", "MPIF90"}

// CleanEnvironment strips host toolchain and library state from the
// live process environment. It runs in the isolated build child only,
// before any variable is synthesized, and applies immediately so later
// module-load side effects are not clobbered by the cleanup. There is
// no rollback.
func CleanEnvironment(platform types.Platform, settings types.Settings) {
	env := envmod.New()

	for _, v := range linkerSearchVars {
		env.Unset(v)
	}

	// Cray vendor variables break the wrappers on login-node builds;
	// Compute Node Linux needs them.
	if platform.IsCray() && !platform.IsCNL() {
		env.Unset("CRAY_LD_LIBRARY_PATH")
		for _, kv := range os.Environ() {
			eq := strings.IndexByte(kv, '=')
			if eq < 0 {
				continue
			}
			if name := kv[:eq]; strings.Contains(name, "PKGCONF") {
				env.Unset(name)
			}
		}
	}

	for _, v := range buildSystemVars {
		env.Unset(v)
	}
	for _, v := range mpiVars {
		env.Unset(v)
	}

	if settings.BuildLanguage != "" {
		env.Set("LC_ALL", settings.BuildLanguage)
	}

	// Macports toolchains on PATH conflict with the wrapped linker.
	for _, p := range envmod.GetPath("PATH") {
		if strings.Contains(p, "/macports/") {
			env.RemovePath("PATH", p)
		}
	}

	env.Apply()
}
