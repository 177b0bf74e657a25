package buildenv

import "github.com/forgebuild/forge/pkg/recipe"

// Environment variables written by the synthesizer. All are outputs
// consumed by the compiler wrappers and by build recipes, never inputs.
const (
	// Shadow variables holding the real compiler paths behind the
	// wrappers.
	EnvCC  = "FORGE_CC"
	EnvCXX = "FORGE_CXX"
	EnvF77 = "FORGE_F77"
	EnvFC  = "FORGE_FC"

	// Linker control.
	EnvLinkerArg    = "FORGE_LINKER_ARG"
	EnvDtagsToAdd   = "FORGE_DTAGS_TO_ADD"
	EnvDtagsToStrip = "FORGE_DTAGS_TO_STRIP"

	// Directory lists, colon-joined.
	EnvIncludeDirs = "FORGE_INCLUDE_DIRS"
	EnvLinkDirs    = "FORGE_LINK_DIRS"
	EnvRpathDirs   = "FORGE_RPATH_DIRS"

	EnvTargetArgs             = "FORGE_TARGET_ARGS"
	EnvCompilerSpec           = "FORGE_COMPILER_SPEC"
	EnvCompilerExtraRpaths    = "FORGE_COMPILER_EXTRA_RPATHS"
	EnvCompilerImplicitRpaths = "FORGE_COMPILER_IMPLICIT_RPATHS"
	EnvSystemDirs             = "FORGE_SYSTEM_DIRS"

	// Identity and tracing.
	EnvShortSpec   = "FORGE_SHORT_SPEC"
	EnvDebug       = "FORGE_DEBUG"
	EnvDebugLogID  = "FORGE_DEBUG_LOG_ID"
	EnvDebugLogDir = "FORGE_DEBUG_LOG_DIR"

	EnvCCacheBinary = "FORGE_CCACHE_BINARY"
)

// compilerEnvNames maps a front end to its classic environment variable
// and the shadow variable holding the real compiler path.
var compilerEnvNames = map[string][2]string{
	"cc":  {"CC", EnvCC},
	"cxx": {"CXX", EnvCXX},
	"f77": {"F77", EnvF77},
	"fc":  {"FC", EnvFC},
}

// rpathArgEnvNames maps a front end to the variable carrying its
// RPATH-argument prefix for the wrapper.
var rpathArgEnvNames = map[string]string{
	"cc":  "FORGE_CC_RPATH_ARG",
	"cxx": "FORGE_CXX_RPATH_ARG",
	"f77": "FORGE_F77_RPATH_ARG",
	"fc":  "FORGE_FC_RPATH_ARG",
}

// InjectedFlagVar is the wrapper-injection variable for one flag
// category, e.g. FORGE_CFLAGS.
func InjectedFlagVar(cat recipe.FlagCategory) string {
	switch cat {
	case recipe.CFlags:
		return "FORGE_CFLAGS"
	case recipe.CxxFlags:
		return "FORGE_CXXFLAGS"
	case recipe.FFlags:
		return "FORGE_FFLAGS"
	case recipe.FCFlags:
		return "FORGE_FCFLAGS"
	case recipe.CppFlags:
		return "FORGE_CPPFLAGS"
	case recipe.LdFlags:
		return "FORGE_LDFLAGS"
	default:
		return "FORGE_LDLIBS"
	}
}

// LiteralFlagVar is the classic build-system variable for one flag
// category, e.g. CFLAGS.
func LiteralFlagVar(cat recipe.FlagCategory) string {
	switch cat {
	case recipe.CFlags:
		return "CFLAGS"
	case recipe.CxxFlags:
		return "CXXFLAGS"
	case recipe.FFlags:
		return "FFLAGS"
	case recipe.FCFlags:
		return "FCFLAGS"
	case recipe.CppFlags:
		return "CPPFLAGS"
	case recipe.LdFlags:
		return "LDFLAGS"
	default:
		return "LDLIBS"
	}
}
