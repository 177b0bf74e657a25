package recipe

import (
	"io"

	"github.com/forgebuild/forge/pkg/envmod"
	"github.com/forgebuild/forge/pkg/toolchain"
	"github.com/forgebuild/forge/pkg/types"
)

// Toolkit is the explicit context object passed into a build action.
// Recipes use it instead of ambient injected names: every tool the
// action needs is a declared member.
type Toolkit struct {
	// PackageName, Prefix and Target identify the package under build.
	PackageName string
	Prefix      string
	Target      string

	// MakeJobs is the effective parallelism for make-like tools.
	MakeJobs int

	// DsoSuffix is the shared library suffix for the target format.
	DsoSuffix string

	// Build tools, pre-wired with the jobs cap and the build log.
	Make      *MakeExecutable
	GMake     *MakeExecutable
	Ninja     *MakeExecutable
	CTest     *MakeExecutable
	CMake     *Executable
	Meson     *Executable
	Configure *Executable

	// CC is the wrapped C compiler path, for direct invocations.
	CC string

	// Env is the ledger being assembled for this build; hooks may add
	// to it before it is applied.
	Env *envmod.EnvironmentModifications

	// BuildLog is where tool output is teed.
	BuildLog string

	logWriter io.Writer
}

// NewToolkit wires the standard build tools for one package.
func NewToolkit(pkgName, prefix, target string, jobs int, buildLog string, logWriter io.Writer) *Toolkit {
	tk := &Toolkit{
		PackageName: pkgName,
		Prefix:      prefix,
		Target:      target,
		MakeJobs:    jobs,
		DsoSuffix:   types.FormatForTarget(target).DsoSuffix(),
		Make:        NewMakeExecutable("make", jobs),
		GMake:       NewMakeExecutable("gmake", jobs),
		Ninja:       NewMakeExecutable("ninja", jobs),
		CTest:       NewMakeExecutable("ctest", jobs),
		CMake:       NewExecutable("cmake"),
		Meson:       NewExecutable("meson"),
		Env:         envmod.New(),
		BuildLog:    buildLog,
		logWriter:   logWriter,
	}
	// The configure script is looked up in the working directory, not
	// on PATH.
	tk.Configure = &Executable{Path: "./configure"}

	for _, e := range []*Executable{
		&tk.Make.Executable, &tk.GMake.Executable, &tk.Ninja.Executable,
		&tk.CTest.Executable, tk.CMake, tk.Meson, tk.Configure,
	} {
		e.Output = logWriter
	}
	return tk
}

// StaticToShared converts a static library in this package's prefix to
// a shared one using the package's wrapped compiler and target format.
func (tk *Toolkit) StaticToShared(staticLib string, opts toolchain.SharedLibOptions) error {
	cc := &Executable{Path: tk.CC, Output: tk.logWriter}
	return toolchain.StaticToShared(types.FormatForTarget(tk.Target), cc, staticLib, opts)
}
