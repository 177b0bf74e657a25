package toolchain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forgebuild/forge/pkg/types"
)

// Invoker runs one compiler invocation. The shared-library conversion
// does not catch its failures; they surface to the caller unchanged.
type Invoker interface {
	Run(args ...string) error
}

// SharedLibOptions tune StaticToShared.
type SharedLibOptions struct {
	// Output is the shared library path. Defaults to the static
	// library's path with the platform DSO suffix.
	Output string

	// Args are extra compiler arguments appended after the
	// platform-specific flags.
	Args []string

	// Version and CompatVersion version the output filename and, on
	// Mach-O, the embedded version fields.
	Version       string
	CompatVersion string
}

// StaticToShared converts a static library (built with PIC) into a
// shared library using the conventions of the host object format:
// soname/whole-archive on ELF, install_name/force_load on Mach-O. When
// a version is supplied the output filename is versioned and symlinks
// from the unversioned (and compat-versioned) names point at it.
func StaticToShared(format types.ObjectFormat, cc Invoker, staticLib string, opts SharedLibOptions) error {
	sharedLib := opts.Output
	if sharedLib == "" {
		base := strings.TrimSuffix(staticLib, filepath.Ext(staticLib))
		sharedLib = base + "." + format.DsoSuffix()
	}

	compat := opts.CompatVersion
	if compat == "" {
		compat = opts.Version
	}

	var args []string
	switch format {
	case types.FormatMachO:
		installName := sharedLib
		if compat != "" {
			installName += "." + compat
		}
		args = []string{
			"-dynamiclib",
			"-install_name", installName,
			fmt.Sprintf("-Wl,-force_load,%s", staticLib),
		}
		if compat != "" {
			args = append(args, "-compatibility_version", compat)
		}
		if opts.Version != "" {
			args = append(args, "-current_version", opts.Version)
		}
	default:
		soname := filepath.Base(sharedLib)
		if compat != "" {
			soname += "." + compat
		}
		args = []string{
			"-shared",
			fmt.Sprintf("-Wl,-soname,%s", soname),
			"-Wl,--whole-archive",
			staticLib,
			"-Wl,--no-whole-archive",
		}
	}

	args = append(args, opts.Args...)

	sharedLibBase := sharedLib
	switch {
	case opts.Version != "":
		sharedLib += "." + opts.Version
	case compat != "":
		sharedLib += "." + compat
	}
	args = append(args, "-o", sharedLib)

	// Link the unversioned (and compat-versioned) names at the
	// versioned artifact.
	link := filepath.Base(sharedLib)
	if opts.Version != "" || compat != "" {
		if err := os.Symlink(link, sharedLibBase); err != nil {
			return err
		}
	}
	if opts.Version != "" && compat != "" && compat != opts.Version {
		if err := os.Symlink(link, sharedLibBase+"."+compat); err != nil {
			return err
		}
	}

	return cc.Run(args...)
}
