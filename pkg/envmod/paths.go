package envmod

import "path/filepath"

// systemPrefixes are install roots that routinely shadow everything
// else when they leak into search paths.
var systemPrefixes = []string{"/", "/usr", "/usr/local"}

var systemSuffixes = []string{"", "bin", "bin64", "include", "lib", "lib64"}

// SystemDirs returns the canonical system directories, expanded with
// the conventional bin/include/lib suffixes.
func SystemDirs() []string {
	var dirs []string
	for _, p := range systemPrefixes {
		for _, s := range systemSuffixes {
			dirs = append(dirs, filepath.Join(p, s))
		}
	}
	return Dedupe(dirs)
}

// IsSystemPath reports whether a path is one of the canonical system
// directories.
func IsSystemPath(path string) bool {
	if path == "" {
		return false
	}
	clean := filepath.Clean(path)
	for _, d := range SystemDirs() {
		if clean == d {
			return true
		}
	}
	return false
}

// FilterSystemPaths removes canonical system directories from a list,
// preserving order. System paths often contain hundreds of unrelated
// packages and would overshadow per-package install prefixes.
func FilterSystemPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !IsSystemPath(p) {
			out = append(out, p)
		}
	}
	return out
}
