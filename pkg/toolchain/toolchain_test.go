package toolchain_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgebuild/forge/pkg/toolchain"
	"github.com/forgebuild/forge/pkg/types"
)

func fakeCompiler(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func TestVerifyExecutables(t *testing.T) {
	cc := fakeCompiler(t, "gcc")
	tc := toolchain.NewGeneric(toolchain.Config{
		Name:      "gcc",
		Compilers: map[toolchain.Language]string{toolchain.C: cc},
	})
	assert.NoError(t, tc.VerifyExecutables())
}

func TestVerifyExecutablesMissing(t *testing.T) {
	tc := toolchain.NewGeneric(toolchain.Config{
		Name: "gcc",
		Compilers: map[toolchain.Language]string{
			toolchain.C: filepath.Join(t.TempDir(), "no-such-gcc"),
		},
	})
	assert.Error(t, tc.VerifyExecutables())
}

func TestVerifyExecutablesSkipsAbsentLanguages(t *testing.T) {
	// A toolchain without Fortran must not fail verification.
	cc := fakeCompiler(t, "clang")
	tc := toolchain.NewGeneric(toolchain.Config{
		Name:      "clang",
		Compilers: map[toolchain.Language]string{toolchain.C: cc},
	})
	assert.NoError(t, tc.VerifyExecutables())
	assert.Empty(t, tc.Compiler(toolchain.FC))
}

func TestOptimizationFlagsLongestPrefixWins(t *testing.T) {
	tc := toolchain.NewGeneric(toolchain.Config{
		Name: "gcc",
		OptFlags: map[string]string{
			"linux":               "-O2",
			"linux-x86_64-skylake": "-O2 -march=skylake",
		},
	})
	assert.Equal(t, "-O2 -march=skylake", tc.OptimizationFlags("linux-x86_64-skylake"))
	assert.Equal(t, "-O2", tc.OptimizationFlags("linux-x86_64"))
	assert.Equal(t, "", tc.OptimizationFlags("darwin-arm64"))
}

func TestDefaultWrapperNames(t *testing.T) {
	tc := toolchain.NewGeneric(toolchain.Config{Name: "gcc"})
	assert.Equal(t, "cc", tc.WrapperPath(toolchain.C))
	assert.Equal(t, "c++", tc.WrapperPath(toolchain.Cxx))
	assert.Equal(t, "f77", tc.WrapperPath(toolchain.F77))
	assert.Equal(t, "f90", tc.WrapperPath(toolchain.FC))
}

type recordingInvoker struct {
	args []string
	err  error
}

func (r *recordingInvoker) Run(args ...string) error {
	r.args = args
	return r.err
}

func TestStaticToSharedELF(t *testing.T) {
	dir := t.TempDir()
	static := filepath.Join(dir, "libfoo.a")
	inv := &recordingInvoker{}

	err := toolchain.StaticToShared(types.FormatELF, inv, static, toolchain.SharedLibOptions{})
	require.NoError(t, err)

	joined := filepath.Join(dir, "libfoo.so")
	assert.Contains(t, inv.args, "-shared")
	assert.Contains(t, inv.args, "-Wl,-soname,libfoo.so")
	assert.Contains(t, inv.args, "-Wl,--whole-archive")
	assert.Contains(t, inv.args, static)
	assert.Equal(t, joined, inv.args[len(inv.args)-1])
}

func TestStaticToSharedMachO(t *testing.T) {
	dir := t.TempDir()
	static := filepath.Join(dir, "libfoo.a")
	inv := &recordingInvoker{}

	err := toolchain.StaticToShared(types.FormatMachO, inv, static, toolchain.SharedLibOptions{})
	require.NoError(t, err)

	assert.Contains(t, inv.args, "-dynamiclib")
	assert.Contains(t, inv.args, "-install_name")
	assert.Contains(t, inv.args, filepath.Join(dir, "libfoo.dylib"))
}

func TestStaticToSharedVersionedSymlinks(t *testing.T) {
	dir := t.TempDir()
	static := filepath.Join(dir, "libfoo.a")
	inv := &recordingInvoker{}

	err := toolchain.StaticToShared(types.FormatELF, inv, static, toolchain.SharedLibOptions{
		Version:       "2.1.0",
		CompatVersion: "2",
	})
	require.NoError(t, err)

	// Output is versioned; unversioned and compat names link at it.
	assert.Equal(t, filepath.Join(dir, "libfoo.so.2.1.0"), inv.args[len(inv.args)-1])

	link, err := os.Readlink(filepath.Join(dir, "libfoo.so"))
	require.NoError(t, err)
	assert.Equal(t, "libfoo.so.2.1.0", link)

	link, err = os.Readlink(filepath.Join(dir, "libfoo.so.2"))
	require.NoError(t, err)
	assert.Equal(t, "libfoo.so.2.1.0", link)

	assert.Contains(t, inv.args, "-Wl,-soname,libfoo.so.2")
}

func TestStaticToSharedMachOVersions(t *testing.T) {
	dir := t.TempDir()
	static := filepath.Join(dir, "libbar.a")
	inv := &recordingInvoker{}

	err := toolchain.StaticToShared(types.FormatMachO, inv, static, toolchain.SharedLibOptions{
		Version:       "3.0.0",
		CompatVersion: "3",
	})
	require.NoError(t, err)

	assert.Contains(t, inv.args, "-compatibility_version")
	assert.Contains(t, inv.args, "3")
	assert.Contains(t, inv.args, "-current_version")
	assert.Contains(t, inv.args, "3.0.0")
}

func TestStaticToSharedPropagatesInvokerError(t *testing.T) {
	dir := t.TempDir()
	static := filepath.Join(dir, "libfoo.a")
	inv := &recordingInvoker{err: assert.AnError}

	err := toolchain.StaticToShared(types.FormatELF, inv, static, toolchain.SharedLibOptions{})
	assert.ErrorIs(t, err, assert.AnError)
}
