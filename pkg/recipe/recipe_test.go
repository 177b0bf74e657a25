package recipe_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgebuild/forge/pkg/envmod"
	"github.com/forgebuild/forge/pkg/recipe"
)

type pkgconfigRecipe struct {
	recipe.Base
}

func (pkgconfigRecipe) SetupDependentBuildEnvironment(env *envmod.EnvironmentModifications, dependent recipe.PackageRef) error {
	env.Set("PKG_CONFIG_DISABLE_UNINSTALLED", "1")
	return nil
}

func TestRegistryLookup(t *testing.T) {
	recipe.Register("test-pkgconfig", pkgconfigRecipe{})

	r := recipe.Lookup("test-pkgconfig")
	_, isBase := r.(recipe.Base)
	assert.False(t, isBase)
	assert.Contains(t, recipe.Names(), "test-pkgconfig")
}

func TestLookupUnknownFallsBackToBase(t *testing.T) {
	r := recipe.Lookup("never-registered")
	_, isBase := r.(recipe.Base)
	assert.True(t, isBase)
}

func TestBaseFlagHandlerInjectsEverything(t *testing.T) {
	var b recipe.Base
	inject, env, buildSystem := b.FlagHandler(recipe.CFlags, []string{"-O2", "-fPIC"})
	assert.Equal(t, []string{"-O2", "-fPIC"}, inject)
	assert.Empty(t, env)
	assert.Empty(t, buildSystem)
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestExecutableRunReportsProcessError(t *testing.T) {
	path := writeScript(t, t.TempDir(), "fail.sh", "exit 3")

	e := &recipe.Executable{Path: path}
	err := e.Run()
	require.Error(t, err)

	perr, ok := err.(*recipe.ProcessError)
	require.True(t, ok)
	assert.Equal(t, 3, perr.ExitCode)
	assert.Equal(t, path, perr.Cmd)
}

func TestExecutableTeesOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "echo.sh", "echo hello-from-tool")
	logPath := filepath.Join(dir, "build.log")
	logFile, err := os.Create(logPath)
	require.NoError(t, err)
	defer logFile.Close()

	e := &recipe.Executable{Path: path, Output: logFile}
	require.NoError(t, e.Run())
	require.NoError(t, logFile.Sync())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello-from-tool")
}

func TestMakeExecutableAddsJobsFlag(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "args.txt")
	path := writeScript(t, dir, "make.sh", `echo "$@" > `+out)

	m := &recipe.MakeExecutable{Executable: recipe.Executable{Path: path}, Jobs: 4}
	require.NoError(t, m.Run("install"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "-j4 install", string(data[:len(data)-1]))
}

func TestMakeExecutableSerialOverride(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "args.txt")
	path := writeScript(t, dir, "make.sh", `echo "$@" > `+out)

	m := &recipe.MakeExecutable{Executable: recipe.Executable{Path: path}, Jobs: 4}
	require.NoError(t, m.RunWith(false, "install"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "install", string(data[:len(data)-1]))
}

func TestMakeExecutableKillSwitch(t *testing.T) {
	t.Setenv(recipe.NoParallelMakeEnv, "true")

	dir := t.TempDir()
	out := filepath.Join(dir, "args.txt")
	path := writeScript(t, dir, "make.sh", `echo "$@" > `+out)

	m := &recipe.MakeExecutable{Executable: recipe.Executable{Path: path}, Jobs: 8}
	require.NoError(t, m.Run("all"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "all", string(data[:len(data)-1]))
}

func TestNewToolkitWiresTools(t *testing.T) {
	tk := recipe.NewToolkit("zlib", "/opt/forge/zlib", "linux-x86_64", 4, "", nil)
	assert.Equal(t, 4, tk.Make.Jobs)
	assert.Equal(t, "so", tk.DsoSuffix)
	assert.Equal(t, "./configure", tk.Configure.Path)
	assert.NotNil(t, tk.Env)

	tk = recipe.NewToolkit("zlib", "/opt/forge/zlib", "darwin-arm64", 1, "", nil)
	assert.Equal(t, "dylib", tk.DsoSuffix)
}
