package envmod_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgebuild/forge/pkg/envmod"
)

func TestLastSetWins(t *testing.T) {
	env := envmod.New()
	env.Set("FOO", "first")
	env.Set("FOO", "second")

	got := map[string]string{}
	env.ApplyTo(got)
	assert.Equal(t, "second", got["FOO"])
}

func TestUnsetAfterSet(t *testing.T) {
	env := envmod.New()
	env.Set("FOO", "value")
	env.Unset("FOO")

	got := map[string]string{"FOO": "stale"}
	env.ApplyTo(got)
	_, ok := got["FOO"]
	assert.False(t, ok)
	assert.True(t, env.IsUnset("FOO"))
}

func TestPrependPathOrder(t *testing.T) {
	// Directories end up in reverse-application order at the front.
	env := envmod.New()
	env.PrependPath("PATH", "/a")
	env.PrependPath("PATH", "/b")

	got := map[string]string{"PATH": "/usr/bin"}
	env.ApplyTo(got)
	assert.Equal(t, "/b:/a:/usr/bin", got["PATH"])
}

func TestAppendPath(t *testing.T) {
	env := envmod.New()
	env.AppendPath("PKG_CONFIG_PATH", "/x/lib/pkgconfig")
	env.AppendPath("PKG_CONFIG_PATH", "/y/lib/pkgconfig")

	got := map[string]string{}
	env.ApplyTo(got)
	assert.Equal(t, "/x/lib/pkgconfig:/y/lib/pkgconfig", got["PKG_CONFIG_PATH"])
}

func TestRemovePath(t *testing.T) {
	env := envmod.New()
	env.RemovePath("PATH", "/opt/macports/bin")

	got := map[string]string{"PATH": "/usr/bin:/opt/macports/bin:/bin"}
	env.ApplyTo(got)
	assert.Equal(t, "/usr/bin:/bin", got["PATH"])
}

func TestRemovePathOnUnsetVariableIsNoop(t *testing.T) {
	env := envmod.New()
	env.RemovePath("NOPE", "/a")

	got := map[string]string{}
	env.ApplyTo(got)
	_, ok := got["NOPE"]
	assert.False(t, ok)
}

func TestIdempotentReplay(t *testing.T) {
	env := envmod.New()
	env.Set("CC", "/wrap/cc")
	env.Unset("LD_LIBRARY_PATH")
	env.PrependPath("PATH", "/dep/bin")
	env.AppendPath("PATH", "/tools/bin")
	env.SetPath("CMAKE_PREFIX_PATH", []string{"/dep", "/other"})

	baseline := map[string]string{
		"PATH":            "/usr/bin",
		"LD_LIBRARY_PATH": "/usr/lib",
	}
	once := map[string]string{}
	for k, v := range baseline {
		once[k] = v
	}
	env.ApplyTo(once)

	twice := map[string]string{}
	for k, v := range baseline {
		twice[k] = v
	}
	env.ApplyTo(twice)
	env.ApplyTo(twice)

	assert.Equal(t, once, twice)
}

func TestExtendPreservesOrder(t *testing.T) {
	first := envmod.New()
	first.Set("X", "from-first")
	second := envmod.New()
	second.Set("X", "from-second")

	combined := envmod.New()
	combined.Extend(first)
	combined.Extend(second)

	got := map[string]string{}
	combined.ApplyTo(got)
	assert.Equal(t, "from-second", got["X"])
	assert.Equal(t, 2, combined.Len())
}

func TestApplyMutatesProcessEnvironment(t *testing.T) {
	t.Setenv("FORGE_TEST_APPLY", "before")

	env := envmod.New()
	env.Set("FORGE_TEST_APPLY", "after")
	env.Apply()

	assert.Equal(t, "after", os.Getenv("FORGE_TEST_APPLY"))
}

func TestDedupeFirstSeenOrder(t *testing.T) {
	in := []string{"/a/lib", "/b/lib", "/a/lib", "/c/lib", "/b/lib"}
	assert.Equal(t, []string{"/a/lib", "/b/lib", "/c/lib"}, envmod.Dedupe(in))
}

func TestFilterSystemPaths(t *testing.T) {
	in := []string{"/", "/usr", "/usr/local", "/opt/forge/zlib/lib", "/usr/lib", "/home/u/lib"}
	got := envmod.FilterSystemPaths(in)
	assert.Equal(t, []string{"/opt/forge/zlib/lib", "/home/u/lib"}, got)
}

func TestIsSystemPath(t *testing.T) {
	assert.True(t, envmod.IsSystemPath("/usr"))
	assert.True(t, envmod.IsSystemPath("/usr/lib64"))
	assert.True(t, envmod.IsSystemPath("/usr/local/bin"))
	assert.False(t, envmod.IsSystemPath("/opt/forge"))
	assert.False(t, envmod.IsSystemPath(""))
}

func TestPreserveEnvironment(t *testing.T) {
	t.Setenv("CC", "/usr/bin/gcc")
	os.Unsetenv("FORGE_TEST_UNSET_VAR")

	restore := envmod.PreserveEnvironment("CC", "FORGE_TEST_UNSET_VAR")
	os.Setenv("CC", "/module/clobbered/cc")
	os.Setenv("FORGE_TEST_UNSET_VAR", "sneaky")
	restore()

	assert.Equal(t, "/usr/bin/gcc", os.Getenv("CC"))
	_, ok := os.LookupEnv("FORGE_TEST_UNSET_VAR")
	assert.False(t, ok)
}

func TestFromConfigDeterministic(t *testing.T) {
	cfg := envmod.Config{
		Set:         map[string]string{"B": "2", "A": "1"},
		Unset:       []string{"NOISE"},
		PrependPath: map[string]string{"PATH": "/tc/bin"},
	}
	env := envmod.FromConfig(cfg)
	require.Equal(t, 4, env.Len())

	mods := env.Modifications()
	assert.Equal(t, "A", mods[0].Name)
	assert.Equal(t, "B", mods[1].Name)
	assert.Equal(t, envmod.OpUnset, mods[2].Op)
	assert.Equal(t, envmod.OpPrependPath, mods[3].Op)
}

func TestValidateWarnsOnDoubleSet(t *testing.T) {
	env := envmod.New()
	env.Set("FOO", "a")
	env.Set("FOO", "b")

	var warnings []string
	env.Validate(func(msg string) { warnings = append(warnings, msg) })
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "FOO")
}
