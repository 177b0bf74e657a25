package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgebuild/forge/pkg/config"
	"github.com/forgebuild/forge/pkg/types"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultsWhenNoFile(t *testing.T) {
	settings, err := config.NewManager("").Load()
	require.NoError(t, err)
	assert.Equal(t, types.LinkingRpath, settings.SharedLinking)
	assert.Equal(t, runtime.NumCPU(), settings.BuildJobs)
	assert.False(t, settings.CCache)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "forge.yaml", `
sharedLinking: runpath
buildJobs: 2
ccache: true
buildLanguage: C
`)
	settings, err := config.NewManager(path).Load()
	require.NoError(t, err)
	assert.Equal(t, types.LinkingRunpath, settings.SharedLinking)
	assert.Equal(t, 2, settings.BuildJobs)
	assert.True(t, settings.CCache)
	assert.Equal(t, "C", settings.BuildLanguage)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "forge.json", `{"sharedLinking": "rpath", "debug": true}`)
	settings, err := config.NewManager(path).Load()
	require.NoError(t, err)
	assert.Equal(t, types.LinkingRpath, settings.SharedLinking)
	assert.True(t, settings.Debug)
}

func TestInvalidSharedLinkingRejected(t *testing.T) {
	path := writeConfig(t, "forge.yaml", `sharedLinking: both`)
	_, err := config.NewManager(path).Load()
	assert.Error(t, err)
}

func TestMissingFileIsAnError(t *testing.T) {
	_, err := config.NewManager(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	assert.Error(t, err)
}

func TestZeroJobsFallsBackToCPUCount(t *testing.T) {
	path := writeConfig(t, "forge.yaml", `buildJobs: 0`)
	settings, err := config.NewManager(path).Load()
	require.NoError(t, err)
	assert.Equal(t, runtime.NumCPU(), settings.BuildJobs)
}
