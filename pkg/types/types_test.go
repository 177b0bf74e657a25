package types_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forgebuild/forge/pkg/types"
)

func TestEffectiveJobsClamp(t *testing.T) {
	s := types.Settings{BuildJobs: 1 << 20}
	assert.Equal(t, runtime.NumCPU(), s.EffectiveJobs(true))

	s.BuildJobs = 1
	assert.Equal(t, 1, s.EffectiveJobs(true))

	// A package that disallows parallel builds always gets one job.
	s.BuildJobs = 8
	assert.Equal(t, 1, s.EffectiveJobs(false))

	s.BuildJobs = 0
	assert.Equal(t, runtime.NumCPU(), s.EffectiveJobs(true))
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, types.Settings{}.Validate())
	assert.NoError(t, types.Settings{SharedLinking: types.LinkingRunpath}.Validate())
	assert.Error(t, types.Settings{SharedLinking: "both"}.Validate())
	assert.Error(t, types.Settings{BuildJobs: -1}.Validate())
}

func TestFormatForTarget(t *testing.T) {
	assert.Equal(t, types.FormatELF, types.FormatForTarget("linux-x86_64"))
	assert.Equal(t, types.FormatELF, types.FormatForTarget("cray-cnl7-haswell"))
	assert.Equal(t, types.FormatMachO, types.FormatForTarget("darwin-arm64"))

	assert.Equal(t, "so", types.FormatELF.DsoSuffix())
	assert.Equal(t, "dylib", types.FormatMachO.DsoSuffix())
}

func TestDepTypeSet(t *testing.T) {
	s := types.DepTypes(types.DepBuild, types.DepLink)
	assert.True(t, s.Has(types.DepBuild))
	assert.False(t, s.Has(types.DepRun))
	assert.True(t, s.ContainsAny([]types.DepType{types.DepRun, types.DepLink}))
	assert.False(t, s.ContainsAny([]types.DepType{types.DepRun, types.DepTest}))
}

func TestPlatformClassification(t *testing.T) {
	assert.True(t, types.Platform{Name: "cray"}.IsCray())
	assert.True(t, types.Platform{Name: "cray", OS: "CNL7"}.IsCNL())
	assert.False(t, types.Platform{Name: "linux"}.IsCray())
}
