// Package config loads Forge settings from JSON or YAML files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/forgebuild/forge/pkg/types"
)

// Manager handles loading and validation of build settings.
type Manager struct {
	path string
}

// NewManager creates a config manager for one settings file. An empty
// path means defaults only.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Defaults returns the baseline settings: rpath linking, one job per
// CPU, ccache off.
func Defaults() types.Settings {
	return types.Settings{
		SharedLinking: types.LinkingRpath,
		BuildJobs:     runtime.NumCPU(),
	}
}

// Load reads the settings file, fills in defaults, and validates. The
// format is chosen by file extension: .json, or YAML otherwise.
func (m *Manager) Load() (types.Settings, error) {
	settings := Defaults()
	if m.path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		return settings, fmt.Errorf("read config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(m.path), ".json") {
		err = json.Unmarshal(data, &settings)
	} else {
		err = yaml.Unmarshal(data, &settings)
	}
	if err != nil {
		return settings, fmt.Errorf("parse config %s: %w", m.path, err)
	}

	if settings.SharedLinking == "" {
		settings.SharedLinking = types.LinkingRpath
	}
	if settings.BuildJobs <= 0 {
		settings.BuildJobs = runtime.NumCPU()
	}

	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("config %s: %w", m.path, err)
	}
	return settings, nil
}
