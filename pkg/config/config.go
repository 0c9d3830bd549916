// Package config handles configuration loading and management
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/logger"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/mesh"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

// ConfigVersion is the config schema version this build understands
const ConfigVersion = "1.0"

// DefaultConfigNames lists the file names probed by FindConfig, in order
var DefaultConfigNames = []string{
	"phasecalc.config.json",
	"phasecalc.config.yaml",
	"phasecalc.config.yml",
}

// Manager handles configuration operations
type Manager struct {
	logger logger.Logger
}

// NewManager creates a new configuration manager
func NewManager(log logger.Logger) *Manager {
	return &Manager{logger: log}
}

// FindConfig locates a config file in dir by probing the default names.
// Returns an error naming the candidates when none exists.
func FindConfig(dir string) (string, error) {
	for _, name := range DefaultConfigNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no config file found in %s (looked for %s)", dir, strings.Join(DefaultConfigNames, ", "))
}

// LoadConfig loads and validates configuration from a file
func (m *Manager) LoadConfig(path string) (*types.ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg types.ProjectConfig

	// Try JSON first
	if err := json.Unmarshal(data, &cfg); err == nil {
		return m.validateConfig(&cfg)
	}

	// Try YAML
	cfg = types.ProjectConfig{}
	if err := yaml.Unmarshal(data, &cfg); err == nil {
		return m.validateConfig(&cfg)
	}

	return nil, fmt.Errorf("failed to parse config as JSON or YAML")
}

// SaveConfig writes configuration to a file. The extension picks the
// format: .yaml/.yml produce YAML, everything else JSON.
func (m *Manager) SaveConfig(config *types.ProjectConfig, path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.logger.Debug("Wrote config", logger.WithField("path", path))
	return nil
}

// ValidateConfig validates a configuration
func (m *Manager) ValidateConfig(config *types.ProjectConfig) error {
	// Check version
	if config.Version != ConfigVersion {
		return fmt.Errorf("unsupported config version: %s", config.Version)
	}

	// Check elements
	seen := make(map[string]bool)
	for i, element := range config.Elements {
		if element == "" {
			return fmt.Errorf("element %d: empty symbol", i)
		}
		if seen[element] {
			return fmt.Errorf("duplicate element: %s", element)
		}
		seen[element] = true
	}

	// Check engine mode
	validModes := map[types.EngineMode]bool{
		"":                        true,
		types.EngineModeGateway:   true,
		types.EngineModeSimulated: true,
	}
	if !validModes[config.Engine.Mode] {
		return fmt.Errorf("invalid engine mode: %s", config.Engine.Mode)
	}

	// Validate the sweep: every constant concentration must yield a
	// well-formed composition mesh
	if len(config.ConstantConcentrations) == 0 {
		return fmt.Errorf("no constant concentrations defined")
	}
	for _, constant := range config.ConstantConcentrations {
		spec := mesh.Spec{
			Elements:              config.Elements,
			Points:                config.GetGridPoints(),
			ChangingIndices:       config.ChangingElements,
			ConstantIndices:       config.ConstantElements,
			ConstantConcentration: constant,
		}
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("constant concentration %v: %w", constant, err)
		}
	}

	return m.validateScalars(config)
}

// GetDefaultConfig returns the canonical five-element sweep configuration
func (m *Manager) GetDefaultConfig() *types.ProjectConfig {
	enabled := true

	return &types.ProjectConfig{
		Version:  ConfigVersion,
		Elements: []string{"Al", "Cr", "Co", "Fe", "Ni"},
		ConstantConcentrations: []float64{
			0.075, 0.1, 0.125, 0.15, 0.175, 0.2, 0.225, 0.25, 0.275, 0.3,
		},
		ChangingElements: []int{0, 1},
		ConstantElements: []int{2, 3, 4},
		Engine: types.EngineConfig{
			Mode: types.EngineModeGateway,
		},
		Notifications: &types.NotificationConfig{
			Enabled: &enabled,
		},
	}
}

// Private methods

func (m *Manager) validateConfig(cfg *types.ProjectConfig) (*types.ProjectConfig, error) {
	if err := m.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (m *Manager) validateScalars(config *types.ProjectConfig) error {
	if r := config.TemperatureRange; r != nil {
		if r.Min <= 0 {
			return fmt.Errorf("temperature range: min must be positive kelvin, got %v", r.Min)
		}
		if r.Max <= r.Min {
			return fmt.Errorf("temperature range: max %v must exceed min %v", r.Max, r.Min)
		}
	}
	if s := config.TemperatureSteps; s != nil && *s <= 0 {
		return fmt.Errorf("temperature steps must be positive, got %d", *s)
	}
	if t := config.ReferenceTemperature; t != nil && *t <= 0 {
		return fmt.Errorf("reference temperature must be positive kelvin, got %v", *t)
	}
	if f := config.AxisStepFactor; f != nil && *f <= 0 {
		return fmt.Errorf("axis step factor must be positive, got %v", *f)
	}
	if minutes := config.TimeoutMinutes; minutes != nil && *minutes <= 0 {
		return fmt.Errorf("timeout must be positive, got %d minutes", *minutes)
	}
	return nil
}
