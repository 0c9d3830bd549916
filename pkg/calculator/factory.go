package calculator

import (
	"time"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/internal/thermocalc"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/config"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/interfaces"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/logger"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/notifier"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/process"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/results"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

// DependencyFactory creates calculator dependencies from project config
type DependencyFactory struct {
	config *types.ProjectConfig
	logger logger.Logger
}

// NewDependencyFactory creates a new dependency factory
func NewDependencyFactory(cfg *types.ProjectConfig, log logger.Logger) *DependencyFactory {
	return &DependencyFactory{
		config: cfg,
		logger: log,
	}
}

// CreateDefaults creates the default production dependencies
func (f *DependencyFactory) CreateDefaults() interfaces.CalculatorDependencies {
	outputDir := f.config.GetOutputDir()

	return interfaces.CalculatorDependencies{
		Engine:      f.createEngine(),
		ResultStore: results.NewStore(outputDir, f.logger),
		Notifier: notifier.New(notifier.Config{
			Enabled: f.config.IsNotificationsEnabled(),
			Sound:   f.config.IsSoundEnabled(),
		}, f.logger),
		RunLock:        results.NewRunLock(outputDir, f.logger),
		ConfigManager:  config.NewManager(f.logger),
		ProcessManager: process.NewManager(f.logger),
	}
}

// CreateWithOverrides creates dependencies with specific overrides.
// Nil fields fall back to the defaults.
func (f *DependencyFactory) CreateWithOverrides(overrides interfaces.CalculatorDependencies) interfaces.CalculatorDependencies {
	deps := f.CreateDefaults()

	if overrides.Engine != nil {
		deps.Engine = overrides.Engine
	}
	if overrides.ResultStore != nil {
		deps.ResultStore = overrides.ResultStore
	}
	if overrides.Notifier != nil {
		deps.Notifier = overrides.Notifier
	}
	if overrides.RunLock != nil {
		deps.RunLock = overrides.RunLock
	}
	if overrides.ConfigManager != nil {
		deps.ConfigManager = overrides.ConfigManager
	}
	if overrides.ProcessManager != nil {
		deps.ProcessManager = overrides.ProcessManager
	}

	return deps
}

func (f *DependencyFactory) createEngine() interfaces.Engine {
	if f.config.Engine.Mode == types.EngineModeSimulated {
		seed := time.Now().UnixNano()
		if f.config.Engine.Seed != nil {
			seed = *f.config.Engine.Seed
		}
		return thermocalc.NewSimulatedEngine(seed, f.logger)
	}
	return thermocalc.NewGatewayEngine(f.config.Engine.Address, f.logger)
}
