// Package interfaces provides abstractions for dependency injection and testability
package interfaces

import (
	"context"
	"time"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/results"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

// Engine abstracts the external thermodynamics engine. Implementations are
// factories for short-lived sessions; the factory itself may be held for a
// whole run.
type Engine interface {
	// NewSession opens a fresh engine session. Callers own the session and
	// must close it.
	NewSession(ctx context.Context) (EngineSession, error)
	// Ping verifies the engine backend is reachable.
	Ping(ctx context.Context) error
	// Mode reports which backend this engine uses.
	Mode() types.EngineMode
}

// EngineSession is a scoped engine resource. One session serves one
// calculation and is closed afterwards; reuse across grid points is not
// allowed.
type EngineSession interface {
	CalculatePhaseDiagram(ctx context.Context, req *types.CalculationRequest) (*results.PhaseDiagramData, error)
	Close() error
}

// ResultStore persists calculation results
type ResultStore interface {
	EnsureOutputDir() error
	Save(result *results.Result) (string, error)
	Load(path string) (*results.Result, error)
	Discover() ([]results.ResultInfo, error)
	LoadAll(ctx context.Context) ([]*results.Result, error)
	OutputDir() string
}

// RunNotifier handles run lifecycle notifications
type RunNotifier interface {
	NotifyRunStart(totalPoints int)
	NotifyPointFailure(systemNumber int, composition string)
	NotifyRunComplete(succeeded, failed int, duration time.Duration)
}

// RunLock guards an output directory against concurrent runs
type RunLock interface {
	Acquire(runID string) error
	Release() error
}

// ProcessManager handles process lifecycle
type ProcessManager interface {
	RegisterShutdownHandler(handler func())
	Start(ctx context.Context)
	Stop()
	IsRunning() bool
}

// ConfigManager handles configuration loading and validation
type ConfigManager interface {
	LoadConfig(path string) (*types.ProjectConfig, error)
	ValidateConfig(config *types.ProjectConfig) error
	SaveConfig(config *types.ProjectConfig, path string) error
	GetDefaultConfig() *types.ProjectConfig
}

// CalculatorDependencies contains all injectable dependencies
type CalculatorDependencies struct {
	Engine         Engine
	ResultStore    ResultStore
	Notifier       RunNotifier
	RunLock        RunLock
	ConfigManager  ConfigManager
	ProcessManager ProcessManager
}
