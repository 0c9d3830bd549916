// Package types provides core types and configurations for phasecalc
package types

import (
	"fmt"
	"math"
	"time"
)

// QuantityKind represents the supported thermodynamic quantity kinds
type QuantityKind string

const (
	QuantityTemperature  QuantityKind = "temperature"
	QuantityMoleFraction QuantityKind = "moleFraction"
)

// AxisMode represents how a linear calculation axis is discretized
type AxisMode string

const (
	AxisModeMaxStepSize AxisMode = "maxStepSize"
	AxisModeMinSteps    AxisMode = "minSteps"
)

// EngineMode represents the engine backend selection
type EngineMode string

const (
	EngineModeGateway   EngineMode = "gateway"
	EngineModeSimulated EngineMode = "simulated"
)

// CalculationStatus represents the state of one grid-point calculation
type CalculationStatus string

const (
	CalculationStatusPending     CalculationStatus = "pending"
	CalculationStatusCalculating CalculationStatus = "calculating"
	CalculationStatusSucceeded   CalculationStatus = "succeeded"
	CalculationStatusFailed      CalculationStatus = "failed"
	CalculationStatusSkipped     CalculationStatus = "skipped"
)

// LogLevel represents logging verbosity levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Configuration defaults matching the canonical Al-Cr-Co-Fe-Ni setup.
const (
	DefaultDatabase             = "TCHEA6"
	DefaultGridPoints           = 15
	DefaultTemperatureMin       = 500.0
	DefaultTemperatureMax       = 1200.0
	DefaultTemperatureSteps     = 60
	DefaultReferenceTemperature = 1000.0
	DefaultAxisStepFactor       = 0.025
	DefaultTimeoutMinutes       = 15
	DefaultOutputDir            = "results"
)

// ThermodynamicQuantity identifies a quantity the engine can fix or sweep.
// Element is required for mole fractions and must be empty for temperature.
type ThermodynamicQuantity struct {
	Kind    QuantityKind `json:"kind" yaml:"kind"`
	Element string       `json:"element,omitempty" yaml:"element,omitempty"`
}

// Temperature returns the temperature quantity
func Temperature() ThermodynamicQuantity {
	return ThermodynamicQuantity{Kind: QuantityTemperature}
}

// MoleFractionOf returns the mole-fraction quantity for an element
func MoleFractionOf(element string) ThermodynamicQuantity {
	return ThermodynamicQuantity{Kind: QuantityMoleFraction, Element: element}
}

// Validate checks kind/element consistency
func (q ThermodynamicQuantity) Validate() error {
	switch q.Kind {
	case QuantityTemperature:
		if q.Element != "" {
			return fmt.Errorf("temperature quantity must not name an element, got %q", q.Element)
		}
	case QuantityMoleFraction:
		if q.Element == "" {
			return fmt.Errorf("mole-fraction quantity requires an element")
		}
	default:
		return fmt.Errorf("unknown quantity kind: %s", q.Kind)
	}
	return nil
}

// String renders the quantity in console notation, e.g. "T" or "X(Cr)"
func (q ThermodynamicQuantity) String() string {
	if q.Kind == QuantityTemperature {
		return "T"
	}
	return fmt.Sprintf("X(%s)", q.Element)
}

// CalculationAxis describes one linear sweep axis of a phase diagram.
// Exactly one of MaxStepSize (AxisModeMaxStepSize) or MinSteps
// (AxisModeMinSteps) controls the discretization.
type CalculationAxis struct {
	Quantity    ThermodynamicQuantity `json:"quantity" yaml:"quantity"`
	Min         float64               `json:"min" yaml:"min"`
	Max         float64               `json:"max" yaml:"max"`
	Mode        AxisMode              `json:"mode" yaml:"mode"`
	MaxStepSize float64               `json:"maxStepSize,omitempty" yaml:"maxStepSize,omitempty"`
	MinSteps    int                   `json:"minSteps,omitempty" yaml:"minSteps,omitempty"`
}

// Validate checks axis bounds and step control
func (a CalculationAxis) Validate() error {
	if err := a.Quantity.Validate(); err != nil {
		return fmt.Errorf("axis quantity: %w", err)
	}
	if a.Min >= a.Max {
		return fmt.Errorf("axis %s: min %v must be below max %v", a.Quantity, a.Min, a.Max)
	}
	switch a.Mode {
	case AxisModeMaxStepSize:
		if a.MaxStepSize <= 0 || math.IsInf(a.MaxStepSize, 0) || math.IsNaN(a.MaxStepSize) {
			return fmt.Errorf("axis %s: max step size must be positive and finite, got %v", a.Quantity, a.MaxStepSize)
		}
	case AxisModeMinSteps:
		if a.MinSteps <= 0 {
			return fmt.Errorf("axis %s: minimum step count must be positive, got %d", a.Quantity, a.MinSteps)
		}
	default:
		return fmt.Errorf("axis %s: unknown axis mode: %s", a.Quantity, a.Mode)
	}
	return nil
}

// Condition fixes a thermodynamic quantity to a value for the calculation
type Condition struct {
	Quantity ThermodynamicQuantity `json:"quantity" yaml:"quantity"`
	Value    float64               `json:"value" yaml:"value"`
}

// String renders the condition in console notation, e.g. "X(Cr)=0.65"
func (c Condition) String() string {
	return fmt.Sprintf("%s=%v", c.Quantity, c.Value)
}

// AxisPoint is a coordinate in axis space, used for phase-label placement
type AxisPoint struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// CalculationRequest is a fully explicit phase-diagram request. Every option
// the engine recognizes is a named field; there is no dynamic keyword
// surface.
type CalculationRequest struct {
	RequestID          string                `json:"requestId" yaml:"requestId"`
	Database           string                `json:"database" yaml:"database"`
	Elements           []string              `json:"elements" yaml:"elements"`
	FirstAxis          CalculationAxis       `json:"firstAxis" yaml:"firstAxis"`
	SecondAxis         CalculationAxis       `json:"secondAxis" yaml:"secondAxis"`
	Conditions         []Condition           `json:"conditions" yaml:"conditions"`
	GlobalMinimization bool                  `json:"globalMinimization" yaml:"globalMinimization"`
	PhaseLabel         *AxisPoint            `json:"phaseLabel,omitempty" yaml:"phaseLabel,omitempty"`
	GroupX             ThermodynamicQuantity `json:"groupX" yaml:"groupX"`
	GroupY             ThermodynamicQuantity `json:"groupY" yaml:"groupY"`
	Timeout            time.Duration         `json:"timeout" yaml:"timeout"`
}

// Validate checks the request before it is handed to an engine session
func (r *CalculationRequest) Validate() error {
	if r.Database == "" {
		return fmt.Errorf("request requires a database")
	}
	if len(r.Elements) < 2 {
		return fmt.Errorf("request requires at least two elements, got %d", len(r.Elements))
	}
	if err := r.FirstAxis.Validate(); err != nil {
		return fmt.Errorf("first axis: %w", err)
	}
	if err := r.SecondAxis.Validate(); err != nil {
		return fmt.Errorf("second axis: %w", err)
	}
	for _, cond := range r.Conditions {
		if err := cond.Quantity.Validate(); err != nil {
			return fmt.Errorf("condition %s: %w", cond, err)
		}
	}
	if err := r.GroupX.Validate(); err != nil {
		return fmt.Errorf("grouping x quantity: %w", err)
	}
	if err := r.GroupY.Validate(); err != nil {
		return fmt.Errorf("grouping y quantity: %w", err)
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", r.Timeout)
	}
	return nil
}

// ComponentFraction pairs an element symbol with its mole fraction.
// Slices of these preserve element-list order.
type ComponentFraction struct {
	Element  string  `json:"element" yaml:"element"`
	Fraction float64 `json:"fraction" yaml:"fraction"`
}

// TemperatureRange bounds the temperature axis in kelvin
type TemperatureRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// EngineConfig selects and configures the engine backend
type EngineConfig struct {
	Mode    EngineMode `json:"mode" yaml:"mode"`
	Address string     `json:"address,omitempty" yaml:"address,omitempty"`
	Seed    *int64     `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// NotificationConfig represents notification preferences
type NotificationConfig struct {
	Enabled      *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	SoundEnabled *bool `json:"soundEnabled,omitempty" yaml:"soundEnabled,omitempty"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	File  string   `json:"file,omitempty" yaml:"file,omitempty"`
	Level LogLevel `json:"level,omitempty" yaml:"level,omitempty"`
}

// ProjectConfig represents the main configuration
type ProjectConfig struct {
	Version                string              `json:"version" yaml:"version"`
	Elements               []string            `json:"elements" yaml:"elements"`
	ConstantConcentrations []float64           `json:"constantConcentrations" yaml:"constantConcentrations"`
	GridPoints             *int                `json:"gridPoints,omitempty" yaml:"gridPoints,omitempty"`
	ChangingElements       []int               `json:"changingElements" yaml:"changingElements"`
	ConstantElements       []int               `json:"constantElements" yaml:"constantElements"`
	Database               string              `json:"database,omitempty" yaml:"database,omitempty"`
	TemperatureRange       *TemperatureRange   `json:"temperatureRange,omitempty" yaml:"temperatureRange,omitempty"`
	TemperatureSteps       *int                `json:"temperatureSteps,omitempty" yaml:"temperatureSteps,omitempty"`
	ReferenceTemperature   *float64            `json:"referenceTemperature,omitempty" yaml:"referenceTemperature,omitempty"`
	AxisStepFactor         *float64            `json:"axisStepFactor,omitempty" yaml:"axisStepFactor,omitempty"`
	TimeoutMinutes         *int                `json:"timeoutMinutes,omitempty" yaml:"timeoutMinutes,omitempty"`
	OutputDir              string              `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	Engine                 EngineConfig        `json:"engine" yaml:"engine"`
	Notifications          *NotificationConfig `json:"notifications,omitempty" yaml:"notifications,omitempty"`
	Logging                *LoggingConfig      `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// Defaulting getters for the optional fields

func (c *ProjectConfig) GetGridPoints() int {
	if c.GridPoints != nil {
		return *c.GridPoints
	}
	return DefaultGridPoints
}

func (c *ProjectConfig) GetDatabase() string {
	if c.Database != "" {
		return c.Database
	}
	return DefaultDatabase
}

func (c *ProjectConfig) GetTemperatureRange() TemperatureRange {
	if c.TemperatureRange != nil {
		return *c.TemperatureRange
	}
	return TemperatureRange{Min: DefaultTemperatureMin, Max: DefaultTemperatureMax}
}

func (c *ProjectConfig) GetTemperatureSteps() int {
	if c.TemperatureSteps != nil {
		return *c.TemperatureSteps
	}
	return DefaultTemperatureSteps
}

func (c *ProjectConfig) GetReferenceTemperature() float64 {
	if c.ReferenceTemperature != nil {
		return *c.ReferenceTemperature
	}
	return DefaultReferenceTemperature
}

func (c *ProjectConfig) GetAxisStepFactor() float64 {
	if c.AxisStepFactor != nil {
		return *c.AxisStepFactor
	}
	return DefaultAxisStepFactor
}

func (c *ProjectConfig) GetTimeout() time.Duration {
	minutes := DefaultTimeoutMinutes
	if c.TimeoutMinutes != nil {
		minutes = *c.TimeoutMinutes
	}
	return time.Duration(minutes) * time.Minute
}

func (c *ProjectConfig) GetOutputDir() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return DefaultOutputDir
}

// IsNotificationsEnabled reports whether desktop notifications are on.
// Absent config means disabled; a batch tool should stay quiet by default.
func (c *ProjectConfig) IsNotificationsEnabled() bool {
	return c.Notifications != nil && c.Notifications.Enabled != nil && *c.Notifications.Enabled
}

// IsSoundEnabled reports whether notification sounds are on
func (c *ProjectConfig) IsSoundEnabled() bool {
	return c.Notifications != nil && c.Notifications.SoundEnabled != nil && *c.Notifications.SoundEnabled
}
