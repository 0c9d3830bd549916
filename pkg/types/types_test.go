package types_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

func TestQuantityValidate(t *testing.T) {
	tests := []struct {
		name     string
		quantity types.ThermodynamicQuantity
		wantErr  bool
	}{
		{
			name:     "temperature",
			quantity: types.Temperature(),
			wantErr:  false,
		},
		{
			name:     "mole fraction",
			quantity: types.MoleFractionOf("Cr"),
			wantErr:  false,
		},
		{
			name:     "temperature with element",
			quantity: types.ThermodynamicQuantity{Kind: types.QuantityTemperature, Element: "Al"},
			wantErr:  true,
		},
		{
			name:     "mole fraction without element",
			quantity: types.ThermodynamicQuantity{Kind: types.QuantityMoleFraction},
			wantErr:  true,
		},
		{
			name:     "unknown kind",
			quantity: types.ThermodynamicQuantity{Kind: "enthalpy"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.quantity.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConsoleNotation(t *testing.T) {
	if got := types.Temperature().String(); got != "T" {
		t.Errorf("expected T, got %s", got)
	}
	if got := types.MoleFractionOf("Cr").String(); got != "X(Cr)" {
		t.Errorf("expected X(Cr), got %s", got)
	}

	cond := types.Condition{Quantity: types.MoleFractionOf("Cr"), Value: 0.65}
	if got := cond.String(); got != "X(Cr)=0.65" {
		t.Errorf("expected X(Cr)=0.65, got %s", got)
	}

	cond = types.Condition{Quantity: types.Temperature(), Value: 1000}
	if got := cond.String(); got != "T=1000" {
		t.Errorf("expected T=1000, got %s", got)
	}
}

func TestAxisValidate(t *testing.T) {
	tests := []struct {
		name    string
		axis    types.CalculationAxis
		wantErr bool
	}{
		{
			name: "composition axis with max step size",
			axis: types.CalculationAxis{
				Quantity:    types.MoleFractionOf("Cr"),
				Min:         0,
				Max:         0.7,
				Mode:        types.AxisModeMaxStepSize,
				MaxStepSize: 0.025 / 0.7,
			},
			wantErr: false,
		},
		{
			name: "temperature axis with minimum steps",
			axis: types.CalculationAxis{
				Quantity: types.Temperature(),
				Min:      500,
				Max:      1200,
				Mode:     types.AxisModeMinSteps,
				MinSteps: 60,
			},
			wantErr: false,
		},
		{
			name: "inverted bounds",
			axis: types.CalculationAxis{
				Quantity: types.Temperature(),
				Min:      1200,
				Max:      500,
				Mode:     types.AxisModeMinSteps,
				MinSteps: 60,
			},
			wantErr: true,
		},
		{
			name: "collapsed bounds",
			axis: types.CalculationAxis{
				Quantity:    types.MoleFractionOf("Cr"),
				Min:         0,
				Max:         0,
				Mode:        types.AxisModeMaxStepSize,
				MaxStepSize: 0.025,
			},
			wantErr: true,
		},
		{
			name: "zero step size",
			axis: types.CalculationAxis{
				Quantity: types.MoleFractionOf("Cr"),
				Min:      0,
				Max:      0.7,
				Mode:     types.AxisModeMaxStepSize,
			},
			wantErr: true,
		},
		{
			name: "infinite step size",
			axis: types.CalculationAxis{
				Quantity:    types.MoleFractionOf("Cr"),
				Min:         0,
				Max:         0.7,
				Mode:        types.AxisModeMaxStepSize,
				MaxStepSize: math.Inf(1),
			},
			wantErr: true,
		},
		{
			name: "zero step count",
			axis: types.CalculationAxis{
				Quantity: types.Temperature(),
				Min:      500,
				Max:      1200,
				Mode:     types.AxisModeMinSteps,
			},
			wantErr: true,
		},
		{
			name: "unknown mode",
			axis: types.CalculationAxis{
				Quantity: types.Temperature(),
				Min:      500,
				Max:      1200,
				Mode:     "adaptive",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.axis.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func validRequest() *types.CalculationRequest {
	return &types.CalculationRequest{
		RequestID: "req-1",
		Database:  "TCHEA6",
		Elements:  []string{"Al", "Cr", "Co", "Fe", "Ni"},
		FirstAxis: types.CalculationAxis{
			Quantity:    types.MoleFractionOf("Cr"),
			Min:         0,
			Max:         0.7,
			Mode:        types.AxisModeMaxStepSize,
			MaxStepSize: 0.025 / 0.7,
		},
		SecondAxis: types.CalculationAxis{
			Quantity: types.Temperature(),
			Min:      500,
			Max:      1200,
			Mode:     types.AxisModeMinSteps,
			MinSteps: 60,
		},
		Conditions: []types.Condition{
			{Quantity: types.Temperature(), Value: 1000},
			{Quantity: types.MoleFractionOf("Co"), Value: 0.1},
		},
		GlobalMinimization: true,
		GroupX:             types.MoleFractionOf("Al"),
		GroupY:             types.Temperature(),
		Timeout:            15 * time.Minute,
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*types.CalculationRequest)
		wantErr bool
	}{
		{
			name:    "valid request",
			mutate:  func(r *types.CalculationRequest) {},
			wantErr: false,
		},
		{
			name:    "missing database",
			mutate:  func(r *types.CalculationRequest) { r.Database = "" },
			wantErr: true,
		},
		{
			name:    "single element",
			mutate:  func(r *types.CalculationRequest) { r.Elements = []string{"Al"} },
			wantErr: true,
		},
		{
			name: "broken first axis",
			mutate: func(r *types.CalculationRequest) {
				r.FirstAxis.MaxStepSize = 0
			},
			wantErr: true,
		},
		{
			name: "broken condition",
			mutate: func(r *types.CalculationRequest) {
				r.Conditions = append(r.Conditions,
					types.Condition{Quantity: types.ThermodynamicQuantity{Kind: "pressure"}})
			},
			wantErr: true,
		},
		{
			name: "temperature grouped by element",
			mutate: func(r *types.CalculationRequest) {
				r.GroupY = types.ThermodynamicQuantity{Kind: types.QuantityTemperature, Element: "Ni"}
			},
			wantErr: true,
		},
		{
			name:    "zero timeout",
			mutate:  func(r *types.CalculationRequest) { r.Timeout = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProjectConfigDefaults(t *testing.T) {
	config := &types.ProjectConfig{}

	if config.GetGridPoints() != 15 {
		t.Errorf("expected default grid points 15, got %d", config.GetGridPoints())
	}

	if config.GetDatabase() != "TCHEA6" {
		t.Errorf("expected default database TCHEA6, got %s", config.GetDatabase())
	}

	tRange := config.GetTemperatureRange()
	if tRange.Min != 500 || tRange.Max != 1200 {
		t.Errorf("expected default temperature range 500-1200, got %v-%v", tRange.Min, tRange.Max)
	}

	if config.GetTemperatureSteps() != 60 {
		t.Errorf("expected default temperature steps 60, got %d", config.GetTemperatureSteps())
	}

	if config.GetReferenceTemperature() != 1000 {
		t.Errorf("expected default reference temperature 1000, got %v", config.GetReferenceTemperature())
	}

	if config.GetAxisStepFactor() != 0.025 {
		t.Errorf("expected default axis step factor 0.025, got %v", config.GetAxisStepFactor())
	}

	if config.GetTimeout() != 15*time.Minute {
		t.Errorf("expected default timeout 15m, got %v", config.GetTimeout())
	}

	if config.GetOutputDir() != "results" {
		t.Errorf("expected default output dir results, got %s", config.GetOutputDir())
	}

	if config.IsNotificationsEnabled() {
		t.Error("expected notifications disabled by default")
	}
}

func TestProjectConfigUnmarshal(t *testing.T) {
	configJSON := `{
		"version": "1.0",
		"elements": ["Al", "Cr", "Co", "Fe", "Ni"],
		"constantConcentrations": [0.075, 0.1, 0.125],
		"gridPoints": 11,
		"changingElements": [0, 1],
		"constantElements": [2, 3, 4],
		"database": "TCHEA7",
		"engine": {
			"mode": "simulated",
			"seed": 42
		},
		"notifications": {
			"enabled": true,
			"soundEnabled": true
		}
	}`

	var config types.ProjectConfig
	if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
		t.Fatalf("failed to unmarshal config: %v", err)
	}

	if config.Version != "1.0" {
		t.Errorf("expected version 1.0, got %s", config.Version)
	}

	if len(config.Elements) != 5 {
		t.Errorf("expected 5 elements, got %d", len(config.Elements))
	}

	if len(config.ConstantConcentrations) != 3 {
		t.Errorf("expected 3 constant concentrations, got %d", len(config.ConstantConcentrations))
	}

	if config.GetGridPoints() != 11 {
		t.Errorf("expected grid points 11, got %d", config.GetGridPoints())
	}

	if config.GetDatabase() != "TCHEA7" {
		t.Errorf("expected database TCHEA7, got %s", config.GetDatabase())
	}

	if config.Engine.Mode != types.EngineModeSimulated {
		t.Errorf("expected simulated engine, got %s", config.Engine.Mode)
	}

	if config.Engine.Seed == nil || *config.Engine.Seed != 42 {
		t.Error("expected engine seed 42")
	}

	if !config.IsNotificationsEnabled() || !config.IsSoundEnabled() {
		t.Error("expected notifications and sound enabled")
	}
}

func TestCalculationStatus(t *testing.T) {
	statuses := []types.CalculationStatus{
		types.CalculationStatusPending,
		types.CalculationStatusCalculating,
		types.CalculationStatusSucceeded,
		types.CalculationStatusFailed,
		types.CalculationStatusSkipped,
	}

	for _, status := range statuses {
		// Ensure status can be marshaled/unmarshaled
		data, err := json.Marshal(status)
		if err != nil {
			t.Errorf("failed to marshal status %s: %v", status, err)
		}

		var unmarshaled types.CalculationStatus
		err = json.Unmarshal(data, &unmarshaled)
		if err != nil {
			t.Errorf("failed to unmarshal status: %v", err)
		}

		if unmarshaled != status {
			t.Errorf("status mismatch: expected %s, got %s", status, unmarshaled)
		}
	}
}

func BenchmarkRequestValidate(b *testing.B) {
	req := validRequest()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := req.Validate(); err != nil {
			b.Fatal(err)
		}
	}
}
