package calculator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/internal/thermocalc"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/interfaces"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/logger"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/mocks"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/results"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

// TestCalculatorRun walks the full sweep against mock dependencies: two
// constant concentrations with five grid points each give six interior
// systems in total.
func TestCalculatorRun(t *testing.T) {
	config := createTestConfig()
	deps := createValidDependencies()
	engine := deps.Engine.(*mocks.MockEngine)
	store := deps.ResultStore.(*mocks.MockResultStore)
	notifier := deps.Notifier.(*mocks.MockRunNotifier)
	lock := deps.RunLock.(*mocks.MockRunLock)

	c := New(config, testLogger(), deps)

	summary, err := c.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Attempted != 6 || summary.Succeeded != 6 || summary.Failed != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.Interrupted {
		t.Error("run should not be interrupted")
	}
	if summary.RunID == "" {
		t.Error("summary missing run ID")
	}

	if store.SaveCount() != 6 {
		t.Errorf("expected 6 saved results, got %d", store.SaveCount())
	}

	// One session per system, every session closed exactly once
	if engine.SessionCount() != 6 {
		t.Errorf("expected 6 sessions, got %d", engine.SessionCount())
	}
	if engine.OpenSessions() != 0 {
		t.Errorf("expected all sessions closed, %d still open", engine.OpenSessions())
	}
	for i, session := range engine.Sessions() {
		if session.CalculateCount() != 1 {
			t.Errorf("session %d: expected 1 calculation, got %d", i, session.CalculateCount())
		}
		if session.CloseCount() != 1 {
			t.Errorf("session %d: expected 1 close, got %d", i, session.CloseCount())
		}
	}

	if notifier.RunStartCount() != 1 {
		t.Errorf("expected 1 run start notification, got %d", notifier.RunStartCount())
	}
	completes := notifier.RunCompletes()
	if len(completes) != 1 || completes[0].Succeeded != 6 || completes[0].Failed != 0 {
		t.Errorf("unexpected completion notifications: %+v", completes)
	}

	if lock.AcquireCount() != 1 || lock.ReleaseCount() != 1 {
		t.Errorf("expected one acquire and one release, got %d/%d", lock.AcquireCount(), lock.ReleaseCount())
	}
	if lock.IsHeld() {
		t.Error("run lock still held after run")
	}
	if c.IsRunning() {
		t.Error("calculator still marked running")
	}
}

// TestCalculatorRequestSemantics pins down the request built for the first
// interior grid point: five points over a 0.7 sweep put the first changing
// element at 0.175, so the partner element carries 0.525 and the swept axis
// tops out at 0.175.
func TestCalculatorRequestSemantics(t *testing.T) {
	config := createTestConfig()
	config.ConstantConcentrations = []float64{0.1}
	deps := createValidDependencies()
	engine := deps.Engine.(*mocks.MockEngine)

	c := New(config, testLogger(), deps)
	if _, err := c.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	sessions := engine.Sessions()
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}

	req := sessions[0].Requests()[0]

	if req.Database != "TCHEA6" {
		t.Errorf("expected database TCHEA6, got %s", req.Database)
	}
	if req.RequestID == "" {
		t.Error("request missing request ID")
	}

	// Swept axis: X(Cr) from 0 to the changing elements' shared total
	if req.FirstAxis.Quantity != types.MoleFractionOf("Cr") {
		t.Errorf("unexpected first axis quantity: %s", req.FirstAxis.Quantity)
	}
	if req.FirstAxis.Min != 0 || !approx(req.FirstAxis.Max, 0.175) {
		t.Errorf("unexpected first axis bounds: [%v, %v]", req.FirstAxis.Min, req.FirstAxis.Max)
	}
	if !approx(req.FirstAxis.MaxStepSize, 0.025/0.175) {
		t.Errorf("unexpected max step size: %v", req.FirstAxis.MaxStepSize)
	}

	if req.SecondAxis.Quantity != types.Temperature() {
		t.Errorf("unexpected second axis quantity: %s", req.SecondAxis.Quantity)
	}
	if req.SecondAxis.Min != 500 || req.SecondAxis.Max != 1200 {
		t.Errorf("unexpected temperature bounds: [%v, %v]", req.SecondAxis.Min, req.SecondAxis.Max)
	}
	if req.SecondAxis.MinSteps != 60 {
		t.Errorf("expected 60 temperature steps, got %d", req.SecondAxis.MinSteps)
	}

	// Conditions: temperature plus every element except the swept-away Al
	if len(req.Conditions) != 5 {
		t.Fatalf("expected 5 conditions, got %d", len(req.Conditions))
	}
	if req.Conditions[0].Quantity != types.Temperature() || req.Conditions[0].Value != 1000 {
		t.Errorf("unexpected temperature condition: %s", req.Conditions[0])
	}
	wantConditions := map[string]float64{
		"Cr": 0.525, "Co": 0.1, "Fe": 0.1, "Ni": 0.1,
	}
	for _, cond := range req.Conditions[1:] {
		want, ok := wantConditions[cond.Quantity.Element]
		if !ok {
			t.Errorf("unexpected condition element: %s", cond)
			continue
		}
		if !approx(cond.Value, want) {
			t.Errorf("condition %s: expected %v", cond, want)
		}
		delete(wantConditions, cond.Quantity.Element)
	}
	if len(wantConditions) != 0 {
		t.Errorf("missing conditions for %v", wantConditions)
	}

	if !req.GlobalMinimization {
		t.Error("global minimization should be on")
	}
	if req.PhaseLabel == nil || req.PhaseLabel.X != 0.5 || req.PhaseLabel.Y != 2000 {
		t.Errorf("unexpected phase label point: %+v", req.PhaseLabel)
	}
	if req.GroupX != types.MoleFractionOf("Al") || req.GroupY != types.Temperature() {
		t.Errorf("unexpected grouping quantities: %s, %s", req.GroupX, req.GroupY)
	}
	if req.Timeout != 15*time.Minute {
		t.Errorf("expected 15m timeout, got %v", req.Timeout)
	}

	// The sweep endpoints never reach the engine: with five grid points the
	// axis maxima are the three interior fractions only
	wantMaxes := []float64{0.175, 0.35, 0.525}
	for i, session := range sessions {
		got := session.Requests()[0].FirstAxis.Max
		if !approx(got, wantMaxes[i]) {
			t.Errorf("session %d: expected axis max %v, got %v", i, wantMaxes[i], got)
		}
	}
}

// TestCalculatorUnrecoverableFailure verifies the skip-and-continue path: a
// point the engine declares unrecoverable is recorded and the sweep moves on.
func TestCalculatorUnrecoverableFailure(t *testing.T) {
	config := createTestConfig()
	deps := createValidDependencies()
	engine := deps.Engine.(*mocks.MockEngine)
	store := deps.ResultStore.(*mocks.MockResultStore)
	notifier := deps.Notifier.(*mocks.MockRunNotifier)

	calls := 0
	engine.SetCalculateFunc(func(req *types.CalculationRequest) (*results.PhaseDiagramData, error) {
		calls++
		if calls == 2 {
			return nil, fmt.Errorf("%w: no convergence at this composition", thermocalc.ErrUnrecoverableCalculation)
		}
		return &results.PhaseDiagramData{
			Groups: []results.PhaseGroup{{Label: "LIQUID", X: []float64{0.1}, Y: []float64{1100}}},
		}, nil
	})

	c := New(config, testLogger(), deps)
	summary, err := c.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Attempted != 6 || summary.Succeeded != 5 || summary.Failed != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].SystemNumber != 2 {
		t.Errorf("unexpected failures: %+v", summary.Failures)
	}

	if store.SaveCount() != 5 {
		t.Errorf("expected 5 saved results, got %d", store.SaveCount())
	}

	failures := notifier.PointFailures()
	if len(failures) != 1 || failures[0].SystemNumber != 2 {
		t.Errorf("unexpected failure notifications: %+v", failures)
	}

	// The failed point's session is still closed
	if engine.OpenSessions() != 0 {
		t.Errorf("expected all sessions closed, %d still open", engine.OpenSessions())
	}

	completes := notifier.RunCompletes()
	if len(completes) != 1 || completes[0].Succeeded != 5 || completes[0].Failed != 1 {
		t.Errorf("unexpected completion notifications: %+v", completes)
	}
}

// TestCalculatorFatalError verifies that errors other than unrecoverable
// calculations abort the run.
func TestCalculatorFatalError(t *testing.T) {
	config := createTestConfig()
	deps := createValidDependencies()
	engine := deps.Engine.(*mocks.MockEngine)
	lock := deps.RunLock.(*mocks.MockRunLock)

	calls := 0
	engine.SetCalculateFunc(func(req *types.CalculationRequest) (*results.PhaseDiagramData, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("gateway error: license server unreachable")
		}
		return &results.PhaseDiagramData{
			Groups: []results.PhaseGroup{{Label: "LIQUID", X: []float64{0.1}, Y: []float64{1100}}},
		}, nil
	})

	c := New(config, testLogger(), deps)
	summary, err := c.Run()
	if err == nil {
		t.Fatal("expected run to abort")
	}
	if !contains(err.Error(), "system #2") {
		t.Errorf("error should name the failed system: %v", err)
	}

	if summary == nil || summary.Attempted != 2 || summary.Succeeded != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	if engine.OpenSessions() != 0 {
		t.Errorf("expected all sessions closed, %d still open", engine.OpenSessions())
	}
	if lock.IsHeld() {
		t.Error("run lock still held after aborted run")
	}
}

// TestCalculatorSaveFailureAborts verifies a store failure is fatal and the
// open session is still released.
func TestCalculatorSaveFailureAborts(t *testing.T) {
	config := createTestConfig()
	deps := createValidDependencies()
	engine := deps.Engine.(*mocks.MockEngine)
	store := deps.ResultStore.(*mocks.MockResultStore)
	store.SetSaveError(errors.New("disk full"))

	c := New(config, testLogger(), deps)
	_, err := c.Run()
	if err == nil {
		t.Fatal("expected run to abort on save failure")
	}
	if !contains(err.Error(), "failed to save result") {
		t.Errorf("unexpected error: %v", err)
	}

	if engine.SessionCount() != 1 {
		t.Errorf("expected 1 session, got %d", engine.SessionCount())
	}
	if engine.OpenSessions() != 0 {
		t.Error("session not closed after save failure")
	}
}

// TestCalculatorInterruption cancels the run context mid-sweep and expects a
// clean summary with the interrupted flag instead of an error.
func TestCalculatorInterruption(t *testing.T) {
	config := createTestConfig()
	deps := createValidDependencies()
	engine := deps.Engine.(*mocks.MockEngine)
	lock := deps.RunLock.(*mocks.MockRunLock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	engine.SetCalculateFunc(func(req *types.CalculationRequest) (*results.PhaseDiagramData, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return &results.PhaseDiagramData{
			Groups: []results.PhaseGroup{{Label: "LIQUID", X: []float64{0.1}, Y: []float64{1100}}},
		}, nil
	})

	c := New(config, testLogger(), deps)
	summary, err := c.RunWithContext(ctx)
	if err != nil {
		t.Fatalf("interrupted run should not error: %v", err)
	}

	if !summary.Interrupted {
		t.Error("summary should be marked interrupted")
	}
	if summary.Attempted != 2 || summary.Succeeded != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	if lock.ReleaseCount() != 1 {
		t.Error("run lock not released after interruption")
	}
	if engine.OpenSessions() != 0 {
		t.Errorf("expected all sessions closed, %d still open", engine.OpenSessions())
	}
}

func TestCalculatorAlreadyRunning(t *testing.T) {
	config := createTestConfig()
	c := New(config, testLogger(), createValidDependencies())

	c.mu.Lock()
	c.isRunning = true
	c.mu.Unlock()

	_, err := c.Run()
	if err == nil || !contains(err.Error(), "already running") {
		t.Errorf("expected already-running error, got %v", err)
	}
}

func TestCalculatorLockContention(t *testing.T) {
	config := createTestConfig()
	deps := createValidDependencies()
	engine := deps.Engine.(*mocks.MockEngine)
	notifier := deps.Notifier.(*mocks.MockRunNotifier)
	lock := deps.RunLock.(*mocks.MockRunLock)
	lock.SetAcquireError(results.ErrRunInProgress)

	c := New(config, testLogger(), deps)
	_, err := c.Run()
	if !errors.Is(err, results.ErrRunInProgress) {
		t.Errorf("expected run-in-progress error, got %v", err)
	}

	if engine.SessionCount() != 0 {
		t.Error("no sessions should open when the lock is contended")
	}
	if notifier.RunStartCount() != 0 {
		t.Error("no start notification should fire when the lock is contended")
	}
}

func TestCalculatorEngineUnavailable(t *testing.T) {
	config := createTestConfig()
	deps := createValidDependencies()
	engine := deps.Engine.(*mocks.MockEngine)
	lock := deps.RunLock.(*mocks.MockRunLock)
	engine.SetPingError(errors.New("connection refused"))

	c := New(config, testLogger(), deps)
	_, err := c.Run()
	if err == nil || !contains(err.Error(), "engine unavailable") {
		t.Errorf("expected engine-unavailable error, got %v", err)
	}

	if lock.AcquireCount() != 0 {
		t.Error("lock should not be acquired when the engine is down")
	}
}

func TestCalculatorPlan(t *testing.T) {
	config := createTestConfig()
	points := 15
	config.GridPoints = &points

	c := New(config, testLogger(), createValidDependencies())

	plan, err := c.Plan()
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	// 15 grid points leave 13 interior systems per constant
	if len(plan) != 26 {
		t.Fatalf("expected 26 planned systems, got %d", len(plan))
	}

	for i, point := range plan {
		if point.SystemNumber != i+1 {
			t.Errorf("system %d numbered %d", i+1, point.SystemNumber)
		}
	}

	if plan[0].Constant != 0.1 || plan[13].Constant != 0.2 {
		t.Errorf("unexpected constants: %v, %v", plan[0].Constant, plan[13].Constant)
	}
	if plan[0].Column != 1 || plan[12].Column != 13 || plan[13].Column != 1 {
		t.Errorf("unexpected columns: %d, %d, %d", plan[0].Column, plan[12].Column, plan[13].Column)
	}

	// linspace(0, 0.7, 15) steps by 0.05; the second sweep's 0.4 range
	// rounds its first interior fraction to 0.029
	if !approx(plan[0].AxisMax, 0.05) {
		t.Errorf("expected first axis max 0.05, got %v", plan[0].AxisMax)
	}
	if !approx(plan[13].AxisMax, 0.029) {
		t.Errorf("expected axis max 0.029 for second sweep, got %v", plan[13].AxisMax)
	}
}

func TestCalculatorPlanRejectsBadMesh(t *testing.T) {
	config := createTestConfig()
	config.ConstantConcentrations = []float64{0.4} // 3*0.4 > 1

	c := New(config, testLogger(), createValidDependencies())

	if _, err := c.Plan(); err == nil {
		t.Error("expected plan to reject an impossible sweep")
	}
}

func TestNewPanicsOnMissingDependencies(t *testing.T) {
	tests := []struct {
		name string
		deps interfaces.CalculatorDependencies
	}{
		{
			name: "missing engine",
			deps: interfaces.CalculatorDependencies{
				ResultStore: mocks.NewMockResultStore(),
				RunLock:     mocks.NewMockRunLock(),
			},
		},
		{
			name: "missing result store",
			deps: interfaces.CalculatorDependencies{
				Engine:  mocks.NewMockEngine(),
				RunLock: mocks.NewMockRunLock(),
			},
		},
		{
			name: "missing run lock",
			deps: interfaces.CalculatorDependencies{
				Engine:      mocks.NewMockEngine(),
				ResultStore: mocks.NewMockResultStore(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic for missing dependency")
				}
			}()
			New(createTestConfig(), testLogger(), tt.deps)
		})
	}
}

// Helpers

func testLogger() logger.Logger {
	return logger.CreateLogger("", "error")
}

func createTestConfig() *types.ProjectConfig {
	points := 5
	return &types.ProjectConfig{
		Version:                "1.0",
		Elements:               []string{"Al", "Cr", "Co", "Fe", "Ni"},
		ConstantConcentrations: []float64{0.1, 0.2},
		GridPoints:             &points,
		ChangingElements:       []int{0, 1},
		ConstantElements:       []int{2, 3, 4},
		Engine: types.EngineConfig{
			Mode: types.EngineModeSimulated,
		},
	}
}

func createValidDependencies() interfaces.CalculatorDependencies {
	return interfaces.CalculatorDependencies{
		Engine:         mocks.NewMockEngine(),
		ResultStore:    mocks.NewMockResultStore(),
		Notifier:       mocks.NewMockRunNotifier(),
		RunLock:        mocks.NewMockRunLock(),
		ProcessManager: mocks.NewMockProcessManager(),
	}
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && s[:len(substr)] == substr ||
		len(s) > len(substr) && contains(s[1:], substr)
}
