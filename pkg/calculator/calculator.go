// Package calculator provides the phase-diagram run orchestrator
package calculator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/internal/thermocalc"
	pkgcontext "github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/context"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/interfaces"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/logger"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/mesh"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/results"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

// PlannedPoint describes one system a run will calculate
type PlannedPoint struct {
	SystemNumber int                       `json:"systemNumber"`
	Constant     float64                   `json:"constant"`
	Column       int                       `json:"column"`
	Composition  []types.ComponentFraction `json:"composition"`
	AxisMax      float64                   `json:"axisMax"`
}

// PointFailure records one grid point the engine could not calculate
type PointFailure struct {
	SystemNumber int                       `json:"systemNumber"`
	Composition  []types.ComponentFraction `json:"composition"`
	Error        string                    `json:"error"`
}

// RunSummary reports the outcome of one sweep
type RunSummary struct {
	RunID       string         `json:"runId"`
	Attempted   int            `json:"attempted"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	Elapsed     time.Duration  `json:"elapsed"`
	Failures    []PointFailure `json:"failures,omitempty"`
	Interrupted bool           `json:"interrupted,omitempty"`
}

// Calculator drives the sweep: for every constant concentration it generates
// the composition mesh and walks the interior grid points one at a time,
// opening a fresh engine session per point and persisting each diagram as it
// lands. Points the engine reports as unrecoverable are logged and skipped;
// the run continues with the next system.
type Calculator struct {
	config   *types.ProjectConfig
	logger   logger.Logger
	engine   interfaces.Engine
	store    interfaces.ResultStore
	notifier interfaces.RunNotifier
	runLock  interfaces.RunLock
	procs    interfaces.ProcessManager

	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
}

// New creates a calculator with the given dependencies
func New(config *types.ProjectConfig, log logger.Logger, deps interfaces.CalculatorDependencies) *Calculator {
	ctx, cancel := context.WithCancel(context.Background())

	// Validate required dependencies
	if deps.Engine == nil {
		panic("Engine dependency is required")
	}
	if deps.ResultStore == nil {
		panic("ResultStore dependency is required")
	}
	if deps.RunLock == nil {
		panic("RunLock dependency is required")
	}

	return &Calculator{
		config:   config,
		logger:   log,
		engine:   deps.Engine,
		store:    deps.ResultStore,
		notifier: deps.Notifier,
		runLock:  deps.RunLock,
		procs:    deps.ProcessManager,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// IsRunning reports whether a sweep is active
func (c *Calculator) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isRunning
}

// Stop interrupts a running sweep. The point in flight finishes or is
// cancelled; no further points start.
func (c *Calculator) Stop() {
	c.mu.RLock()
	cancel := c.cancel
	c.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
}

// Plan enumerates every system a run would calculate, in run order. The
// first and last column of each mesh never appear: their sweep endpoints
// collapse the first axis to a zero-width range.
func (c *Calculator) Plan() ([]PlannedPoint, error) {
	var plan []PlannedPoint

	counter := 0
	for _, constant := range c.config.ConstantConcentrations {
		grid, err := c.meshSpec(constant).Generate()
		if err != nil {
			return nil, fmt.Errorf("mesh for constant %v: %w", constant, err)
		}

		for col := 1; col < grid.Points()-1; col++ {
			counter++
			comp := grid.Composition(col)
			plan = append(plan, PlannedPoint{
				SystemNumber: counter,
				Constant:     constant,
				Column:       col,
				Composition:  comp,
				AxisMax:      sweepAxisMax(comp, c.config.ChangingElements[0]),
			})
		}
	}
	return plan, nil
}

// RunWithContext executes the full sweep. Returns the summary together with
// the first fatal error, if any; a gracefully interrupted run returns a
// summary with Interrupted set and no error.
func (c *Calculator) RunWithContext(ctx context.Context) (*RunSummary, error) {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil, fmt.Errorf("calculator is already running")
	}
	c.isRunning = true
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.isRunning = false
		c.mu.Unlock()
	}()

	return c.run()
}

// Run executes the full sweep with a background context
func (c *Calculator) Run() (*RunSummary, error) {
	return c.RunWithContext(context.Background())
}

func (c *Calculator) run() (*RunSummary, error) {
	runCtx := pkgcontext.EnrichRunContext(c.ctx)
	runID := pkgcontext.GetRunID(runCtx)
	log := logger.WithContext(runCtx, c.logger)

	summary := &RunSummary{RunID: runID}
	start := time.Now()

	plan, err := c.Plan()
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("nothing to calculate: no constant concentrations configured")
	}

	log.Info("Starting phase diagram run",
		logger.WithField("systems", len(plan)),
		logger.WithField("database", c.config.GetDatabase()),
		logger.WithField("engine", string(c.engine.Mode())))

	if err := c.engine.Ping(runCtx); err != nil {
		return nil, fmt.Errorf("engine unavailable: %w", err)
	}

	if err := c.store.EnsureOutputDir(); err != nil {
		return nil, err
	}
	if err := c.runLock.Acquire(runID); err != nil {
		return nil, err
	}
	defer func() {
		if err := c.runLock.Release(); err != nil {
			log.Warn("Failed to release run lock", logger.WithField("error", err.Error()))
		}
	}()

	if c.procs != nil {
		c.procs.RegisterShutdownHandler(c.Stop)
		c.procs.Start(runCtx)
		defer c.procs.Stop()
	}

	if c.notifier != nil {
		c.notifier.NotifyRunStart(len(plan))
	}

	for _, point := range plan {
		if runCtx.Err() != nil {
			summary.Interrupted = true
			break
		}

		pointCtx := pkgcontext.WithSystemNumber(runCtx, point.SystemNumber)
		err := c.calculatePoint(pointCtx, point)
		if runCtx.Err() != nil && err != nil {
			// The in-flight point was cancelled, not failed
			summary.Interrupted = true
			break
		}

		summary.Attempted++
		switch {
		case err == nil:
			summary.Succeeded++
		case errors.Is(err, thermocalc.ErrUnrecoverableCalculation):
			summary.Failed++
			summary.Failures = append(summary.Failures, PointFailure{
				SystemNumber: point.SystemNumber,
				Composition:  point.Composition,
				Error:        err.Error(),
			})
			logger.WithContext(pointCtx, c.logger).Warn("Could not calculate. Continuing with next system...",
				logger.WithField("composition", results.FormatComposition(point.Composition)),
				logger.WithField("error", err.Error()))
			if c.notifier != nil {
				c.notifier.NotifyPointFailure(point.SystemNumber, results.FormatComposition(point.Composition))
			}
		default:
			summary.Elapsed = time.Since(start)
			return summary, fmt.Errorf("system #%d: %w", point.SystemNumber, err)
		}
	}

	summary.Elapsed = time.Since(start)

	if summary.Interrupted {
		log.Warn("Run interrupted",
			logger.WithField("attempted", summary.Attempted),
			logger.WithField("succeeded", summary.Succeeded),
			logger.WithField("failed", summary.Failed))
	} else {
		log.Success("Run complete",
			logger.WithField("attempted", summary.Attempted),
			logger.WithField("succeeded", summary.Succeeded),
			logger.WithField("failed", summary.Failed),
			logger.WithField("elapsed", summary.Elapsed.Round(time.Second).String()))
	}

	if c.notifier != nil {
		c.notifier.NotifyRunComplete(summary.Succeeded, summary.Failed, summary.Elapsed)
	}

	return summary, nil
}

// calculatePoint runs one system in its own engine session. The session is
// closed on every path before the next point starts.
func (c *Calculator) calculatePoint(ctx context.Context, point PlannedPoint) error {
	log := logger.WithContext(ctx, c.logger)

	log.Info(fmt.Sprintf("Calculating system #%d", point.SystemNumber),
		logger.WithField("composition", results.FormatComposition(point.Composition)))

	req := c.buildRequest(point)

	session, err := c.engine.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to open engine session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("Failed to close engine session", logger.WithField("error", err.Error()))
		}
	}()

	data, err := session.CalculatePhaseDiagram(ctx, req)
	if err != nil {
		return err
	}

	path, err := c.store.Save(&results.Result{
		Composition:  point.Composition,
		Database:     req.Database,
		RequestID:    req.RequestID,
		CalculatedAt: time.Now(),
		Data:         *data,
	})
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	log.Success(fmt.Sprintf("Saved: %s", path))
	return nil
}

// buildRequest constructs the explicit phase-diagram request for one system.
// The first axis sweeps the mole fraction of the second changing element
// from zero up to the total the two changing elements share; everything
// else is fixed by conditions.
func (c *Calculator) buildRequest(point PlannedPoint) *types.CalculationRequest {
	elements := c.config.Elements
	first := c.config.ChangingElements[0]
	second := c.config.ChangingElements[1]

	maxX := sweepAxisMax(point.Composition, first)
	tRange := c.config.GetTemperatureRange()

	req := &types.CalculationRequest{
		RequestID: pkgcontext.GenerateRequestID(),
		Database:  c.config.GetDatabase(),
		Elements:  elements,
		FirstAxis: types.CalculationAxis{
			Quantity:    types.MoleFractionOf(elements[second]),
			Min:         0,
			Max:         maxX,
			Mode:        types.AxisModeMaxStepSize,
			MaxStepSize: c.config.GetAxisStepFactor() / maxX,
		},
		SecondAxis: types.CalculationAxis{
			Quantity: types.Temperature(),
			Min:      tRange.Min,
			Max:      tRange.Max,
			Mode:     types.AxisModeMinSteps,
			MinSteps: c.config.GetTemperatureSteps(),
		},
		GlobalMinimization: true,
		PhaseLabel:         &types.AxisPoint{X: 0.5, Y: 2000},
		GroupX:             types.MoleFractionOf(elements[first]),
		GroupY:             types.Temperature(),
		Timeout:            c.config.GetTimeout(),
	}

	// Fix the temperature at the reference point, plus the mole fraction of
	// every element except the first changing one
	req.Conditions = append(req.Conditions, types.Condition{
		Quantity: types.Temperature(),
		Value:    c.config.GetReferenceTemperature(),
	})
	for i, part := range point.Composition {
		if i == first {
			continue
		}
		req.Conditions = append(req.Conditions, types.Condition{
			Quantity: types.MoleFractionOf(part.Element),
			Value:    part.Fraction,
		})
	}

	return req
}

func (c *Calculator) meshSpec(constant float64) mesh.Spec {
	return mesh.Spec{
		Elements:              c.config.Elements,
		Points:                c.config.GetGridPoints(),
		ChangingIndices:       c.config.ChangingElements,
		ConstantIndices:       c.config.ConstantElements,
		ConstantConcentration: constant,
	}
}

// sweepAxisMax is the upper limit of the swept axis: one minus every
// fraction except the first changing element's, rounded the way result
// filenames round. Numerically this equals that element's own fraction.
func sweepAxisMax(comp []types.ComponentFraction, firstChanging int) float64 {
	otherSum := 0.0
	for i, part := range comp {
		if i != firstChanging {
			otherSum += part.Fraction
		}
	}
	return results.RoundFraction(1 - otherSum)
}
