package thermocalc

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/interfaces"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/logger"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/results"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

// Solution phases the simulator draws from. The liquidus band always sits
// at the top of the temperature range.
var simulatedPhases = []string{
	"LIQUID",
	"FCC_L12",
	"BCC_B2",
	"SIGMA",
	"HCP_A3",
	"MU_PHASE",
}

// SimulatedEngine produces deterministic, plausible-looking phase diagram
// data without a running Thermo-Calc installation. The same seed and the
// same request always yield the same diagram.
type SimulatedEngine struct {
	seed   int64
	logger logger.Logger

	mu          sync.Mutex
	openCount   int
	failureHook func(*types.CalculationRequest) error
	delay       time.Duration
}

var _ interfaces.Engine = (*SimulatedEngine)(nil)

// NewSimulatedEngine creates a simulated engine with the given seed
func NewSimulatedEngine(seed int64, log logger.Logger) *SimulatedEngine {
	return &SimulatedEngine{
		seed:   seed,
		logger: log,
	}
}

// Mode reports the engine mode
func (e *SimulatedEngine) Mode() types.EngineMode {
	return types.EngineModeSimulated
}

// Ping always succeeds
func (e *SimulatedEngine) Ping(ctx context.Context) error {
	return ctx.Err()
}

// SetFailureHook installs a hook consulted before each calculation. A
// non-nil return fails that calculation; return an error wrapping
// ErrUnrecoverableCalculation to exercise the skip-and-continue path.
func (e *SimulatedEngine) SetFailureHook(hook func(*types.CalculationRequest) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failureHook = hook
}

// SetDelay makes each calculation take at least d, for exercising timeouts
// and interruption
func (e *SimulatedEngine) SetDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = d
}

// OpenSessions returns the number of sessions opened but not yet closed
func (e *SimulatedEngine) OpenSessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openCount
}

// NewSession opens a simulated session
func (e *SimulatedEngine) NewSession(ctx context.Context) (interfaces.EngineSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.openCount++
	e.mu.Unlock()

	return &simulatedSession{engine: e}, nil
}

type simulatedSession struct {
	engine *SimulatedEngine

	mu     sync.Mutex
	closed bool
}

var _ interfaces.EngineSession = (*simulatedSession)(nil)

// CalculatePhaseDiagram synthesizes a diagram for the request
func (s *simulatedSession) CalculatePhaseDiagram(ctx context.Context, req *types.CalculationRequest) (*results.PhaseDiagramData, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.mu.Unlock()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.engine.mu.Lock()
	hook := s.engine.failureHook
	delay := s.engine.delay
	seed := s.engine.seed
	s.engine.mu.Unlock()

	if hook != nil {
		if err := hook(req); err != nil {
			return nil, err
		}
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Seed from the physical request, not the request ID, so reruns of the
	// same point reproduce the same diagram
	rng := rand.New(rand.NewSource(seed ^ int64(requestFingerprint(req))))
	data := synthesizeDiagram(rng, req)
	data.SortGroups()

	s.engine.logger.Debug("Simulated phase diagram",
		logger.WithField("groups", len(data.Groups)),
		logger.WithField("points", data.PointCount()))

	return data, nil
}

// Close releases the session. Safe to call more than once.
func (s *simulatedSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.engine.mu.Lock()
	s.engine.openCount--
	s.engine.mu.Unlock()
	return nil
}

// requestFingerprint hashes the physical content of a request
func requestFingerprint(req *types.CalculationRequest) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%g|%g|%s|%g|%g",
		req.Database,
		req.FirstAxis.Quantity.String(), req.FirstAxis.Min, req.FirstAxis.Max,
		req.SecondAxis.Quantity.String(), req.SecondAxis.Min, req.SecondAxis.Max)
	for _, cond := range req.Conditions {
		fmt.Fprintf(h, "|%s", cond.String())
	}
	return h.Sum64()
}

// synthesizeDiagram builds banded phase regions between the axis limits:
// a liquidus band on top, then alternating single and two-phase fields
// down to the bottom of the temperature range.
func synthesizeDiagram(rng *rand.Rand, req *types.CalculationRequest) *results.PhaseDiagramData {
	xMin, xMax := req.FirstAxis.Min, req.FirstAxis.Max
	tMin, tMax := req.SecondAxis.Min, req.SecondAxis.Max
	span := tMax - tMin

	solids := rng.Perm(len(simulatedPhases) - 1)
	regionCount := 2 + rng.Intn(3)

	labels := []string{simulatedPhases[0]}
	var prev string
	for i := 0; i < regionCount; i++ {
		phase := simulatedPhases[1+solids[i]]
		if prev != "" {
			labels = append(labels, prev+" + "+phase)
		}
		labels = append(labels, phase)
		prev = phase
	}

	// Jittered band boundaries from high to low temperature
	bounds := make([]float64, len(labels)+1)
	bounds[0] = tMax
	bounds[len(labels)] = tMin
	for i := 1; i < len(labels); i++ {
		frac := float64(i) / float64(len(labels))
		jitter := (rng.Float64() - 0.5) / float64(len(labels))
		bounds[i] = tMax - (frac+jitter*0.5)*span
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] > bounds[i-1] {
			bounds[i] = bounds[i-1]
		}
	}

	data := &results.PhaseDiagramData{}
	for i, label := range labels {
		hi, lo := bounds[i], bounds[i+1]
		if hi <= lo {
			continue
		}

		group := results.PhaseGroup{Label: label}
		for j, n := 0, 8+rng.Intn(8); j < n; j++ {
			group.X = append(group.X, xMin+(xMax-xMin)*rng.Float64())
			group.Y = append(group.Y, lo+(hi-lo)*rng.Float64())
		}
		data.Groups = append(data.Groups, group)
	}
	return data
}
