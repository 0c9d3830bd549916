// Package mesh generates composition grids for phase-diagram sweeps
package mesh

import (
	"errors"
	"fmt"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

// Validation errors returned by Spec.Validate.
var (
	ErrTooFewElements   = errors.New("mesh requires at least two elements")
	ErrTooFewPoints     = errors.New("mesh requires at least three grid points")
	ErrChangingCount    = errors.New("mesh requires exactly two changing-element indices")
	ErrIndexOutOfRange  = errors.New("element index out of range")
	ErrIndexOverlap     = errors.New("changing and constant element indices overlap")
	ErrNegativeFraction = errors.New("constant concentration leaves a negative sweep range")
)

// Spec describes one composition grid: which elements vary, which are held
// constant, and at what concentration.
type Spec struct {
	Elements              []string
	Points                int
	ChangingIndices       []int
	ConstantIndices       []int
	ConstantConcentration float64
}

// Validate rejects specs that cannot produce a grid of valid mole fractions.
// Configurations whose sweep range 1-m*c would go negative are rejected, not
// clamped.
func (s Spec) Validate() error {
	if len(s.Elements) < 2 {
		return fmt.Errorf("%w: got %d", ErrTooFewElements, len(s.Elements))
	}
	if s.Points < 3 {
		return fmt.Errorf("%w: got %d", ErrTooFewPoints, s.Points)
	}
	if len(s.ChangingIndices) != 2 {
		return fmt.Errorf("%w: got %d", ErrChangingCount, len(s.ChangingIndices))
	}
	if s.ChangingIndices[0] == s.ChangingIndices[1] {
		return fmt.Errorf("%w: changing index %d repeated", ErrIndexOverlap, s.ChangingIndices[0])
	}

	seen := make(map[int]bool, len(s.ChangingIndices)+len(s.ConstantIndices))
	for _, idx := range s.ChangingIndices {
		if idx < 0 || idx >= len(s.Elements) {
			return fmt.Errorf("%w: changing index %d with %d elements", ErrIndexOutOfRange, idx, len(s.Elements))
		}
		seen[idx] = true
	}
	for _, idx := range s.ConstantIndices {
		if idx < 0 || idx >= len(s.Elements) {
			return fmt.Errorf("%w: constant index %d with %d elements", ErrIndexOutOfRange, idx, len(s.Elements))
		}
		if seen[idx] {
			return fmt.Errorf("%w: index %d", ErrIndexOverlap, idx)
		}
		seen[idx] = true
	}

	if s.ConstantConcentration < 0 {
		return fmt.Errorf("%w: constant concentration %v is negative", ErrNegativeFraction, s.ConstantConcentration)
	}
	if s.SweepMax() < 0 {
		return fmt.Errorf("%w: 1 - %d*%v = %v", ErrNegativeFraction,
			len(s.ConstantIndices), s.ConstantConcentration, s.SweepMax())
	}
	return nil
}

// SweepMax returns the upper bound of the first changing element's sweep,
// 1 minus the total allocation of the constant elements.
func (s Spec) SweepMax() float64 {
	return 1 - float64(len(s.ConstantIndices))*s.ConstantConcentration
}

// Generate validates the spec and fills the composition grid. Column i holds
// the mole fractions of all elements at sweep step i: the first changing
// element walks linearly from 0 to SweepMax, the second takes the remainder,
// and every constant element keeps its fixed concentration. Elements in
// neither set stay at zero.
func (s Spec) Generate() (*Grid, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	rows := len(s.Elements)
	data := make([]float64, rows*s.Points)
	fractions := linspace(0, s.SweepMax(), s.Points)
	constantTotal := float64(len(s.ConstantIndices)) * s.ConstantConcentration

	for i := 0; i < s.Points; i++ {
		for _, idx := range s.ConstantIndices {
			data[idx*s.Points+i] = s.ConstantConcentration
		}
		data[s.ChangingIndices[0]*s.Points+i] = fractions[i]
		data[s.ChangingIndices[1]*s.Points+i] = 1 - fractions[i] - constantTotal
	}

	return &Grid{
		elements: s.Elements,
		points:   s.Points,
		data:     data,
	}, nil
}

// Grid is a rows-by-points matrix of mole fractions stored row-major in a
// flat slice. Rows follow element-list order; columns are grid points. Every
// column sums to 1.
type Grid struct {
	elements []string
	points   int
	data     []float64
}

// Rows returns the number of element rows
func (g *Grid) Rows() int { return len(g.elements) }

// Points returns the number of grid columns
func (g *Grid) Points() int { return g.points }

// Elements returns the element symbols in row order
func (g *Grid) Elements() []string { return g.elements }

// At returns the mole fraction of element row at grid column col.
// Indices must be in range.
func (g *Grid) At(row, col int) float64 {
	return g.data[row*g.points+col]
}

// Column returns a copy of all element fractions at grid column col
func (g *Grid) Column(col int) []float64 {
	out := make([]float64, len(g.elements))
	for row := range g.elements {
		out[row] = g.data[row*g.points+col]
	}
	return out
}

// ColumnSum returns the total of all fractions at grid column col
func (g *Grid) ColumnSum(col int) float64 {
	sum := 0.0
	for row := range g.elements {
		sum += g.data[row*g.points+col]
	}
	return sum
}

// Composition returns the labeled composition at grid column col,
// preserving element order
func (g *Grid) Composition(col int) []types.ComponentFraction {
	out := make([]types.ComponentFraction, len(g.elements))
	for row, element := range g.elements {
		out[row] = types.ComponentFraction{
			Element:  element,
			Fraction: g.data[row*g.points+col],
		}
	}
	return out
}

// linspace returns n evenly spaced values from start to stop, both
// inclusive. n must be at least 2. The last value is set to stop exactly so
// accumulated rounding never shifts the endpoint.
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	out[n-1] = stop
	return out
}
