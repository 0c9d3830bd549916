// Package results persists and retrieves phase-diagram calculation results
package results

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

// PhaseGroup holds the calculated points sharing one set of stable phases.
// X and Y are parallel slices: X carries the grouped mole fractions, Y the
// matching temperatures.
type PhaseGroup struct {
	Label string    `json:"label"`
	X     []float64 `json:"x"`
	Y     []float64 `json:"y"`
}

// PhaseDiagramData is what one engine calculation returns: the diagram's
// points partitioned by stable-phase set, sorted by label.
type PhaseDiagramData struct {
	Groups []PhaseGroup `json:"groups"`
}

// SortGroups orders the groups by label so serialized results are stable
func (d *PhaseDiagramData) SortGroups() {
	sort.Slice(d.Groups, func(i, j int) bool {
		return d.Groups[i].Label < d.Groups[j].Label
	})
}

// GroupLabels returns the stable-phase labels in group order
func (d *PhaseDiagramData) GroupLabels() []string {
	labels := make([]string, len(d.Groups))
	for i, g := range d.Groups {
		labels[i] = g.Label
	}
	return labels
}

// PointCount returns the total number of calculated points across groups
func (d *PhaseDiagramData) PointCount() int {
	total := 0
	for _, g := range d.Groups {
		total += len(g.X)
	}
	return total
}

// Result is one persisted calculation: the composition it ran for, the
// database used, and the grouped diagram data. Produced once per grid
// point, serialized immediately, never mutated.
type Result struct {
	Composition  []types.ComponentFraction `json:"composition"`
	Database     string                    `json:"database"`
	RequestID    string                    `json:"requestId,omitempty"`
	CalculatedAt time.Time                 `json:"calculatedAt"`
	Data         PhaseDiagramData          `json:"data"`
}

// ResultInfo describes a stored result file without loading its payload
type ResultInfo struct {
	Path        string
	Name        string
	Composition []types.ComponentFraction
	Size        int64
	ModTime     time.Time
}

// FormatComposition renders a composition for logs and labels,
// e.g. "Al=0.050 Cr=0.650 Co=0.100 Fe=0.100 Ni=0.100"
func FormatComposition(comp []types.ComponentFraction) string {
	parts := make([]string, len(comp))
	for i, cf := range comp {
		parts[i] = fmt.Sprintf("%s=%.3f", cf.Element, RoundFraction(cf.Fraction))
	}
	return strings.Join(parts, " ")
}
