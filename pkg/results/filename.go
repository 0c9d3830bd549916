package results

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

// ResultFileExt is the extension of stored result files
const ResultFileExt = ".json"

// ErrBadResultName marks a filename that does not encode a composition
var ErrBadResultName = errors.New("filename does not encode a composition")

var filenamePartPattern = regexp.MustCompile(`^([A-Za-z]+)([0-9]+\.[0-9]{3})$`)

// RoundFraction rounds a mole fraction to three decimals, the precision
// encoded in result filenames
func RoundFraction(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// Filename encodes a composition as a deterministic result filename.
// Element symbols keep their composition order; every fraction is rounded
// to three decimals and printed with exactly three, so the same composition
// always maps to the same name, e.g.
// "Al0.050-Cr0.650-Co0.100-Fe0.100-Ni0.100.json".
func Filename(comp []types.ComponentFraction) string {
	parts := make([]string, len(comp))
	for i, cf := range comp {
		parts[i] = fmt.Sprintf("%s%.3f", cf.Element, RoundFraction(cf.Fraction))
	}
	return strings.Join(parts, "-") + ResultFileExt
}

// ParseFilename decodes a result filename back into its composition.
// It is the inverse of Filename over rounded fractions.
func ParseFilename(name string) ([]types.ComponentFraction, error) {
	base, ok := strings.CutSuffix(name, ResultFileExt)
	if !ok || base == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadResultName, name)
	}

	parts := strings.Split(base, "-")
	comp := make([]types.ComponentFraction, 0, len(parts))
	for _, part := range parts {
		m := filenamePartPattern.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("%w: %q has malformed part %q", ErrBadResultName, name, part)
		}
		fraction, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q has malformed fraction %q", ErrBadResultName, name, m[2])
		}
		comp = append(comp, types.ComponentFraction{Element: m[1], Fraction: fraction})
	}
	return comp, nil
}
