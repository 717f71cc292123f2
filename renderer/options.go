package renderer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/use-agent/htmlrender/models"
)

// Paper sizes in inches, width x height, portrait.
var paperFormats = map[string][2]float64{
	"letter":  {8.5, 11},
	"legal":   {8.5, 14},
	"tabloid": {11, 17},
	"ledger":  {17, 11},
	"a0":      {33.1, 46.8},
	"a1":      {23.4, 33.1},
	"a2":      {16.54, 23.4},
	"a3":      {11.7, 16.54},
	"a4":      {8.27, 11.7},
	"a5":      {5.83, 8.27},
	"a6":      {4.13, 5.83},
}

const (
	defaultFormat = "A4"
	defaultMargin = "1cm"
)

// CSS pixels per unit.
var unitToPixels = map[string]float64{
	"px": 1,
	"in": 96,
	"cm": 37.8,
	"mm": 3.78,
}

// paperSize looks up a format name case-insensitively.
func paperSize(name string) (width, height float64, err error) {
	size, ok := paperFormats[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, 0, models.InvalidInput(fmt.Sprintf("unknown paper format: %q", name))
	}
	return size[0], size[1], nil
}

// lengthToInches converts a CSS length such as "1cm", "12.5mm", "0.5in",
// "20px" or a bare number (pixels) to inches.
func lengthToInches(s string) (float64, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return 0, models.InvalidInput("empty margin value")
	}

	unit := "px"
	if len(v) > 2 {
		if _, ok := unitToPixels[v[len(v)-2:]]; ok {
			unit = v[len(v)-2:]
			v = strings.TrimSpace(v[:len(v)-2])
		}
	}

	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, models.InvalidInput(fmt.Sprintf("invalid margin value: %q", s))
	}
	return n * unitToPixels[unit] / 96, nil
}

// marginSide resolves one side, falling back to the default when unset.
func marginSide(v *models.CSSLength) (float64, error) {
	if v == nil {
		return lengthToInches(defaultMargin)
	}
	return lengthToInches(string(*v))
}
