package gaugestore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aerocal/gaugecore/internal/model"
)

// unitSymbols maps a hand-tool measurement unit to its display symbol.
var unitSymbols = map[string]string{
	"inch": `"`,
	"mm":   "mm",
	"deg":  "°",
	"psi":  " PSI",
	"bar":  " bar",
	"cm":   "cm",
	"ft":   "ft",
}

// fractionalSizes is the ANSI B1.1 table of common fractional thread sizes
// to their decimal equivalent.
var fractionalSizes = map[string]string{
	"1/4":   ".250",
	"5/16":  ".3125",
	"3/8":   ".375",
	"7/16":  ".4375",
	"1/2":   ".500",
	"9/16":  ".5625",
	"5/8":   ".625",
	"3/4":   ".750",
	"7/8":   ".875",
	"1":     "1.000",
}

// numberedSizes is the ANSI B1.1 table of numbered screw sizes to their
// decimal major-diameter equivalent.
var numberedSizes = map[string]string{
	"0":  ".060",
	"1":  ".073",
	"2":  ".086",
	"3":  ".099",
	"4":  ".112",
	"5":  ".125",
	"6":  ".138",
	"8":  ".164",
	"10": ".190",
	"12": ".216",
}

// displayName computes the deterministic display name for a gauge from its
// current fields and specification.
func displayName(g *model.Gauge) string {
	switch g.EquipmentType {
	case model.EquipmentThreadGauge:
		if g.IsSpareThreadGauge() {
			return "S/N " + g.SerialNumber
		}
		return threadDisplayName(g)
	case model.EquipmentHandTool:
		return handToolDisplayName(g)
	case model.EquipmentLargeEquipment:
		return largeEquipmentDisplayName(g)
	case model.EquipmentCalibrationStandard:
		return calibrationStandardDisplayName(g)
	default:
		return g.SerialNumber
	}
}

func threadDisplayName(g *model.Gauge) string {
	if g.Spec.Thread == nil {
		return g.SerialNumber
	}
	t := g.Spec.Thread
	decimal := decimalThreadSize(t.ThreadSize)
	goNoGo := "GO"
	if g.Suffix != nil && *g.Suffix == model.SuffixNoGo {
		goNoGo = "NO GO"
	}
	return fmt.Sprintf("%s %s %s Thread %s Gauge", decimal, t.ThreadForm, t.ThreadClass, goNoGo)
}

// decimalThreadSize converts a thread size expressed as a fraction
// ("1/4-20"), a numbered size ("10-24"), or an already-decimal size
// (".250-20") to its decimal form with the pitch/TPI suffix preserved.
func decimalThreadSize(size string) string {
	major, rest, ok := strings.Cut(size, "-")
	if !ok {
		return size
	}
	if strings.HasPrefix(major, ".") {
		return size
	}
	if strings.Contains(major, "/") {
		if dec, ok := fractionalSizes[major]; ok {
			return dec + "-" + rest
		}
		return size
	}
	if _, err := strconv.Atoi(major); err == nil {
		if dec, ok := numberedSizes[major]; ok {
			return dec + "-" + rest
		}
	}
	return size
}

func handToolDisplayName(g *model.Gauge) string {
	if g.Spec.HandTool == nil {
		return g.SerialNumber
	}
	h := g.Spec.HandTool
	symbol := unitSymbols[h.Unit]
	return fmt.Sprintf("%s-%s%s %s", trimFloat(h.RangeMin), trimFloat(h.RangeMax), symbol, h.ToolFormat)
}

func largeEquipmentDisplayName(g *model.Gauge) string {
	if g.Spec.LargeEquipment == nil {
		return g.SerialNumber
	}
	le := g.Spec.LargeEquipment
	if le.Capacity == "" {
		return le.Type
	}
	return fmt.Sprintf("%s (%s)", le.Type, le.Capacity)
}

func calibrationStandardDisplayName(g *model.Gauge) string {
	if g.Spec.CalibrationStandard == nil {
		return g.SerialNumber
	}
	cs := g.Spec.CalibrationStandard
	return fmt.Sprintf("%s %s %s", cs.StandardType, cs.NominalValue, cs.UncertaintyUnits)
}

// trimFloat formats a float without a trailing ".0" for whole numbers.
func trimFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	return s
}
