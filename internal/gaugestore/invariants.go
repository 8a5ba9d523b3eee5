package gaugestore

import (
	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/model"
)

// validateInvariants enforces the shape rules checkable without a database
// round trip: serial presence, gauge_id/suffix agreement, and companion
// reciprocity. Serial uniqueness among non-retired gauges needs a round
// trip and is enforced by a partial unique index instead.
func validateInvariants(g *model.Gauge, companion *model.Gauge) error {
	if g.EquipmentType == model.EquipmentThreadGauge && g.SerialNumber == "" {
		return coreerr.New(coreerr.InvariantViolation, "thread gauges require a serial number").WithField("serial_number")
	}

	if g.GaugeID != nil && g.Suffix != nil {
		gaugeID := *g.GaugeID
		if len(gaugeID) == 0 || gaugeID[len(gaugeID)-1:] != string(*g.Suffix) {
			return coreerr.New(coreerr.InvariantViolation, "gauge_id suffix must match the last character of gauge_id").WithField("gauge_id")
		}
	}

	if g.CompanionID != nil {
		if companion == nil {
			return coreerr.New(coreerr.InvariantViolation, "companion reference does not resolve").WithField("companion_id")
		}
		if companion.CompanionID == nil || *companion.CompanionID != g.ID {
			return coreerr.New(coreerr.InvariantViolation, "companion reference is not bidirectional").WithField("companion_id")
		}
		if g.GaugeID == nil || companion.GaugeID == nil || *g.GaugeID != *companion.GaugeID {
			return coreerr.New(coreerr.InvariantViolation, "paired gauges must share the same gauge_id").WithField("gauge_id")
		}
		if g.Suffix == nil || companion.Suffix == nil || *g.Suffix == *companion.Suffix {
			return coreerr.New(coreerr.InvariantViolation, "paired gauges must have opposite suffixes").WithField("gauge_suffix")
		}
	}

	return nil
}
