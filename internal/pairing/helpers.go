package pairing

import (
	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/model"
)

func validateSpare(g model.Gauge) error {
	if g.EquipmentType != model.EquipmentThreadGauge {
		return coreerr.New(coreerr.PreconditionFailed, "gauge is not a thread gauge").WithField("equipment_type")
	}
	if !g.IsSpareThreadGauge() {
		return coreerr.New(coreerr.PreconditionFailed, "gauge is not an unpaired spare").WithField("gauge_id")
	}
	if g.Status != model.StatusAvailable {
		return coreerr.New(coreerr.PreconditionFailed, "spare must be available").WithField("status")
	}
	return nil
}

func pickPair(gauges []model.Gauge, goID, nogoID int64) (goG, nogoG model.Gauge, err error) {
	byID := indexByID(gauges)
	g, ok := byID[goID]
	if !ok {
		return model.Gauge{}, model.Gauge{}, coreerr.New(coreerr.NotFound, "go spare not found")
	}
	n, ok := byID[nogoID]
	if !ok {
		return model.Gauge{}, model.Gauge{}, coreerr.New(coreerr.NotFound, "no-go spare not found")
	}
	return g, n, nil
}

func splitMembers(members []model.Gauge, oldMemberID int64) (oldMember, retained model.Gauge, err error) {
	if len(members) != 2 {
		return model.Gauge{}, model.Gauge{}, coreerr.New(coreerr.InvariantViolation, "set does not have exactly two members")
	}
	for _, g := range members {
		if g.ID == oldMemberID {
			oldMember = g
		} else {
			retained = g
		}
	}
	if oldMember.ID == 0 {
		return model.Gauge{}, model.Gauge{}, coreerr.New(coreerr.NotFound, "member not found in set")
	}
	return oldMember, retained, nil
}

func splitForReplace(locked []model.Gauge, oldID, retainedID, newSpareID int64) (old, retained, spare model.Gauge, err error) {
	byID := indexByID(locked)
	old, ok := byID[oldID]
	if !ok {
		return model.Gauge{}, model.Gauge{}, model.Gauge{}, coreerr.New(coreerr.NotFound, "member not found")
	}
	retained, ok = byID[retainedID]
	if !ok {
		return model.Gauge{}, model.Gauge{}, model.Gauge{}, coreerr.New(coreerr.NotFound, "partner not found")
	}
	spare, ok = byID[newSpareID]
	if !ok {
		return model.Gauge{}, model.Gauge{}, model.Gauge{}, coreerr.New(coreerr.NotFound, "replacement spare not found")
	}
	return old, retained, spare, nil
}

func matchesThreadSpec(a, b *model.ThreadSpecification) bool {
	if a == nil || b == nil {
		return false
	}
	return a.ThreadSize == b.ThreadSize && a.ThreadForm == b.ThreadForm && a.ThreadClass == b.ThreadClass
}

func indexByID(gauges []model.Gauge) map[int64]model.Gauge {
	out := make(map[int64]model.Gauge, len(gauges))
	for _, g := range gauges {
		out[g.ID] = g
	}
	return out
}

func statusPtr(s model.Status) *model.Status {
	return &s
}
