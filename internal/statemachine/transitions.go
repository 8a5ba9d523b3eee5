package statemachine

import "github.com/aerocal/gaugecore/internal/model"

// legalTransitions is the from->to adjacency built from the gauge lifecycle
// transition table. A missing entry is illegal.
var legalTransitions = map[model.Status]map[model.Status]bool{
	model.StatusAvailable: {
		model.StatusCheckedOut:      true,
		model.StatusOutForCalibration: true,
		model.StatusOutOfService:    true,
		model.StatusRetired:         true,
		model.StatusPendingQC:       true,
	},
	model.StatusCheckedOut: {
		model.StatusAvailable:    true,
		model.StatusOutOfService: true,
		model.StatusRetired:      true,
		model.StatusPendingQC:    true,
	},
	model.StatusOutForCalibration: {
		model.StatusPendingCertificate: true,
		model.StatusOutOfService:       true,
		model.StatusRetired:            true,
	},
	model.StatusPendingCertificate: {
		model.StatusPendingRelease: true,
		model.StatusOutOfService:   true,
		model.StatusRetired:        true,
	},
	model.StatusPendingRelease: {
		model.StatusAvailable:    true,
		model.StatusOutOfService: true,
		model.StatusRetired:      true,
	},
	model.StatusReturned: {
		model.StatusAvailable:    true,
		model.StatusOutOfService: true,
		model.StatusRetired:      true,
	},
	model.StatusPendingQC: {
		model.StatusAvailable:    true,
		model.StatusOutOfService: true,
		model.StatusRetired:      true,
	},
	model.StatusOutOfService: {
		model.StatusAvailable:      true,
		model.StatusOutForCalibration: true,
		model.StatusRetired:        true,
	},
	model.StatusRetired: {},
}

// IsLegal reports whether from -> to appears in the transition table.
func IsLegal(from, to model.Status) bool {
	next, ok := legalTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// Scope says whether a transition moves just the gauge or its whole cohort.
type Scope int

const (
	ScopeCohort Scope = iota
	ScopeSingle
)

// scopeForTarget implements the cohort rule: out_of_service/retired move
// only the gauge requested; every other transition carries its paired
// companion along.
func scopeForTarget(to model.Status) Scope {
	switch to {
	case model.StatusOutOfService, model.StatusRetired:
		return ScopeSingle
	default:
		return ScopeCohort
	}
}
