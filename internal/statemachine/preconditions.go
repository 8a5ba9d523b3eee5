package statemachine

import (
	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/model"
)

// Preconditions carries the cross-component facts the state machine cannot
// derive from the gauge row alone: whether another employee already holds
// the gauge, batch membership, certificate status, and so on. The calling
// component (checkout/batch/certificate) owns that data and supplies it
// here; the state machine only enforces the rule.
type Preconditions struct {
	// -> checked_out
	HeldByAnotherEmployee bool
	SealedPendingUnseal   bool

	// -> out_for_calibration
	InAnotherActiveBatch bool

	// out_for_calibration -> pending_certificate
	CalibrationPassed bool

	// pending_certificate -> pending_release
	HasCurrentCertificate          bool
	CompanionHasCurrentCertificate bool
	CompanionInPendingCertificate  bool

	// pending_release -> available
	StorageLocationRef *string
}

// checkPrecondition enforces the starred preconditions attached to a
// transition. gauge is the requested gauge; companion is nil when
// unpaired.
func checkPrecondition(from, to model.Status, gauge, companion *model.Gauge, pre Preconditions) error {
	switch to {
	case model.StatusCheckedOut:
		if pre.HeldByAnotherEmployee {
			return coreerr.New(coreerr.PreconditionFailed, "gauge is employee-owned by another user")
		}
		if pre.SealedPendingUnseal {
			return coreerr.New(coreerr.PreconditionFailed, "gauge is sealed pending unseal approval")
		}

	case model.StatusOutForCalibration:
		if pre.InAnotherActiveBatch {
			return coreerr.New(coreerr.PreconditionFailed, "gauge is already in an active calibration batch")
		}
		if from != model.StatusAvailable && from != model.StatusOutOfService {
			return coreerr.New(coreerr.PreconditionFailed, "gauge must be available or out of service to send for calibration")
		}

	case model.StatusPendingCertificate:
		if from != model.StatusOutForCalibration {
			return coreerr.New(coreerr.PreconditionFailed, "gauge must be out for calibration")
		}
		if !pre.CalibrationPassed {
			return coreerr.New(coreerr.PreconditionFailed, "calibration must have passed to enter pending_certificate")
		}

	case model.StatusPendingRelease:
		if from != model.StatusPendingCertificate {
			return nil
		}
		if !pre.HasCurrentCertificate {
			return coreerr.New(coreerr.PreconditionFailed, "gauge has no current certificate")
		}
		if companion != nil {
			if !pre.CompanionInPendingCertificate || !pre.CompanionHasCurrentCertificate {
				return coreerr.New(coreerr.AwaitingCompanionCertificate, "companion does not yet have a current certificate")
			}
		}

	case model.StatusAvailable:
		if from == model.StatusPendingRelease {
			if pre.StorageLocationRef == nil || *pre.StorageLocationRef == "" {
				if gauge.StorageLocationRef == nil || *gauge.StorageLocationRef == "" {
					return coreerr.New(coreerr.PreconditionFailed, "storage location must be set to release a gauge")
				}
			}
		}
	}
	return nil
}
