// Package identity implements the Identity & Authorization Gate. It
// consumes a verified caller identity from the external boundary and
// enforces capability checks; it never performs its own token signature
// verification.
package identity

import (
	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/model"
)

// Gate enforces capability rules on every core operation.
type Gate struct {
	adminCounter AdminCounter
}

// AdminCounter reports how many users currently hold system.admin, so the
// gate can refuse to let the last admin strip their own access.
type AdminCounter interface {
	SystemAdminCount() (int, error)
}

// New builds a Gate.
func New(adminCounter AdminCounter) *Gate {
	return &Gate{adminCounter: adminCounter}
}

// Authorize enforces that caller holds capability, returning
// PermissionDenied otherwise. The core never silently skips this check.
func (g *Gate) Authorize(caller *model.Caller, capability model.Capability) error {
	if caller == nil {
		return coreerr.New(coreerr.PermissionDenied, "no caller identity").WithField(string(capability))
	}
	if !caller.Has(capability) {
		return coreerr.New(coreerr.PermissionDenied, "missing capability: "+string(capability)).
			WithField(string(capability))
	}
	return nil
}

// CanManageTarget reports whether caller may manage a target user whose
// system.admin holding is given by targetIsSystemAdmin: a user.manage holder
// may manage any user without system.admin; only a system.admin may manage
// another system.admin.
func (g *Gate) CanManageTarget(caller *model.Caller, targetIsSystemAdmin bool) bool {
	if caller == nil {
		return false
	}
	if !caller.Has(model.CapabilityUserManage) {
		return false
	}
	if targetIsSystemAdmin {
		return caller.Has(model.CapabilitySystemAdmin)
	}
	return true
}

// ValidateSelfDemotion rejects a caller removing their own system.admin
// capability if doing so would leave zero system.admin holders.
func (g *Gate) ValidateSelfDemotion(caller *model.Caller, removingSystemAdmin bool) error {
	if !removingSystemAdmin {
		return nil
	}
	if !caller.Has(model.CapabilitySystemAdmin) {
		return nil
	}
	count, err := g.adminCounter.SystemAdminCount()
	if err != nil {
		return coreerr.Wrap(coreerr.Transient, "count system admins", err)
	}
	if count <= 1 {
		return coreerr.New(coreerr.PreconditionFailed, "cannot demote the last system.admin holder")
	}
	return nil
}
