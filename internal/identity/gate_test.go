package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/identity"
	"github.com/aerocal/gaugecore/internal/model"
)

type fakeAdminCounter struct {
	count int
	err   error
}

func (f fakeAdminCounter) SystemAdminCount() (int, error) { return f.count, f.err }

func TestAuthorizeRejectsNilCaller(t *testing.T) {
	g := identity.New(fakeAdminCounter{count: 2})
	err := g.Authorize(nil, model.CapabilityGaugeView)
	require.Error(t, err)
	assert.Equal(t, coreerr.PermissionDenied, coreerr.KindOf(err))
}

func TestAuthorizeRejectsMissingCapability(t *testing.T) {
	g := identity.New(fakeAdminCounter{count: 2})
	caller := &model.Caller{UserID: "alice", Permissions: []model.Capability{model.CapabilityGaugeView}}
	err := g.Authorize(caller, model.CapabilityGaugeManage)
	require.Error(t, err)
	assert.Equal(t, coreerr.PermissionDenied, coreerr.KindOf(err))
}

func TestAuthorizeAllowsHeldCapability(t *testing.T) {
	g := identity.New(fakeAdminCounter{count: 2})
	caller := &model.Caller{UserID: "alice", Permissions: []model.Capability{model.CapabilityGaugeView}}
	assert.NoError(t, g.Authorize(caller, model.CapabilityGaugeView))
}

func TestValidateSelfDemotionBlocksTheLastSystemAdmin(t *testing.T) {
	g := identity.New(fakeAdminCounter{count: 1})
	caller := &model.Caller{UserID: "alice", Permissions: []model.Capability{model.CapabilitySystemAdmin}}
	err := g.ValidateSelfDemotion(caller, true)
	require.Error(t, err)
	assert.Equal(t, coreerr.PreconditionFailed, coreerr.KindOf(err))
}

func TestValidateSelfDemotionAllowsWhenAnotherAdminRemains(t *testing.T) {
	g := identity.New(fakeAdminCounter{count: 2})
	caller := &model.Caller{UserID: "alice", Permissions: []model.Capability{model.CapabilitySystemAdmin}}
	assert.NoError(t, g.ValidateSelfDemotion(caller, true))
}

func TestValidateSelfDemotionIgnoresNonAdminCapabilityChanges(t *testing.T) {
	g := identity.New(fakeAdminCounter{count: 0})
	caller := &model.Caller{UserID: "alice"}
	assert.NoError(t, g.ValidateSelfDemotion(caller, false))
}

func TestCanManageTargetRequiresSystemAdminToManageAnotherAdmin(t *testing.T) {
	g := identity.New(fakeAdminCounter{count: 2})
	manager := &model.Caller{UserID: "alice", Permissions: []model.Capability{model.CapabilityUserManage}}
	assert.False(t, g.CanManageTarget(manager, true))

	superAdmin := &model.Caller{UserID: "bob", Permissions: []model.Capability{model.CapabilityUserManage, model.CapabilitySystemAdmin}}
	assert.True(t, g.CanManageTarget(superAdmin, true))
}
