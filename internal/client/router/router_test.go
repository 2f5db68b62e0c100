package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pipersmart/internal/domain"
)

func TestNothingMountedBeforeFirstApply(t *testing.T) {
	r := New()
	assert.Equal(t, TreeNone, r.Current())
	assert.Zero(t, r.Remounts())
}

func TestStandardRoleMountsStandardTree(t *testing.T) {
	r := New()
	r.Apply(&domain.Summary{Role: domain.RoleUser})
	assert.Equal(t, TreeStandard, r.Current())
}

func TestAdminRoleMountsAdminTree(t *testing.T) {
	r := New()
	r.Apply(&domain.Summary{Role: domain.RoleAdmin})
	assert.Equal(t, TreeAdmin, r.Current())
}

func TestNoUserMountsStandardTree(t *testing.T) {
	r := New()
	r.Apply(nil)
	assert.Equal(t, TreeStandard, r.Current())
}

func TestIdenticalRoleEventsAreAbsorbed(t *testing.T) {
	r := New()
	r.Apply(&domain.Summary{Role: domain.RoleUser})
	r.Apply(&domain.Summary{Role: domain.RoleUser})
	r.Apply(&domain.Summary{Role: domain.RoleUser})

	assert.Equal(t, TreeStandard, r.Current())
	assert.Equal(t, 1, r.Remounts())
}

func TestRoleChangeRemounts(t *testing.T) {
	r := New()

	var mounted []Tree
	r.OnMount = func(tree Tree) { mounted = append(mounted, tree) }

	r.Apply(&domain.Summary{Role: domain.RoleUser})
	r.Apply(&domain.Summary{Role: domain.RoleAdmin})
	r.Apply(&domain.Summary{Role: domain.RoleAdmin})

	assert.Equal(t, TreeAdmin, r.Current())
	assert.Equal(t, []Tree{TreeStandard, TreeAdmin}, mounted)
}

func TestLogoutFromAdminLandsOnStandardTree(t *testing.T) {
	r := New()
	r.Apply(&domain.Summary{Role: domain.RoleAdmin})
	r.Apply(nil)

	assert.Equal(t, TreeStandard, r.Current())
	assert.Equal(t, 2, r.Remounts())
}

func TestLogoutWhileStandardDoesNotRemount(t *testing.T) {
	r := New()
	r.Apply(&domain.Summary{Role: domain.RoleUser})
	r.Apply(nil)

	assert.Equal(t, TreeStandard, r.Current())
	assert.Equal(t, 1, r.Remounts())
}
