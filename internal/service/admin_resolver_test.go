package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openschool/gradebook-api/internal/models"
	"github.com/openschool/gradebook-api/pkg/config"
)

func TestIsAdminMatchesConfiguredUsername(t *testing.T) {
	resolver := NewAdminResolver(&stubSchoolProvider{cfg: config.SchoolConfig{AdminUsername: "principal"}})

	assert.True(t, resolver.IsAdmin(&models.User{Username: "principal", Role: models.RoleTeacher}))
	assert.False(t, resolver.IsAdmin(&models.User{Username: "alice", Role: models.RoleTeacher}))
	assert.False(t, resolver.IsAdmin(nil))
}

func TestIsAdminFollowsConfigChange(t *testing.T) {
	provider := &stubSchoolProvider{cfg: config.SchoolConfig{AdminUsername: "admin"}}
	resolver := NewAdminResolver(provider)

	user := &models.User{Username: "admin", Role: models.RoleTeacher}
	assert.True(t, resolver.IsAdmin(user))

	// Renaming the admin in config immediately demotes the old account.
	provider.cfg.AdminUsername = "principal"
	assert.False(t, resolver.IsAdmin(user))
}
