package service

import (
	"github.com/openschool/gradebook-api/internal/models"
	"github.com/openschool/gradebook-api/pkg/config"
)

// schoolConfigProvider supplies the school configuration; the provider owns
// the reload policy.
type schoolConfigProvider interface {
	Get() config.SchoolConfig
}

// AdminResolver decides whether a user is the distinguished admin account.
// The decision is a pure function of configuration and username: there is no
// stored admin flag.
type AdminResolver struct {
	provider schoolConfigProvider
}

// NewAdminResolver constructs an AdminResolver.
func NewAdminResolver(provider schoolConfigProvider) *AdminResolver {
	return &AdminResolver{provider: provider}
}

// IsAdmin reports whether the user's username matches the configured admin
// username ("admin" when configuration is absent).
func (r *AdminResolver) IsAdmin(user *models.User) bool {
	if user == nil {
		return false
	}
	return user.Username == r.provider.Get().AdminUsername
}
