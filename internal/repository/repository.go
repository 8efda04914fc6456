package repository

import (
	"github.com/reviewloop/review-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	Tenant   TenantRepository
	Location LocationRepository
	Review   ReviewRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		Tenant:   NewTenantRepository(db),
		Location: NewLocationRepository(db),
		Review:   NewReviewRepository(db),
	}
}
