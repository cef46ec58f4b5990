package repository

import (
	"context"

	"github.com/travelportal/quote-api/internal/domain"
	"gorm.io/gorm"
)

type AgencyRepository struct {
	db *gorm.DB
}

func NewAgencyRepository(db *gorm.DB) *AgencyRepository {
	return &AgencyRepository{db: db}
}

func (r *AgencyRepository) Create(ctx context.Context, agency *domain.Agency) error {
	return r.db.WithContext(ctx).Create(agency).Error
}

// FindByUserID returns every agency mapped to the principal.
// The mapping is unique, so callers treat more than one row as an integrity failure.
func (r *AgencyRepository) FindByUserID(ctx context.Context, userID string) ([]domain.Agency, error) {
	var agencies []domain.Agency
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(2).
		Find(&agencies).Error
	return agencies, err
}
