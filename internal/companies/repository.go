package companies

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no company matches the given id.
var ErrNotFound = errors.New("company not found")

// Repository provides access to company profiles.
type Repository interface {
	Create(ctx context.Context, company *Company) error
	GetByID(ctx context.Context, id uuid.UUID) (*Company, error)
	ListBySector(ctx context.Context, sector string, exclude uuid.UUID) ([]Company, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed company repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, company *Company) error {
	if err := r.db.WithContext(ctx).Create(company).Error; err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Company, error) {
	var company Company
	err := r.db.WithContext(ctx).First(&company, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &company, nil
}

func (r *gormRepository) ListBySector(ctx context.Context, sector string, exclude uuid.UUID) ([]Company, error) {
	var peers []Company
	err := r.db.WithContext(ctx).
		Where("sector = ? AND id <> ?", sector, exclude).
		Find(&peers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sector peers: %w", err)
	}
	return peers, nil
}
