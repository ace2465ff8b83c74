package emissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository provides access to emission records and line items. Transaction
// runs a function against a repository bound to one database transaction, so a
// mutate-recompute-persist sequence commits or rolls back as a unit.
type Repository interface {
	CreateRecord(ctx context.Context, record *EmissionRecord) error
	GetRecord(ctx context.Context, id uuid.UUID) (*EmissionRecord, error)
	GetRecordForCompany(ctx context.Context, companyID uuid.UUID, year int, period string) (*EmissionRecord, error)
	SaveRecord(ctx context.Context, record *EmissionRecord) error

	CreateLineItem(ctx context.Context, item *EmissionLineItem) error
	GetLineItem(ctx context.Context, id uuid.UUID) (*EmissionLineItem, error)
	SoftDeleteLineItem(ctx context.Context, id uuid.UUID) error
	ListActiveLineItems(ctx context.Context, recordID uuid.UUID) ([]EmissionLineItem, error)

	Transaction(ctx context.Context, fn func(Repository) error) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed emissions repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateRecord(ctx context.Context, record *EmissionRecord) error {
	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicatePeriod
		}
		return fmt.Errorf("failed to create emission record: %w", err)
	}
	return nil
}

func (r *gormRepository) GetRecord(ctx context.Context, id uuid.UUID) (*EmissionRecord, error) {
	var record EmissionRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get emission record: %w", err)
	}
	return &record, nil
}

func (r *gormRepository) GetRecordForCompany(ctx context.Context, companyID uuid.UUID, year int, period string) (*EmissionRecord, error) {
	var record EmissionRecord
	err := r.db.WithContext(ctx).
		First(&record, "company_id = ? AND reporting_year = ? AND reporting_period = ?", companyID, year, period).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get emission record: %w", err)
	}
	return &record, nil
}

func (r *gormRepository) SaveRecord(ctx context.Context, record *EmissionRecord) error {
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("failed to save emission record: %w", err)
	}
	return nil
}

func (r *gormRepository) CreateLineItem(ctx context.Context, item *EmissionLineItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create line item: %w", err)
	}
	return nil
}

func (r *gormRepository) GetLineItem(ctx context.Context, id uuid.UUID) (*EmissionLineItem, error) {
	var item EmissionLineItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get line item: %w", err)
	}
	return &item, nil
}

func (r *gormRepository) SoftDeleteLineItem(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&EmissionLineItem{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete line item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormRepository) ListActiveLineItems(ctx context.Context, recordID uuid.UUID) ([]EmissionLineItem, error) {
	var items []EmissionLineItem
	err := r.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}
	return items, nil
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}
