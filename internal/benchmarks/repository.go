package benchmarks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"carbonos/carbon-engine-backend/internal/emissions"
)

// ErrNoValidatedData is returned when the company has no validated record for
// the requested year.
var ErrNoValidatedData = errors.New("no validated emission data for company")

// Repository reads validated emission data for benchmarking. Only validated
// records enter any aggregate: drafts and submissions are invisible to peers.
type Repository interface {
	CompanyRecord(ctx context.Context, companyID uuid.UUID, year int) (*emissions.EmissionRecord, error)
	LatestCompanyRecord(ctx context.Context, companyID uuid.UUID) (*emissions.EmissionRecord, error)
	SectorStats(ctx context.Context, sector string, year int, exclude uuid.UUID) (SectorStats, error)
	CompanyTotalsByYear(ctx context.Context, companyID uuid.UUID, fromYear int) (map[int]float64, error)
	SectorAveragesByYear(ctx context.Context, sector string, fromYear int) (map[int]float64, error)
	LineItems(ctx context.Context, recordID uuid.UUID) ([]emissions.EmissionLineItem, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed benchmark repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CompanyRecord(ctx context.Context, companyID uuid.UUID, year int) (*emissions.EmissionRecord, error) {
	var record emissions.EmissionRecord
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND reporting_year = ? AND status = ?", companyID, year, emissions.StatusValidated).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoValidatedData
		}
		return nil, fmt.Errorf("failed to load company record: %w", err)
	}
	return &record, nil
}

func (r *gormRepository) LatestCompanyRecord(ctx context.Context, companyID uuid.UUID) (*emissions.EmissionRecord, error) {
	var record emissions.EmissionRecord
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND status = ?", companyID, emissions.StatusValidated).
		Order("reporting_year DESC, created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoValidatedData
		}
		return nil, fmt.Errorf("failed to load latest company record: %w", err)
	}
	return &record, nil
}

func (r *gormRepository) SectorStats(ctx context.Context, sector string, year int, exclude uuid.UUID) (SectorStats, error) {
	var stats SectorStats
	err := r.db.WithContext(ctx).
		Model(&emissions.EmissionRecord{}).
		Select(`COALESCE(AVG(scope1_total), 0) AS avg_scope1,
			COALESCE(AVG(scope2_total), 0) AS avg_scope2,
			COALESCE(AVG(scope3_total), 0) AS avg_scope3,
			COALESCE(AVG(total_emissions), 0) AS avg_total,
			COALESCE(MIN(total_emissions), 0) AS min_total,
			COALESCE(MAX(total_emissions), 0) AS max_total,
			COALESCE(AVG(total_emissions / NULLIF(companies.employee_count, 0)), 0) AS avg_per_employee,
			COALESCE(MIN(total_emissions / NULLIF(companies.employee_count, 0)), 0) AS min_per_employee,
			COALESCE(MAX(total_emissions / NULLIF(companies.employee_count, 0)), 0) AS max_per_employee,
			COUNT(emission_records.id) AS company_count`).
		Joins("JOIN companies ON companies.id = emission_records.company_id AND companies.deleted_at IS NULL").
		Where("companies.sector = ? AND companies.id <> ?", sector, exclude).
		Where("emission_records.reporting_year = ? AND emission_records.status = ?", year, emissions.StatusValidated).
		Scan(&stats).Error
	if err != nil {
		return SectorStats{}, fmt.Errorf("failed to aggregate sector stats: %w", err)
	}
	return stats, nil
}

func (r *gormRepository) CompanyTotalsByYear(ctx context.Context, companyID uuid.UUID, fromYear int) (map[int]float64, error) {
	var rows []yearTotal
	err := r.db.WithContext(ctx).
		Model(&emissions.EmissionRecord{}).
		Select("reporting_year, total_emissions AS total").
		Where("company_id = ? AND reporting_year >= ? AND status = ?", companyID, fromYear, emissions.StatusValidated).
		Order("reporting_year ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load company totals by year: %w", err)
	}
	return byYear(rows), nil
}

func (r *gormRepository) SectorAveragesByYear(ctx context.Context, sector string, fromYear int) (map[int]float64, error) {
	var rows []yearTotal
	err := r.db.WithContext(ctx).
		Model(&emissions.EmissionRecord{}).
		Select("reporting_year, AVG(total_emissions) AS total").
		Joins("JOIN companies ON companies.id = emission_records.company_id AND companies.deleted_at IS NULL").
		Where("companies.sector = ?", sector).
		Where("emission_records.reporting_year >= ? AND emission_records.status = ?", fromYear, emissions.StatusValidated).
		Group("reporting_year").
		Order("reporting_year ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load sector averages by year: %w", err)
	}
	return byYear(rows), nil
}

func (r *gormRepository) LineItems(ctx context.Context, recordID uuid.UUID) ([]emissions.EmissionLineItem, error) {
	var items []emissions.EmissionLineItem
	err := r.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load line items: %w", err)
	}
	return items, nil
}

func byYear(rows []yearTotal) map[int]float64 {
	out := make(map[int]float64, len(rows))
	for _, row := range rows {
		out[row.ReportingYear] = row.Total
	}
	return out
}
