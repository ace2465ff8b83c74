package benchmarks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"carbonos/carbon-engine-backend/internal/accesslog"
	"carbonos/carbon-engine-backend/internal/auth"
	"carbonos/carbon-engine-backend/internal/companies"
	"carbonos/carbon-engine-backend/internal/emissions"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_busy_timeout=5000"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&companies.Company{}, &emissions.EmissionRecord{}, &emissions.EmissionLineItem{}))
	t.Cleanup(func() {
		db.Exec("DROP TABLE emission_line_items")
		db.Exec("DROP TABLE emission_records")
		db.Exec("DROP TABLE companies")
	})

	service := NewService(NewRepository(db), companies.NewRepository(db), accesslog.Noop{}, zap.NewNop())
	service.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	return service, db
}

func seedCompany(t *testing.T, db *gorm.DB, sector string, employees int) *companies.Company {
	t.Helper()
	company := &companies.Company{
		Name:          "co-" + uuid.NewString()[:8],
		Sector:        sector,
		SectorCode:    "62.01Z",
		EmployeeCount: employees,
	}
	require.NoError(t, db.Create(company).Error)
	return company
}

func seedValidated(t *testing.T, db *gorm.DB, companyID uuid.UUID, year int, s1, s2, s3 float64) {
	t.Helper()
	record := &emissions.EmissionRecord{
		CompanyID:       companyID,
		ReportingPeriod: "FY",
		ReportingYear:   year,
		Status:          emissions.StatusValidated,
		Scope1Total:     s1,
		Scope2Total:     s2,
		Scope3Total:     s3,
		TotalEmissions:  s1 + s2 + s3,
	}
	require.NoError(t, db.Create(record).Error)
}

func actorFor(company *companies.Company) auth.Actor {
	return auth.Actor{UserID: uuid.New(), Role: auth.RoleUser, CompanyID: company.ID}
}

func TestSectorBenchmark(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	mine := seedCompany(t, db, "software", 50)
	peerA := seedCompany(t, db, "software", 100)
	peerB := seedCompany(t, db, "software", 20)
	other := seedCompany(t, db, "construction", 200)

	seedValidated(t, db, mine.ID, 2025, 100, 200, 300)  // total 600
	seedValidated(t, db, peerA.ID, 2025, 50, 100, 50)   // total 200
	seedValidated(t, db, peerB.ID, 2025, 400, 300, 300) // total 1000
	seedValidated(t, db, other.ID, 2025, 9000, 0, 0)    // different sector, ignored

	benchmark, err := service.SectorBenchmark(ctx, actorFor(mine), 2025)
	require.NoError(t, err)

	assert.Equal(t, 2025, benchmark.ReportingYear)
	assert.Equal(t, "software", benchmark.Sector)
	assert.InDelta(t, 600, benchmark.CompanyData.Total, 1e-9)
	assert.InDelta(t, 12, benchmark.CompanyData.PerEmployee, 1e-9)

	assert.Equal(t, int64(2), benchmark.SectorData.CompanyCount)
	assert.InDelta(t, 600, benchmark.SectorData.AvgTotal, 1e-9)
	assert.InDelta(t, 200, benchmark.SectorData.MinTotal, 1e-9)
	assert.InDelta(t, 1000, benchmark.SectorData.MaxTotal, 1e-9)

	require.NotNil(t, benchmark.Position)
	// (600-200)/(1000-200) = 0.5 -> 50th percentile
	assert.InDelta(t, 50, benchmark.Position.Percentile, 1e-9)
	assert.InDelta(t, 1, benchmark.Position.RelativeTotalEmissions, 1e-9)
}

func TestSectorBenchmarkNoPeers(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	mine := seedCompany(t, db, "mining", 10)
	seedValidated(t, db, mine.ID, 2025, 10, 10, 10)

	benchmark, err := service.SectorBenchmark(ctx, actorFor(mine), 2025)
	require.NoError(t, err)

	assert.Equal(t, int64(0), benchmark.SectorData.CompanyCount)
	assert.Nil(t, benchmark.Position)
}

func TestSectorBenchmarkNoValidatedData(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	mine := seedCompany(t, db, "software", 10)
	// A draft never benchmarks.
	record := &emissions.EmissionRecord{
		CompanyID:       mine.ID,
		ReportingPeriod: "FY",
		ReportingYear:   2025,
		Status:          emissions.StatusDraft,
		TotalEmissions:  500,
	}
	require.NoError(t, db.Create(record).Error)

	_, err := service.SectorBenchmark(ctx, actorFor(mine), 2025)
	assert.ErrorIs(t, err, ErrNoValidatedData)
}

func TestPercentile(t *testing.T) {
	assert.InDelta(t, 0, percentile(200, 200, 1000), 1e-9)
	assert.InDelta(t, 100, percentile(1000, 200, 1000), 1e-9)
	assert.InDelta(t, 25, percentile(400, 200, 1000), 1e-9)

	// Outside the peer range clamps instead of extrapolating.
	assert.InDelta(t, 0, percentile(100, 200, 1000), 1e-9)
	assert.InDelta(t, 100, percentile(2000, 200, 1000), 1e-9)

	// Degenerate range: every peer identical.
	assert.InDelta(t, 50, percentile(700, 700, 700), 1e-9)
}

func TestEmissionTrendsNullsForMissingYears(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	mine := seedCompany(t, db, "software", 50)
	peer := seedCompany(t, db, "software", 80)

	// Company reported 2023 and 2025, peer only 2024.
	seedValidated(t, db, mine.ID, 2023, 100, 0, 0)
	seedValidated(t, db, mine.ID, 2025, 0, 300, 0)
	seedValidated(t, db, peer.ID, 2024, 0, 0, 500)

	trends, err := service.EmissionTrends(ctx, actorFor(mine))
	require.NoError(t, err)

	// now is pinned to 2026: span covers 2021..2026.
	require.Equal(t, []int{2021, 2022, 2023, 2024, 2025, 2026}, trends.Years)
	require.Len(t, trends.CompanyEmissions, 6)

	assert.Nil(t, trends.CompanyEmissions[0])
	assert.Nil(t, trends.CompanyEmissions[1])
	require.NotNil(t, trends.CompanyEmissions[2])
	assert.InDelta(t, 100, *trends.CompanyEmissions[2], 1e-9)
	assert.Nil(t, trends.CompanyEmissions[3])
	require.NotNil(t, trends.CompanyEmissions[4])
	assert.InDelta(t, 300, *trends.CompanyEmissions[4], 1e-9)
	assert.Nil(t, trends.CompanyEmissions[5])

	// Sector averages include the company itself.
	require.NotNil(t, trends.SectorAvgEmissions[3])
	assert.InDelta(t, 500, *trends.SectorAvgEmissions[3], 1e-9)
	assert.Nil(t, trends.SectorAvgEmissions[0])
}

func TestRecommendations(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	mine := seedCompany(t, db, "software", 50)
	// Scope 1 heavy footprint: 500 of 900 total.
	seedValidated(t, db, mine.ID, 2025, 500, 100, 300)

	report, err := service.Recommendations(ctx, actorFor(mine))
	require.NoError(t, err)

	assert.Equal(t, mine.Name, report.CompanyName)
	assert.Equal(t, 2025, report.ReportingYear)

	categories := make([]string, 0, len(report.Recommendations))
	for _, rec := range report.Recommendations {
		categories = append(categories, rec.Category)
	}
	assert.Contains(t, categories, "scope1")
	assert.NotContains(t, categories, "scope2")
	// The awareness lever is always present.
	assert.Contains(t, categories, "general")
}
