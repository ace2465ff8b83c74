package benchmarks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"carbonos/carbon-engine-backend/internal/accesslog"
	"carbonos/carbon-engine-backend/internal/auth"
	"carbonos/carbon-engine-backend/internal/companies"
	"carbonos/carbon-engine-backend/internal/emissions"
)

// trendSpan is how many years back the trend series reaches.
const trendSpan = 5

// Service computes sector benchmarks, multi-year trends, and reduction
// recommendations over validated emission data. Everything is scoped to the
// actor's own company; peers appear only inside anonymized aggregates.
type Service struct {
	repo      Repository
	companies companies.Repository
	journal   accesslog.Journal
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates the benchmark service.
func NewService(repo Repository, companyRepo companies.Repository, journal accesslog.Journal, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		companies: companyRepo,
		journal:   journal,
		logger:    logger,
		now:       time.Now,
	}
}

// SectorBenchmark positions the actor's company against its sector for one
// reporting year. Year zero means the previous calendar year.
func (s *Service) SectorBenchmark(ctx context.Context, actor auth.Actor, year int) (*SectorBenchmark, error) {
	company, err := s.companies.GetByID(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	if year == 0 {
		year = s.now().Year() - 1
	}

	record, err := s.repo.CompanyRecord(ctx, company.ID, year)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.SectorStats(ctx, company.Sector, year, company.ID)
	if err != nil {
		return nil, err
	}

	perEmployee := 0.0
	if company.EmployeeCount > 0 {
		perEmployee = record.TotalEmissions / float64(company.EmployeeCount)
	}

	benchmark := &SectorBenchmark{
		ReportingYear: year,
		Sector:        company.Sector,
		SectorCode:    company.SectorCode,
		CompanyData: CompanyFootprint{
			Scope1:      record.Scope1Total,
			Scope2:      record.Scope2Total,
			Scope3:      record.Scope3Total,
			Total:       record.TotalEmissions,
			PerEmployee: perEmployee,
		},
		SectorData: stats,
		Percentiles: Percentiles{
			P25: stats.AvgTotal * 0.75,
			P50: stats.AvgTotal,
			P75: stats.AvgTotal * 1.25,
		},
	}

	if stats.CompanyCount > 0 {
		position := Position{
			Percentile: percentile(record.TotalEmissions, stats.MinTotal, stats.MaxTotal),
		}
		if stats.AvgTotal > 0 {
			position.RelativeTotalEmissions = record.TotalEmissions / stats.AvgTotal
		}
		if stats.AvgPerEmployee > 0 {
			position.RelativePerEmployee = perEmployee / stats.AvgPerEmployee
		}
		benchmark.Position = &position
	}

	s.journal.Record(accesslog.Entry{
		UserID:       actor.UserID,
		Action:       "view_sector_benchmark",
		ResourceType: "company",
		ResourceID:   company.ID.String(),
	})

	return benchmark, nil
}

// percentile places a total inside the [min, max] sector range, clamped to
// [0, 100]. A degenerate range, every peer at the same total, reads as the
// median rather than an arbitrary extreme.
func percentile(total, min, max float64) float64 {
	if max == min {
		return 50
	}
	p := (total - min) / (max - min) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// EmissionTrends aligns company totals with sector averages over the last
// five years. Missing years carry nil so charts show gaps, not drops to zero.
func (s *Service) EmissionTrends(ctx context.Context, actor auth.Actor) (*TrendSeries, error) {
	company, err := s.companies.GetByID(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	currentYear := s.now().Year()
	startYear := currentYear - trendSpan

	companyTotals, err := s.repo.CompanyTotalsByYear(ctx, company.ID, startYear)
	if err != nil {
		return nil, err
	}
	sectorAverages, err := s.repo.SectorAveragesByYear(ctx, company.Sector, startYear)
	if err != nil {
		return nil, err
	}

	trend := &TrendSeries{Sector: company.Sector}
	for year := startYear; year <= currentYear; year++ {
		trend.Years = append(trend.Years, year)
		trend.CompanyEmissions = append(trend.CompanyEmissions, lookupTotal(companyTotals, year))
		trend.SectorAvgEmissions = append(trend.SectorAvgEmissions, lookupTotal(sectorAverages, year))
	}

	s.journal.Record(accesslog.Entry{
		UserID:       actor.UserID,
		Action:       "view_emission_trends",
		ResourceType: "company",
		ResourceID:   company.ID.String(),
	})

	return trend, nil
}

func lookupTotal(totals map[int]float64, year int) *float64 {
	if total, ok := totals[year]; ok {
		return &total
	}
	return nil
}

// Recommendations derives reduction levers from the shape of the company's
// most recent validated footprint.
func (s *Service) Recommendations(ctx context.Context, actor auth.Actor) (*RecommendationReport, error) {
	company, err := s.companies.GetByID(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.LatestCompanyRecord(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.LineItems(ctx, record.ID)
	if err != nil {
		return nil, err
	}

	report := &RecommendationReport{
		CompanyName:     company.Name,
		ReportingYear:   record.ReportingYear,
		TotalEmissions:  record.TotalEmissions,
		Recommendations: deriveRecommendations(record, items),
	}

	s.journal.Record(accesslog.Entry{
		UserID:       actor.UserID,
		Action:       "view_recommendations",
		ResourceType: "company",
		ResourceID:   company.ID.String(),
	})

	return report, nil
}

func deriveRecommendations(record *emissions.EmissionRecord, items []emissions.EmissionLineItem) []Recommendation {
	var recs []Recommendation

	if record.Scope1Total > record.TotalEmissions*0.4 {
		recs = append(recs, Recommendation{
			ID:                 1,
			Category:           "scope1",
			Title:              "Reduce direct emissions",
			Description:        "Direct emissions (Scope 1) dominate your footprint. Consider shifting the vehicle fleet to electric or hybrid models.",
			PotentialReduction: "15-30%",
			ImplementationCost: "high",
			PaybackPeriod:      "3-5 years",
		})
	}

	if record.Scope2Total > record.TotalEmissions*0.3 {
		recs = append(recs, Recommendation{
			ID:                 2,
			Category:           "scope2",
			Title:              "Switch to renewable electricity",
			Description:        "Electricity-related emissions (Scope 2) are significant. Consider a fully renewable supplier or on-site solar generation.",
			PotentialReduction: "50-100%",
			ImplementationCost: "medium",
			PaybackPeriod:      "5-8 years",
		})
	}

	var transport float64
	for _, item := range items {
		switch item.Category {
		case emissions.CategoryBusinessTravel, emissions.CategoryEmployeeCommuting, emissions.CategoryFreightTransport:
			transport += item.ComputedEmissions
		}
	}
	if transport > record.TotalEmissions*0.2 {
		recs = append(recs, Recommendation{
			ID:                 3,
			Category:           "transport",
			Title:              "Optimize travel and freight",
			Description:        "Transport emissions make up a large share of your footprint. Encourage remote work, video conferencing and low-carbon transport modes.",
			PotentialReduction: "10-20%",
			ImplementationCost: "low",
			PaybackPeriod:      "1-2 years",
		})
	}

	recs = append(recs, Recommendation{
		ID:                 4,
		Category:           "general",
		Title:              "Employee awareness program",
		Description:        "Run awareness and training programs to anchor low-carbon behavior across the company.",
		PotentialReduction: "5-10%",
		ImplementationCost: "low",
		PaybackPeriod:      "<1 year",
	})

	return recs
}
