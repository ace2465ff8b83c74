package benchmarks

// CompanyFootprint is the requesting company's validated footprint for the
// benchmark year.
type CompanyFootprint struct {
	Scope1      float64 `json:"scope1"`
	Scope2      float64 `json:"scope2"`
	Scope3      float64 `json:"scope3"`
	Total       float64 `json:"total"`
	PerEmployee float64 `json:"per_employee"`
}

// SectorStats aggregates the validated footprints of peer companies in one
// sector, the requesting company excluded.
type SectorStats struct {
	AvgScope1      float64 `gorm:"column:avg_scope1" json:"avg_scope1"`
	AvgScope2      float64 `gorm:"column:avg_scope2" json:"avg_scope2"`
	AvgScope3      float64 `gorm:"column:avg_scope3" json:"avg_scope3"`
	AvgTotal       float64 `gorm:"column:avg_total" json:"avg_total"`
	MinTotal       float64 `gorm:"column:min_total" json:"min_total"`
	MaxTotal       float64 `gorm:"column:max_total" json:"max_total"`
	AvgPerEmployee float64 `gorm:"column:avg_per_employee" json:"avg_per_employee"`
	MinPerEmployee float64 `gorm:"column:min_per_employee" json:"min_per_employee"`
	MaxPerEmployee float64 `gorm:"column:max_per_employee" json:"max_per_employee"`
	CompanyCount   int64   `gorm:"column:company_count" json:"company_count"`
}

// Percentiles approximates the sector distribution around the mean.
type Percentiles struct {
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
}

// Position locates the company inside the sector range. Percentile 0 is the
// lowest emitter of the range, 100 the highest.
type Position struct {
	Percentile             float64 `json:"percentile"`
	RelativeTotalEmissions float64 `json:"relative_total_emissions"`
	RelativePerEmployee    float64 `json:"relative_per_employee"`
}

// SectorBenchmark is the full benchmark response. Position is nil when the
// sector has no validated peers for the year.
type SectorBenchmark struct {
	ReportingYear int              `json:"reporting_year"`
	Sector        string           `json:"sector"`
	SectorCode    string           `json:"sector_code"`
	CompanyData   CompanyFootprint `json:"company_data"`
	SectorData    SectorStats      `json:"sector_data"`
	Percentiles   Percentiles      `json:"percentiles"`
	Position      *Position        `json:"company_position,omitempty"`
}

// TrendSeries aligns company and sector-average totals over a span of years.
// A nil entry means no validated data for that year; zero would read as a real
// measurement.
type TrendSeries struct {
	Sector             string     `json:"sector"`
	Years              []int      `json:"years"`
	CompanyEmissions   []*float64 `json:"company_emissions"`
	SectorAvgEmissions []*float64 `json:"sector_avg_emissions"`
}

// Recommendation is one reduction lever suggested from the footprint shape.
type Recommendation struct {
	ID                 int    `json:"id"`
	Category           string `json:"category"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	PotentialReduction string `json:"potential_reduction"`
	ImplementationCost string `json:"implementation_cost"`
	PaybackPeriod      string `json:"payback_period"`
}

// RecommendationReport wraps the levers with the footprint they were derived
// from.
type RecommendationReport struct {
	CompanyName     string           `json:"company_name"`
	ReportingYear   int              `json:"reporting_year"`
	TotalEmissions  float64          `json:"total_emissions"`
	Recommendations []Recommendation `json:"recommendations"`
}

type yearTotal struct {
	ReportingYear int     `gorm:"column:reporting_year"`
	Total         float64 `gorm:"column:total"`
}
