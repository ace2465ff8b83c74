package emissions

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordStatus is the closed set of approval states for an emission record.
type RecordStatus string

const (
	StatusDraft     RecordStatus = "draft"
	StatusSubmitted RecordStatus = "submitted"
	StatusValidated RecordStatus = "validated"
	StatusArchived  RecordStatus = "archived"
)

// Scope identifies the GHG Protocol category of a line item.
type Scope string

const (
	Scope1 Scope = "scope1"
	Scope2 Scope = "scope2"
	Scope3 Scope = "scope3"
)

// Category is the enumerated activity type of a line item.
type Category string

const (
	CategoryFuelConsumption        Category = "fuel_consumption"
	CategoryCompanyVehicles        Category = "company_vehicles"
	CategoryRefrigerantLeaks       Category = "refrigerant_leaks"
	CategoryElectricityConsumption Category = "electricity_consumption"
	CategoryHeatConsumption        Category = "heat_consumption"
	CategoryBusinessTravel         Category = "business_travel"
	CategoryEmployeeCommuting      Category = "employee_commuting"
	CategoryPurchasedGoods         Category = "purchased_goods"
	CategoryWasteDisposal          Category = "waste_disposal"
	CategoryFreightTransport       Category = "freight_transport"
)

// DataQuality grades the provenance of a line item's quantity.
type DataQuality string

const (
	QualityHigh   DataQuality = "high"
	QualityMedium DataQuality = "medium"
	QualityLow    DataQuality = "low"
)

// EmissionRecord is the reporting-period header for a company. The four totals
// are derived: they always equal the sum of computed emissions over the
// record's non-deleted line items and are never set directly by a client.
type EmissionRecord struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID       uuid.UUID    `gorm:"type:uuid;not null;index;uniqueIndex:idx_company_period" json:"company_id"`
	ReportingPeriod string       `gorm:"size:32;not null;uniqueIndex:idx_company_period" json:"reporting_period"`
	ReportingYear   int          `gorm:"not null;index;uniqueIndex:idx_company_period" json:"reporting_year"`
	Status          RecordStatus `gorm:"size:16;default:draft" json:"status"`

	Scope1Total    float64 `json:"scope1_total"`
	Scope2Total    float64 `json:"scope2_total"`
	Scope3Total    float64 `json:"scope3_total"`
	TotalEmissions float64 `json:"total_emissions"`

	SubmittedBy *uuid.UUID `gorm:"type:uuid" json:"submitted_by,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ValidatedBy *uuid.UUID `gorm:"type:uuid" json:"validated_by,omitempty"`
	ValidatedAt *time.Time `json:"validated_at,omitempty"`

	MethodologyNotes string `json:"methodology_notes,omitempty"`
	FactorsVersion   string `gorm:"size:64;default:ADEME 2024" json:"factors_version"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LineItems []EmissionLineItem `gorm:"foreignKey:RecordID" json:"line_items,omitempty"`
}

// TableName overrides the default gorm naming.
func (EmissionRecord) TableName() string { return "emission_records" }

// BeforeCreate assigns an ID when none was provided.
func (r *EmissionRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Immutable reports whether line-item mutation is blocked for non-admins.
func (r *EmissionRecord) Immutable() bool {
	return r.Status == StatusValidated || r.Status == StatusArchived
}

// EmissionLineItem is one activity measurement under an emission record.
// ComputedEmissions is fixed at creation as Quantity × EmissionFactor;
// removal is a soft delete so the audit trail keeps the row.
type EmissionLineItem struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RecordID uuid.UUID `gorm:"type:uuid;not null;index" json:"record_id"`

	Category       Category `gorm:"size:48;not null" json:"category"`
	Scope          Scope    `gorm:"size:8;not null;index" json:"scope"`
	SourceType     string   `gorm:"size:64;not null" json:"source_type"`
	Quantity       float64  `gorm:"not null" json:"quantity"`
	Unit           string   `gorm:"size:32;not null" json:"unit"`
	EmissionFactor float64  `gorm:"not null" json:"emission_factor"`
	FactorSource   string   `gorm:"size:128;default:ADEME" json:"factor_source"`

	ComputedEmissions float64 `gorm:"not null" json:"computed_emissions"`

	DataQuality DataQuality `gorm:"size:8;default:medium" json:"data_quality"`
	IsEstimated bool        `json:"is_estimated"`
	Notes       string      `json:"notes,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the default gorm naming.
func (EmissionLineItem) TableName() string { return "emission_line_items" }

// BeforeCreate assigns an ID when none was provided.
func (i *EmissionLineItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// AggregateTotals is the derived per-scope summary returned by every mutating
// ledger operation.
type AggregateTotals struct {
	Scope1Total    float64 `json:"scope1_total"`
	Scope2Total    float64 `json:"scope2_total"`
	Scope3Total    float64 `json:"scope3_total"`
	TotalEmissions float64 `json:"total_emissions"`
}

func validScope(s Scope) bool {
	return s == Scope1 || s == Scope2 || s == Scope3
}

func validCategory(c Category) bool {
	switch c {
	case CategoryFuelConsumption, CategoryCompanyVehicles, CategoryRefrigerantLeaks,
		CategoryElectricityConsumption, CategoryHeatConsumption, CategoryBusinessTravel,
		CategoryEmployeeCommuting, CategoryPurchasedGoods, CategoryWasteDisposal,
		CategoryFreightTransport:
		return true
	}
	return false
}
