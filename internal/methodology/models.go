package methodology

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ServerMetrics captures CPU utilization before and after platform adoption,
// in average kW drawn.
type ServerMetrics struct {
	CPUUsageBefore float64 `json:"cpu_usage_before"`
	CPUUsageAfter  float64 `json:"cpu_usage_after"`
}

// HostingMetrics describes the datacenter move behind the hostingEfficiency
// lever. EnergyConsumption is annual kWh of IT load.
type HostingMetrics struct {
	PUEReference      float64 `json:"pue_reference"`
	PUEGreen          float64 `json:"pue_green"`
	EnergyConsumption float64 `json:"energy_consumption"`
}

// UserMetrics quantifies the behavioral levers: avoided meetings, printing
// and manual process time across the platform's users.
type UserMetrics struct {
	AvgParticipants  float64 `json:"avg_participants"`
	DocumentsAvoided float64 `json:"documents_avoided"`
	TimeSavedHours   float64 `json:"time_saved_hours"`
	MeetingsAvoided  float64 `json:"meetings_avoided"`
}

// Provenance flags lower the uncertainty rate. Each true flag applies its
// version's delta; the rate never goes below zero.
type Provenance struct {
	AutomatedMonitoring    bool `json:"automated_monitoring"`
	ThirdPartyVerification bool `json:"third_party_verification"`
	RealTimeData           bool `json:"real_time_data"`
	OfficialFactors        bool `json:"official_factors"`
}

// CalculationInput is everything a reduction calculation consumes.
type CalculationInput struct {
	ServerMetrics  ServerMetrics  `json:"server_metrics"`
	HostingMetrics HostingMetrics `json:"hosting_metrics"`
	UserMetrics    UserMetrics    `json:"user_metrics"`
	Provenance     Provenance     `json:"provenance"`
}

// ReductionBreakdown splits reductions into the direct and indirect levers,
// all in kgCO2e.
type ReductionBreakdown struct {
	ServerOptimization  float64 `json:"server_optimization"`
	HostingEfficiency   float64 `json:"hosting_efficiency"`
	DirectTotal         float64 `json:"direct_total"`
	TravelAvoided       float64 `json:"travel_avoided"`
	PaperReduction      float64 `json:"paper_reduction"`
	ProcessOptimization float64 `json:"process_optimization"`
	IndirectTotal       float64 `json:"indirect_total"`
}

// ReductionCalculation is one immutable calculation result, stamped with the
// exact methodology version that produced it. Inputs are persisted verbatim so
// an auditor can replay the calculation.
type ReductionCalculation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`

	MethodologyID      string `gorm:"size:64;not null" json:"methodology_id"`
	MethodologyVersion string `gorm:"size:16;not null" json:"methodology_version"`
	Fingerprint        string `gorm:"size:64;not null" json:"fingerprint"`

	Inputs datatypes.JSON `json:"inputs"`

	ServerOptimization  float64 `json:"server_optimization"`
	HostingEfficiency   float64 `json:"hosting_efficiency"`
	TravelAvoided       float64 `json:"travel_avoided"`
	PaperReduction      float64 `json:"paper_reduction"`
	ProcessOptimization float64 `json:"process_optimization"`

	TotalReductions float64 `json:"total_reductions"`
	Uncertainty     float64 `json:"uncertainty"`
	NetReductions   float64 `json:"net_reductions"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the default gorm naming.
func (ReductionCalculation) TableName() string { return "reduction_calculations" }

// BeforeCreate assigns an ID when none was provided.
func (c *ReductionCalculation) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Breakdown rebuilds the per-lever view from the stored columns.
func (c *ReductionCalculation) Breakdown() ReductionBreakdown {
	return ReductionBreakdown{
		ServerOptimization:  c.ServerOptimization,
		HostingEfficiency:   c.HostingEfficiency,
		DirectTotal:         c.ServerOptimization + c.HostingEfficiency,
		TravelAvoided:       c.TravelAvoided,
		PaperReduction:      c.PaperReduction,
		ProcessOptimization: c.ProcessOptimization,
		IndirectTotal:       c.TravelAvoided + c.PaperReduction + c.ProcessOptimization,
	}
}
