package methodology

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"carbonos/carbon-engine-backend/internal/accesslog"
	"carbonos/carbon-engine-backend/internal/auth"
)

// ValidationError reports a malformed calculation input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Engine computes and persists reduction calculations against a published
// methodology version. Results are append-only: a calculation is never
// updated, only superseded by a new one.
type Engine struct {
	registry *Registry
	db       *gorm.DB
	journal  accesslog.Journal
	logger   *zap.Logger
}

// NewEngine creates the reduction engine.
func NewEngine(registry *Registry, db *gorm.DB, journal accesslog.Journal, logger *zap.Logger) *Engine {
	return &Engine{
		registry: registry,
		db:       db,
		journal:  journal,
		logger:   logger,
	}
}

func validateInput(input CalculationInput) error {
	check := func(field string, value float64) error {
		if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return &ValidationError{Field: field, Message: "must be a non-negative number"}
		}
		return nil
	}
	checks := []struct {
		field string
		value float64
	}{
		{"server_metrics.cpu_usage_before", input.ServerMetrics.CPUUsageBefore},
		{"server_metrics.cpu_usage_after", input.ServerMetrics.CPUUsageAfter},
		{"hosting_metrics.pue_reference", input.HostingMetrics.PUEReference},
		{"hosting_metrics.pue_green", input.HostingMetrics.PUEGreen},
		{"hosting_metrics.energy_consumption", input.HostingMetrics.EnergyConsumption},
		{"user_metrics.avg_participants", input.UserMetrics.AvgParticipants},
		{"user_metrics.documents_avoided", input.UserMetrics.DocumentsAvoided},
		{"user_metrics.time_saved_hours", input.UserMetrics.TimeSavedHours},
		{"user_metrics.meetings_avoided", input.UserMetrics.MeetingsAvoided},
	}
	for _, c := range checks {
		if err := check(c.field, c.value); err != nil {
			return err
		}
	}
	if input.ServerMetrics.CPUUsageAfter > input.ServerMetrics.CPUUsageBefore {
		return &ValidationError{Field: "server_metrics", Message: "cpu usage after must not exceed usage before"}
	}
	return nil
}

// CalculateReductions runs the five reduction formulas of a methodology
// version over the given metrics and persists the stamped result.
func (e *Engine) CalculateReductions(ctx context.Context, methodologyID, version string, input CalculationInput, actor auth.Actor) (*ReductionCalculation, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	m, err := e.registry.Get(methodologyID, version)
	if err != nil {
		return nil, err
	}
	p := m.Parameters

	// Hosting metrics default to the version's reference PUE values when the
	// caller has no measured ones.
	hosting := input.HostingMetrics
	if hosting.PUEReference == 0 {
		hosting.PUEReference = p.PUEReference
	}
	if hosting.PUEGreen == 0 {
		hosting.PUEGreen = p.PUEGreen
	}

	serverOptimization := (input.ServerMetrics.CPUUsageBefore - input.ServerMetrics.CPUUsageAfter) *
		p.ElectricityFactor * p.AnnualHours
	hostingEfficiency := (hosting.PUEReference - hosting.PUEGreen) *
		hosting.EnergyConsumption * p.ElectricityFactor
	travelAvoided := p.MeetingsPerYear * input.UserMetrics.AvgParticipants *
		p.AvgDistanceKM * p.TransportFactor
	paperReduction := input.UserMetrics.DocumentsAvoided * p.SheetMassKG * p.PaperFactor
	processOptimization := input.UserMetrics.TimeSavedHours * p.AvgHourlyWage * p.WageEmissionFactor

	total := serverOptimization + hostingEfficiency + travelAvoided + paperReduction + processOptimization
	uncertainty := uncertaintyRate(p, input.Provenance)

	rawInput, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode calculation input: %w", err)
	}

	calc := &ReductionCalculation{
		CompanyID:           actor.CompanyID,
		MethodologyID:       m.ID,
		MethodologyVersion:  m.Version,
		Fingerprint:         m.Fingerprint,
		Inputs:              rawInput,
		ServerOptimization:  serverOptimization,
		HostingEfficiency:   hostingEfficiency,
		TravelAvoided:       travelAvoided,
		PaperReduction:      paperReduction,
		ProcessOptimization: processOptimization,
		TotalReductions:     total,
		Uncertainty:         uncertainty,
		NetReductions:       total * (1 - uncertainty),
	}

	if err := e.db.WithContext(ctx).Create(calc).Error; err != nil {
		return nil, fmt.Errorf("failed to persist reduction calculation: %w", err)
	}

	e.logger.Info("reduction calculation completed",
		zap.String("methodology", m.ID),
		zap.String("version", m.Version),
		zap.String("company_id", actor.CompanyID.String()),
		zap.Float64("net_reductions", calc.NetReductions))

	e.journal.Record(accesslog.Entry{
		UserID:       actor.UserID,
		Action:       "calculate_reductions",
		ResourceType: "reduction_calculation",
		ResourceID:   calc.ID.String(),
	})

	return calc, nil
}

// uncertaintyRate applies the provenance deltas to the default rate, floored
// at zero.
func uncertaintyRate(p Parameters, prov Provenance) float64 {
	rate := p.DefaultUncertainty
	if prov.AutomatedMonitoring {
		rate += p.DeltaAutomatedMonitoring
	}
	if prov.ThirdPartyVerification {
		rate += p.DeltaThirdPartyVerification
	}
	if prov.RealTimeData {
		rate += p.DeltaRealTimeData
	}
	if prov.OfficialFactors {
		rate += p.DeltaOfficialFactors
	}
	return math.Max(0, rate)
}

// ListCalculations returns the company's past calculations, newest first.
func (e *Engine) ListCalculations(ctx context.Context, actor auth.Actor) ([]ReductionCalculation, error) {
	var calcs []ReductionCalculation
	err := e.db.WithContext(ctx).
		Where("company_id = ?", actor.CompanyID).
		Order("created_at DESC").
		Find(&calcs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reduction calculations: %w", err)
	}
	return calcs, nil
}
