package emissions

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbonos/carbon-engine-backend/internal/accesslog"
	"carbonos/carbon-engine-backend/internal/auth"
	"carbonos/carbon-engine-backend/internal/telemetry"
	"carbonos/carbon-engine-backend/pkg/workflows"
)

// CreateRecordRequest opens a reporting period for a company.
type CreateRecordRequest struct {
	CompanyID        uuid.UUID `json:"company_id"`
	ReportingPeriod  string    `json:"reporting_period"`
	ReportingYear    int       `json:"reporting_year"`
	MethodologyNotes string    `json:"methodology_notes"`
	FactorsVersion   string    `json:"factors_version"`
}

// LineItemRequest is one activity measurement to append to a record.
type LineItemRequest struct {
	Category       Category    `json:"category"`
	Scope          Scope       `json:"scope"`
	SourceType     string      `json:"source_type"`
	Quantity       float64     `json:"quantity"`
	Unit           string      `json:"unit"`
	EmissionFactor float64     `json:"emission_factor"`
	FactorSource   string      `json:"factor_source"`
	DataQuality    DataQuality `json:"data_quality"`
	IsEstimated    bool        `json:"is_estimated"`
	Notes          string      `json:"notes"`
}

func (r *LineItemRequest) validate() error {
	if !validScope(r.Scope) {
		return &ValidationError{Field: "scope", Message: "must be scope1, scope2 or scope3"}
	}
	if !validCategory(r.Category) {
		return &ValidationError{Field: "category", Message: "unknown activity category"}
	}
	if r.SourceType == "" {
		return &ValidationError{Field: "source_type", Message: "is required"}
	}
	if r.Unit == "" {
		return &ValidationError{Field: "unit", Message: "is required"}
	}
	if r.Quantity < 0 || math.IsNaN(r.Quantity) || math.IsInf(r.Quantity, 0) {
		return &ValidationError{Field: "quantity", Message: "must be a non-negative number"}
	}
	if r.EmissionFactor < 0 || math.IsNaN(r.EmissionFactor) || math.IsInf(r.EmissionFactor, 0) {
		return &ValidationError{Field: "emission_factor", Message: "must be a non-negative number"}
	}
	return nil
}

// Service is the emission ledger: it owns record creation, line-item
// mutation with full aggregate recomputation, and the approval workflow.
type Service struct {
	repo    Repository
	journal accesslog.Journal
	logger  *zap.Logger
	machine *workflows.StateMachine[RecordStatus]

	// Per-record mutual exclusion. Line-item mutation is a read-then-write
	// sequence over the aggregate; serializing writers per record keeps
	// "mutate + recompute + persist" atomic even across transactions that the
	// database would otherwise interleave.
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewService creates the ledger service.
func NewService(repo Repository, journal accesslog.Journal, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		journal: journal,
		logger:  logger,
		machine: newStatusMachine(),
		locks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *Service) recordLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// CreateRecord opens a draft record for the actor's company. One record per
// (company, year, period); corrections go through the workflow, not through
// duplicate periods.
func (s *Service) CreateRecord(ctx context.Context, req CreateRecordRequest, actor auth.Actor) (*EmissionRecord, error) {
	if !actor.MemberOf(req.CompanyID) {
		return nil, ErrForbidden
	}
	if req.ReportingPeriod == "" {
		return nil, &ValidationError{Field: "reporting_period", Message: "is required"}
	}
	if req.ReportingYear < 2000 || req.ReportingYear > 2100 {
		return nil, &ValidationError{Field: "reporting_year", Message: "must be between 2000 and 2100"}
	}

	record := &EmissionRecord{
		CompanyID:        req.CompanyID,
		ReportingPeriod:  req.ReportingPeriod,
		ReportingYear:    req.ReportingYear,
		Status:           StatusDraft,
		MethodologyNotes: req.MethodologyNotes,
		FactorsVersion:   req.FactorsVersion,
	}
	if record.FactorsVersion == "" {
		record.FactorsVersion = "ADEME 2024"
	}

	if err := s.repo.CreateRecord(ctx, record); err != nil {
		return nil, err
	}

	s.journal.Record(accesslog.Entry{
		UserID:       actor.UserID,
		Action:       "create_emission_record",
		ResourceType: "emission_record",
		ResourceID:   record.ID.String(),
	})

	return record, nil
}

// GetRecord returns a record with its active line items, enforcing company
// scoping.
func (s *Service) GetRecord(ctx context.Context, recordID uuid.UUID, actor auth.Actor) (*EmissionRecord, error) {
	record, err := s.repo.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if !actor.MemberOf(record.CompanyID) {
		return nil, ErrForbidden
	}
	items, err := s.repo.ListActiveLineItems(ctx, recordID)
	if err != nil {
		return nil, err
	}
	record.LineItems = items

	s.journal.Record(accesslog.Entry{
		UserID:       actor.UserID,
		Action:       "view_emission_record",
		ResourceType: "emission_record",
		ResourceID:   recordID.String(),
	})

	return record, nil
}

// AddLineItem appends a measurement to a record and recomputes all scope
// totals from the record's current non-deleted items. The item write and the
// aggregate write share one transaction: a failure in either leaves no trace.
func (s *Service) AddLineItem(ctx context.Context, recordID uuid.UUID, req LineItemRequest, actor auth.Actor) (AggregateTotals, error) {
	if err := req.validate(); err != nil {
		return AggregateTotals{}, err
	}

	lock := s.recordLock(recordID)
	lock.Lock()
	defer lock.Unlock()

	var totals AggregateTotals
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		record, err := tx.GetRecord(ctx, recordID)
		if err != nil {
			return err
		}
		if err := s.gateMutation(record, actor, "add_line_item_override"); err != nil {
			return err
		}

		item := &EmissionLineItem{
			RecordID:          recordID,
			Category:          req.Category,
			Scope:             req.Scope,
			SourceType:        req.SourceType,
			Quantity:          req.Quantity,
			Unit:              req.Unit,
			EmissionFactor:    req.EmissionFactor,
			FactorSource:      req.FactorSource,
			ComputedEmissions: req.Quantity * req.EmissionFactor,
			DataQuality:       req.DataQuality,
			IsEstimated:       req.IsEstimated,
			Notes:             req.Notes,
		}
		if item.FactorSource == "" {
			item.FactorSource = "ADEME"
		}
		if item.DataQuality == "" {
			item.DataQuality = QualityMedium
		}
		if err := tx.CreateLineItem(ctx, item); err != nil {
			return err
		}

		totals, err = s.recomputeAndSave(ctx, tx, record)
		return err
	})
	if err != nil {
		return AggregateTotals{}, err
	}

	s.journal.Record(accesslog.Entry{
		UserID:       actor.UserID,
		Action:       "add_line_item",
		ResourceType: "emission_record",
		ResourceID:   recordID.String(),
	})

	return totals, nil
}

// RemoveLineItem soft-deletes a measurement and recomputes the parent record's
// totals inside the same transaction.
func (s *Service) RemoveLineItem(ctx context.Context, itemID uuid.UUID, actor auth.Actor) (AggregateTotals, error) {
	item, err := s.repo.GetLineItem(ctx, itemID)
	if err != nil {
		return AggregateTotals{}, err
	}

	lock := s.recordLock(item.RecordID)
	lock.Lock()
	defer lock.Unlock()

	var totals AggregateTotals
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		record, err := tx.GetRecord(ctx, item.RecordID)
		if err != nil {
			return err
		}
		if err := s.gateMutation(record, actor, "remove_line_item_override"); err != nil {
			return err
		}
		if err := tx.SoftDeleteLineItem(ctx, itemID); err != nil {
			return err
		}
		totals, err = s.recomputeAndSave(ctx, tx, record)
		return err
	})
	if err != nil {
		return AggregateTotals{}, err
	}

	s.journal.Record(accesslog.Entry{
		UserID:       actor.UserID,
		Action:       "remove_line_item",
		ResourceType: "emission_line_item",
		ResourceID:   itemID.String(),
	})

	return totals, nil
}

// gateMutation enforces company scoping and the immutability of validated and
// archived records. Admins may override immutability; the override itself is
// journaled for the auditor.
func (s *Service) gateMutation(record *EmissionRecord, actor auth.Actor, overrideAction string) error {
	if !actor.MemberOf(record.CompanyID) {
		return ErrForbidden
	}
	if record.Immutable() {
		if !actor.IsAdmin() {
			return ErrRecordImmutable
		}
		s.journal.Record(accesslog.Entry{
			UserID:       actor.UserID,
			Action:       overrideAction,
			ResourceType: "emission_record",
			ResourceID:   record.ID.String(),
			Detail:       "admin mutation of " + string(record.Status) + " record",
		})
	}
	return nil
}

func (s *Service) recomputeAndSave(ctx context.Context, tx Repository, record *EmissionRecord) (AggregateTotals, error) {
	items, err := tx.ListActiveLineItems(ctx, record.ID)
	if err != nil {
		return AggregateTotals{}, err
	}
	totals := Recompute(items)
	record.Scope1Total = totals.Scope1Total
	record.Scope2Total = totals.Scope2Total
	record.Scope3Total = totals.Scope3Total
	record.TotalEmissions = totals.TotalEmissions
	if err := tx.SaveRecord(ctx, record); err != nil {
		return AggregateTotals{}, err
	}
	telemetry.AggregateRecomputes.Inc()
	return totals, nil
}

// TransitionStatus moves a record through the approval workflow, stamping the
// submitter or validator on the way.
func (s *Service) TransitionStatus(ctx context.Context, recordID uuid.UUID, newStatus RecordStatus, actor auth.Actor) (*EmissionRecord, error) {
	lock := s.recordLock(recordID)
	lock.Lock()
	defer lock.Unlock()

	var record *EmissionRecord
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		var err error
		record, err = tx.GetRecord(ctx, recordID)
		if err != nil {
			return err
		}
		if !actor.MemberOf(record.CompanyID) {
			return ErrForbidden
		}
		if !s.machine.CanTransition(record.Status, newStatus) {
			return ErrInvalidTransition
		}
		if !transitionAllowedFor(newStatus, actor) {
			return ErrForbidden
		}

		now := time.Now()
		oldStatus := record.Status
		record.Status = newStatus
		switch newStatus {
		case StatusSubmitted:
			record.SubmittedBy = &actor.UserID
			record.SubmittedAt = &now
		case StatusValidated:
			record.ValidatedBy = &actor.UserID
			record.ValidatedAt = &now
		}
		if err := tx.SaveRecord(ctx, record); err != nil {
			return err
		}

		s.logger.Info("emission record status changed",
			zap.String("record_id", recordID.String()),
			zap.String("from", string(oldStatus)),
			zap.String("to", string(newStatus)),
			zap.String("user_id", actor.UserID.String()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.journal.Record(accesslog.Entry{
		UserID:       actor.UserID,
		Action:       "transition_emission_record",
		ResourceType: "emission_record",
		ResourceID:   recordID.String(),
		Detail:       string(newStatus),
	})

	return record, nil
}
