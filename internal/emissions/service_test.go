package emissions

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"carbonos/carbon-engine-backend/internal/accesslog"
	"carbonos/carbon-engine-backend/internal/auth"
)

func newTestService(t *testing.T) (*Service, Repository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_busy_timeout=5000"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&EmissionRecord{}, &EmissionLineItem{}))
	t.Cleanup(func() {
		db.Exec("DROP TABLE emission_line_items")
		db.Exec("DROP TABLE emission_records")
	})

	repo := NewRepository(db)
	return NewService(repo, accesslog.Noop{}, zap.NewNop()), repo
}

func memberActor(companyID uuid.UUID, role auth.Role) auth.Actor {
	return auth.Actor{UserID: uuid.New(), Role: role, CompanyID: companyID}
}

func TestCreateRecordDuplicatePeriod(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()
	actor := memberActor(companyID, auth.RoleUser)

	req := CreateRecordRequest{
		CompanyID:       companyID,
		ReportingPeriod: "2025-Q1",
		ReportingYear:   2025,
	}

	record, err := service.CreateRecord(ctx, req, actor)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, record.Status)
	assert.Equal(t, "ADEME 2024", record.FactorsVersion)

	_, err = service.CreateRecord(ctx, req, actor)
	assert.ErrorIs(t, err, ErrDuplicatePeriod)

	// A different period for the same company is fine.
	req.ReportingPeriod = "2025-Q2"
	_, err = service.CreateRecord(ctx, req, actor)
	assert.NoError(t, err)
}

func TestCreateRecordForeignCompany(t *testing.T) {
	service, _ := newTestService(t)
	actor := memberActor(uuid.New(), auth.RoleUser)

	_, err := service.CreateRecord(context.Background(), CreateRecordRequest{
		CompanyID:       uuid.New(),
		ReportingPeriod: "2025-Q1",
		ReportingYear:   2025,
	}, actor)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAddLineItemRecomputesTotals(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()
	actor := memberActor(companyID, auth.RoleUser)

	record, err := service.CreateRecord(ctx, CreateRecordRequest{
		CompanyID:       companyID,
		ReportingPeriod: "2025-FY",
		ReportingYear:   2025,
	}, actor)
	require.NoError(t, err)

	totals, err := service.AddLineItem(ctx, record.ID, LineItemRequest{
		Category:       CategoryFuelConsumption,
		Scope:          Scope1,
		SourceType:     "diesel generator",
		Quantity:       1000,
		Unit:           "litres",
		EmissionFactor: 2.68,
	}, actor)
	require.NoError(t, err)
	assert.InDelta(t, 2680, totals.Scope1Total, 1e-9)
	assert.InDelta(t, 2680, totals.TotalEmissions, 1e-9)

	totals, err = service.AddLineItem(ctx, record.ID, LineItemRequest{
		Category:       CategoryElectricityConsumption,
		Scope:          Scope2,
		SourceType:     "grid electricity",
		Quantity:       50000,
		Unit:           "kWh",
		EmissionFactor: 0.057,
	}, actor)
	require.NoError(t, err)
	assert.InDelta(t, 2680, totals.Scope1Total, 1e-9)
	assert.InDelta(t, 2850, totals.Scope2Total, 1e-9)
	assert.InDelta(t, 5530, totals.TotalEmissions, 1e-9)

	// Stored totals match a from-scratch recomputation.
	persisted, err := repo.GetRecord(ctx, record.ID)
	require.NoError(t, err)
	items, err := repo.ListActiveLineItems(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, Consistent(persisted, items))
}

func TestRemoveLineItemRecomputesTotals(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()
	actor := memberActor(companyID, auth.RoleUser)

	record, err := service.CreateRecord(ctx, CreateRecordRequest{
		CompanyID:       companyID,
		ReportingPeriod: "2025-Q3",
		ReportingYear:   2025,
	}, actor)
	require.NoError(t, err)

	_, err = service.AddLineItem(ctx, record.ID, LineItemRequest{
		Category:       CategoryBusinessTravel,
		Scope:          Scope3,
		SourceType:     "flights",
		Quantity:       12000,
		Unit:           "km",
		EmissionFactor: 0.15,
	}, actor)
	require.NoError(t, err)

	items, err := repo.ListActiveLineItems(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	totals, err := service.RemoveLineItem(ctx, items[0].ID, actor)
	require.NoError(t, err)
	assert.Zero(t, totals.Scope3Total)
	assert.Zero(t, totals.TotalEmissions)

	// The soft-deleted item no longer counts but its row survives removal.
	items, err = repo.ListActiveLineItems(ctx, record.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = service.RemoveLineItem(ctx, uuid.New(), actor)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddLineItemValidation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()
	actor := memberActor(companyID, auth.RoleUser)

	record, err := service.CreateRecord(ctx, CreateRecordRequest{
		CompanyID:       companyID,
		ReportingPeriod: "2025-Q4",
		ReportingYear:   2025,
	}, actor)
	require.NoError(t, err)

	cases := []struct {
		name  string
		req   LineItemRequest
		field string
	}{
		{
			name: "negative quantity",
			req: LineItemRequest{
				Category: CategoryFuelConsumption, Scope: Scope1,
				SourceType: "fuel", Quantity: -5, Unit: "litres", EmissionFactor: 2.68,
			},
			field: "quantity",
		},
		{
			name: "unknown scope",
			req: LineItemRequest{
				Category: CategoryFuelConsumption, Scope: "scope4",
				SourceType: "fuel", Quantity: 5, Unit: "litres", EmissionFactor: 2.68,
			},
			field: "scope",
		},
		{
			name: "unknown category",
			req: LineItemRequest{
				Category: "rocket_launches", Scope: Scope1,
				SourceType: "fuel", Quantity: 5, Unit: "litres", EmissionFactor: 2.68,
			},
			field: "category",
		},
		{
			name: "missing unit",
			req: LineItemRequest{
				Category: CategoryFuelConsumption, Scope: Scope1,
				SourceType: "fuel", Quantity: 5, EmissionFactor: 2.68,
			},
			field: "unit",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.AddLineItem(ctx, record.ID, tc.req, actor)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestCrossCompanyAccessForbidden(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()
	owner := memberActor(companyID, auth.RoleUser)
	stranger := memberActor(uuid.New(), auth.RoleEditor)
	admin := memberActor(uuid.New(), auth.RoleAdmin)

	record, err := service.CreateRecord(ctx, CreateRecordRequest{
		CompanyID:       companyID,
		ReportingPeriod: "2024-FY",
		ReportingYear:   2024,
	}, owner)
	require.NoError(t, err)

	_, err = service.GetRecord(ctx, record.ID, stranger)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = service.AddLineItem(ctx, record.ID, LineItemRequest{
		Category: CategoryFuelConsumption, Scope: Scope1,
		SourceType: "fuel", Quantity: 1, Unit: "litres", EmissionFactor: 1,
	}, stranger)
	assert.ErrorIs(t, err, ErrForbidden)

	// Admins cross company boundaries.
	_, err = service.GetRecord(ctx, record.ID, admin)
	assert.NoError(t, err)
}

func TestValidatedRecordImmutable(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()
	user := memberActor(companyID, auth.RoleUser)
	editor := memberActor(companyID, auth.RoleEditor)
	admin := memberActor(companyID, auth.RoleAdmin)

	record, err := service.CreateRecord(ctx, CreateRecordRequest{
		CompanyID:       companyID,
		ReportingPeriod: "2024-Q4",
		ReportingYear:   2024,
	}, user)
	require.NoError(t, err)

	_, err = service.TransitionStatus(ctx, record.ID, StatusSubmitted, user)
	require.NoError(t, err)
	_, err = service.TransitionStatus(ctx, record.ID, StatusValidated, editor)
	require.NoError(t, err)

	item := LineItemRequest{
		Category: CategoryElectricityConsumption, Scope: Scope2,
		SourceType: "grid electricity", Quantity: 100, Unit: "kWh", EmissionFactor: 0.057,
	}

	_, err = service.AddLineItem(ctx, record.ID, item, user)
	assert.ErrorIs(t, err, ErrRecordImmutable)
	_, err = service.AddLineItem(ctx, record.ID, item, editor)
	assert.ErrorIs(t, err, ErrRecordImmutable)

	// Admin override still mutates, with the aggregate kept in step.
	totals, err := service.AddLineItem(ctx, record.ID, item, admin)
	require.NoError(t, err)
	assert.InDelta(t, 5.7, totals.Scope2Total, 1e-9)
}

func TestTransitionRoleGates(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()
	user := memberActor(companyID, auth.RoleUser)
	editor := memberActor(companyID, auth.RoleEditor)
	admin := memberActor(companyID, auth.RoleAdmin)

	record, err := service.CreateRecord(ctx, CreateRecordRequest{
		CompanyID:       companyID,
		ReportingPeriod: "2023-FY",
		ReportingYear:   2023,
	}, user)
	require.NoError(t, err)

	// draft -> validated skips submission.
	_, err = service.TransitionStatus(ctx, record.ID, StatusValidated, admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	updated, err := service.TransitionStatus(ctx, record.ID, StatusSubmitted, user)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, updated.Status)
	require.NotNil(t, updated.SubmittedBy)
	assert.Equal(t, user.UserID, *updated.SubmittedBy)
	assert.NotNil(t, updated.SubmittedAt)

	// Plain members cannot validate.
	_, err = service.TransitionStatus(ctx, record.ID, StatusValidated, user)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err = service.TransitionStatus(ctx, record.ID, StatusValidated, editor)
	require.NoError(t, err)
	require.NotNil(t, updated.ValidatedBy)
	assert.Equal(t, editor.UserID, *updated.ValidatedBy)

	// Only admins archive; archived is terminal.
	_, err = service.TransitionStatus(ctx, record.ID, StatusArchived, editor)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = service.TransitionStatus(ctx, record.ID, StatusArchived, admin)
	require.NoError(t, err)
	_, err = service.TransitionStatus(ctx, record.ID, StatusSubmitted, admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConcurrentLineItemsKeepAggregateConsistent(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()
	actor := memberActor(companyID, auth.RoleUser)

	record, err := service.CreateRecord(ctx, CreateRecordRequest{
		CompanyID:       companyID,
		ReportingPeriod: "2025-H1",
		ReportingYear:   2025,
	}, actor)
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := service.AddLineItem(ctx, record.ID, LineItemRequest{
				Category: CategoryFuelConsumption, Scope: Scope1,
				SourceType: "fleet fuel", Quantity: 10, Unit: "litres", EmissionFactor: 2.68,
			}, actor)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	persisted, err := repo.GetRecord(ctx, record.ID)
	require.NoError(t, err)
	items, err := repo.ListActiveLineItems(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, items, writers)
	assert.True(t, Consistent(persisted, items))
	assert.InDelta(t, float64(writers)*26.8, persisted.TotalEmissions, 1e-9)
}
