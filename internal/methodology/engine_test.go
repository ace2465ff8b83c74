package methodology

import (
	"context"
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

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_busy_timeout=5000"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ReductionCalculation{}))
	t.Cleanup(func() {
		db.Exec("DROP TABLE reduction_calculations")
	})
	return NewEngine(NewRegistry(), db, accesslog.Noop{}, zap.NewNop())
}

func testActor() auth.Actor {
	return auth.Actor{UserID: uuid.New(), Role: auth.RoleUser, CompanyID: uuid.New()}
}

func TestCalculateReductions(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	actor := testActor()

	input := CalculationInput{
		ServerMetrics: ServerMetrics{CPUUsageBefore: 100, CPUUsageAfter: 85},
		HostingMetrics: HostingMetrics{
			PUEReference:      1.8,
			PUEGreen:          1.2,
			EnergyConsumption: 10000,
		},
		UserMetrics: UserMetrics{
			AvgParticipants:  5,
			DocumentsAvoided: 500,
			TimeSavedHours:   20,
		},
	}

	calc, err := engine.CalculateReductions(ctx, DefaultID, DefaultVersionTag, input, actor)
	require.NoError(t, err)

	// (100-85) kW saved × 0.057 kgCO2e/kWh × 8760 h
	assert.InDelta(t, 7489.8, calc.ServerOptimization, 1e-6)
	// (1.8-1.2) × 10000 kWh × 0.057
	assert.InDelta(t, 342, calc.HostingEfficiency, 1e-6)
	// 12 meetings × 5 participants × 50 km × 0.15 kgCO2e/km
	assert.InDelta(t, 450, calc.TravelAvoided, 1e-6)
	// 500 sheets × 0.08 kg × 1.2 kgCO2e/kg
	assert.InDelta(t, 48, calc.PaperReduction, 1e-6)
	// 20 h × 25 EUR/h × 0.3 kgCO2e/EUR
	assert.InDelta(t, 150, calc.ProcessOptimization, 1e-6)

	expectedTotal := 7489.8 + 342 + 450 + 48 + 150
	assert.InDelta(t, expectedTotal, calc.TotalReductions, 1e-6)
	assert.InDelta(t, 0.1, calc.Uncertainty, 1e-9)
	assert.InDelta(t, expectedTotal*0.9, calc.NetReductions, 1e-6)

	assert.Equal(t, DefaultID, calc.MethodologyID)
	assert.Equal(t, DefaultVersionTag, calc.MethodologyVersion)
	assert.NotEmpty(t, calc.Fingerprint)
	assert.NotEmpty(t, calc.Inputs)

	breakdown := calc.Breakdown()
	assert.InDelta(t, 7831.8, breakdown.DirectTotal, 1e-6)
	assert.InDelta(t, 648, breakdown.IndirectTotal, 1e-6)
}

func TestCalculateReductionsProvenanceLowersUncertainty(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	actor := testActor()

	input := CalculationInput{
		UserMetrics: UserMetrics{AvgParticipants: 1},
		Provenance: Provenance{
			AutomatedMonitoring:    true,
			ThirdPartyVerification: true,
			RealTimeData:           true,
			OfficialFactors:        true,
		},
	}

	calc, err := engine.CalculateReductions(ctx, DefaultID, DefaultVersionTag, input, actor)
	require.NoError(t, err)

	// 0.1 - 0.02 - 0.03 - 0.01 - 0.02
	assert.InDelta(t, 0.02, calc.Uncertainty, 1e-9)
	assert.InDelta(t, calc.TotalReductions*0.98, calc.NetReductions, 1e-9)
}

func TestUncertaintyFlooredAtZero(t *testing.T) {
	p := Parameters{
		DefaultUncertainty:          0.05,
		DeltaAutomatedMonitoring:    -0.02,
		DeltaThirdPartyVerification: -0.03,
		DeltaRealTimeData:           -0.01,
		DeltaOfficialFactors:        -0.02,
	}
	rate := uncertaintyRate(p, Provenance{
		AutomatedMonitoring:    true,
		ThirdPartyVerification: true,
		RealTimeData:           true,
		OfficialFactors:        true,
	})
	assert.Zero(t, rate)
}

func TestCalculateReductionsValidation(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	actor := testActor()

	t.Run("negative metric", func(t *testing.T) {
		input := CalculationInput{
			UserMetrics: UserMetrics{DocumentsAvoided: -1},
		}
		_, err := engine.CalculateReductions(ctx, DefaultID, DefaultVersionTag, input, actor)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "user_metrics.documents_avoided", vErr.Field)
	})

	t.Run("cpu after exceeds before", func(t *testing.T) {
		input := CalculationInput{
			ServerMetrics: ServerMetrics{CPUUsageBefore: 10, CPUUsageAfter: 20},
		}
		_, err := engine.CalculateReductions(ctx, DefaultID, DefaultVersionTag, input, actor)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestCalculateReductionsUnknownVersion(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.CalculateReductions(context.Background(), DefaultID, "9.9.9", CalculationInput{}, testActor())
	assert.ErrorIs(t, err, ErrVersionNotFound)
}

func TestListCalculations(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	actor := testActor()
	other := testActor()

	input := CalculationInput{UserMetrics: UserMetrics{TimeSavedHours: 1}}
	_, err := engine.CalculateReductions(ctx, DefaultID, DefaultVersionTag, input, actor)
	require.NoError(t, err)
	_, err = engine.CalculateReductions(ctx, DefaultID, DefaultVersionTag, input, other)
	require.NoError(t, err)

	calcs, err := engine.ListCalculations(ctx, actor)
	require.NoError(t, err)
	require.Len(t, calcs, 1)
	assert.Equal(t, actor.CompanyID, calcs[0].CompanyID)
}
