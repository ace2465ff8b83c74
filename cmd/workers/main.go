package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"carbonos/carbon-engine-backend/internal/config"
	"carbonos/carbon-engine-backend/internal/emissions"
	"carbonos/carbon-engine-backend/internal/telemetry"
)

const (
	sweepInterval = 15 * time.Minute
	sweepBatch    = 200
)

// The consistency sweeper walks emission records and verifies that the stored
// scope totals match a fresh recomputation over the active line items. The API
// keeps totals consistent transactionally, so any drift found here points at
// out-of-band writes and is repaired and logged.
func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	sweeper := &consistencySweeper{db: db, logger: logger}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("consistency sweeper starting", zap.Duration("interval", sweepInterval))

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	sweeper.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("consistency sweeper stopping")
			return
		case <-ticker.C:
			sweeper.sweep(ctx)
		}
	}
}

type consistencySweeper struct {
	db     *gorm.DB
	logger *zap.Logger
}

func (s *consistencySweeper) sweep(ctx context.Context) {
	start := time.Now()
	var checked, repaired int

	var records []emissions.EmissionRecord
	err := s.db.WithContext(ctx).FindInBatches(&records, sweepBatch, func(tx *gorm.DB, _ int) error {
		for i := range records {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			checked++
			fixed, err := s.checkRecord(ctx, &records[i])
			if err != nil {
				s.logger.Error("failed to check record",
					zap.String("record_id", records[i].ID.String()),
					zap.Error(err))
				continue
			}
			if fixed {
				repaired++
			}
		}
		return nil
	}).Error
	if err != nil && ctx.Err() == nil {
		s.logger.Error("sweep aborted", zap.Error(err))
		return
	}

	s.logger.Info("sweep complete",
		zap.Int("checked", checked),
		zap.Int("repaired", repaired),
		zap.Duration("elapsed", time.Since(start)))
}

func (s *consistencySweeper) checkRecord(ctx context.Context, record *emissions.EmissionRecord) (bool, error) {
	repaired := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current emissions.EmissionRecord
		if err := tx.First(&current, "id = ?", record.ID).Error; err != nil {
			return err
		}

		var items []emissions.EmissionLineItem
		if err := tx.Where("record_id = ?", current.ID).Find(&items).Error; err != nil {
			return err
		}

		if emissions.Consistent(&current, items) {
			return nil
		}

		want := emissions.Recompute(items)
		s.logger.Warn("aggregate drift detected",
			zap.String("record_id", current.ID.String()),
			zap.Float64("stored_total", current.TotalEmissions),
			zap.Float64("computed_total", want.TotalEmissions))

		current.Scope1Total = want.Scope1Total
		current.Scope2Total = want.Scope2Total
		current.Scope3Total = want.Scope3Total
		current.TotalEmissions = want.TotalEmissions
		if err := tx.Save(&current).Error; err != nil {
			return err
		}

		telemetry.AggregateDriftRepairs.Inc()
		repaired = true
		return nil
	})
	return repaired, err
}
