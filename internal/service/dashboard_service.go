package service

import (
	"context"

	"github.com/andresuchdata/salesbot/internal/cache"
	"github.com/andresuchdata/salesbot/internal/config"
	"github.com/andresuchdata/salesbot/internal/dataset"
	"github.com/andresuchdata/salesbot/internal/domain"
	"github.com/andresuchdata/salesbot/internal/history"
	"github.com/andresuchdata/salesbot/internal/storage"
	"github.com/andresuchdata/salesbot/pkg/logger"
)

// DashboardService serves the read-only API views over the pipeline's output
// files and the order history.
type DashboardService struct {
	cfg      *config.Config
	store    history.Store
	cache    cache.DashboardCache
	objStore storage.ObjectStorage // nil when no bucket is configured
}

func NewDashboardService(cfg *config.Config, store history.Store, dashCache cache.DashboardCache, objStore storage.ObjectStorage) *DashboardService {
	if dashCache == nil {
		dashCache = cache.NewNoopCache()
	}
	return &DashboardService{cfg: cfg, store: store, cache: dashCache, objStore: objStore}
}

// Predictions returns the current prediction table, cache-first.
func (s *DashboardService) Predictions(ctx context.Context) ([]domain.PredictionRow, error) {
	if rows, hit, err := s.cache.GetPredictions(ctx); err != nil {
		logger.Warn().Err(err).Msg("Prediction cache read failed")
	} else if hit {
		return rows, nil
	}

	rows, err := dataset.LoadPredictions(s.cfg.Data.PredictionsPath)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetPredictions(ctx, rows); err != nil {
		logger.Warn().Err(err).Msg("Prediction cache write failed")
	}
	return rows, nil
}

// History returns every recorded order history row, oldest first.
func (s *DashboardService) History(ctx context.Context) ([]history.Row, error) {
	return s.store.Load()
}

// Summary aggregates the order history, cache-first.
func (s *DashboardService) Summary(ctx context.Context) (*history.Summary, error) {
	if summary, hit, err := s.cache.GetSummary(ctx); err != nil {
		logger.Warn().Err(err).Msg("Summary cache read failed")
	} else if hit {
		return summary, nil
	}

	rows, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	summary := history.Summarize(rows)
	if err := s.cache.SetSummary(ctx, &summary); err != nil {
		logger.Warn().Err(err).Msg("Summary cache write failed")
	}
	return &summary, nil
}

// Models lists the trained model artifacts synced to object storage. Without
// a configured bucket the list is empty.
func (s *DashboardService) Models(ctx context.Context) ([]storage.ObjectInfo, error) {
	if s.objStore == nil {
		return []storage.ObjectInfo{}, nil
	}
	return s.objStore.ListObjects(ctx, "models/")
}

// DescribeData profiles the raw inventory file for the dashboard.
func (s *DashboardService) DescribeData(ctx context.Context) (*dataset.Summary, error) {
	records, err := dataset.LoadInventory(s.cfg.Data.InputPath, s.cfg.Data.DateColumn)
	if err != nil {
		return nil, err
	}
	summary := dataset.Describe(records)
	return &summary, nil
}
