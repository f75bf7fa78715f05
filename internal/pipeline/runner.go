package pipeline

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/andresuchdata/salesbot/internal/cache"
	"github.com/andresuchdata/salesbot/internal/config"
	"github.com/andresuchdata/salesbot/internal/dataset"
	"github.com/andresuchdata/salesbot/internal/domain"
	"github.com/andresuchdata/salesbot/internal/evaluate"
	"github.com/andresuchdata/salesbot/internal/features"
	"github.com/andresuchdata/salesbot/internal/forecast"
	"github.com/andresuchdata/salesbot/internal/history"
	"github.com/andresuchdata/salesbot/internal/reorder"
	"github.com/andresuchdata/salesbot/internal/storage"
	"github.com/andresuchdata/salesbot/internal/warehouse"
	"github.com/andresuchdata/salesbot/pkg/logger"
)

const modelObjectKey = "models/sales_arima.json"

// Stage names as reported in run results.
const (
	StageTrain    = "train"
	StagePredict  = "predict"
	StageAutomate = "automate"
)

// Runner wires the pipeline stages together. Each stage reads and writes the
// configured CSV files so stages can also run as separate invocations.
type Runner struct {
	cfg      *config.Config
	store    history.Store
	cache    cache.DashboardCache
	objStore storage.ObjectStorage
}

func NewRunner(cfg *config.Config, store history.Store, dashCache cache.DashboardCache, objStore storage.ObjectStorage) *Runner {
	if dashCache == nil {
		dashCache = cache.NewNoopCache()
	}
	return &Runner{cfg: cfg, store: store, cache: dashCache, objStore: objStore}
}

// Train runs ingest, feature building, stationarity check, grid search and
// holdout evaluation, then persists the processed dataset, the prediction
// table and the model artifact.
func (r *Runner) Train(ctx context.Context) error {
	records, err := dataset.LoadInventory(r.cfg.Data.InputPath, r.cfg.Data.DateColumn)
	if err != nil {
		return err
	}
	logger.Info().Int("records", len(records)).Msg("Inventory loaded")

	builder := features.NewBuilder()
	rows, err := builder.Build(records)
	if err != nil {
		return err
	}
	if n := features.CountInvalid(rows); n > 0 {
		return &domain.DataError{Stage: "features", Reason: "feature matrix still has invalid values after backfill"}
	}
	if err := dataset.WriteProcessed(r.cfg.Data.OutputPath, rows); err != nil {
		return err
	}

	sorted := forecast.SortByDate(rows)
	train, test := forecast.SplitChronological(sorted)
	logger.Info().Int("train", len(train)).Int("test", len(test)).Msg("Chronological split")

	target := make([]float64, len(sorted))
	for i, row := range sorted {
		target[i] = row.Sales
	}

	eval := evaluate.NewContext()
	eval, err = eval.WithStationarity(target)
	if err != nil {
		logger.Warn().Err(err).Msg("Stationarity test skipped")
	} else {
		logger.Info().
			Float64("adf_stat", eval.ADF.Statistic).
			Float64("p_value", eval.ADF.PValue).
			Int("used_lag", eval.ADF.UsedLag).
			Msg("Stationarity test")
	}

	artifact, err := forecast.GridSearch(train, forecast.SearchRanges{
		MaxP: r.cfg.Model.MaxP,
		MaxD: r.cfg.Model.MaxD,
		MaxQ: r.cfg.Model.MaxQ,
	})
	if err != nil {
		// One more try at the configured fixed order before giving up.
		order := forecast.Order{P: r.cfg.Model.Order[0], D: r.cfg.Model.Order[1], Q: r.cfg.Model.Order[2]}
		logger.Warn().Err(err).Str("order", order.String()).Msg("Grid search failed, fitting fixed order")
		artifact, err = forecast.FitRows(train, order)
		if err != nil {
			return err
		}
	}
	if err := artifact.Save(r.cfg.Model.SavePath); err != nil {
		return err
	}
	logger.Info().
		Str("order", artifact.Order.String()).
		Float64("aic", artifact.AIC).
		Str("path", r.cfg.Model.SavePath).
		Msg("Model trained and saved")

	if r.objStore != nil {
		if err := r.objStore.UploadObject(ctx, modelObjectKey, r.cfg.Model.SavePath); err != nil {
			logger.Warn().Err(err).Msg("Model artifact upload failed, continuing with local copy")
		}
	}

	forecaster := forecast.NewTrainedArimaForecaster(artifact)
	preds, err := forecaster.Forecast(test)
	if err != nil {
		return err
	}

	actual := make([]float64, len(test))
	predicted := make([]float64, len(preds))
	for i, row := range test {
		actual[i] = row.Sales
	}
	for i, p := range preds {
		predicted[i] = p.Point
	}
	eval = eval.WithAccuracy(actual, predicted).WithImportance(sorted)
	if m := eval.Metrics; m != nil {
		ev := logger.Info().
			Float64("rmse", m.RMSE).
			Float64("mae", m.MAE).
			Int("n", m.N)
		if !math.IsNaN(m.MAPE) {
			ev = ev.Float64("mape", m.MAPE)
		}
		ev.Msg("Holdout accuracy")
	}
	for i, imp := range eval.Importance {
		if i >= 5 {
			break
		}
		logger.Info().
			Str("feature", imp.Feature).
			Float64("abs_corr", imp.Correlation).
			Msg("Feature importance")
	}

	table := evaluate.BuildPredictionTable(sorted, len(train), preds)
	eval = eval.WithPredictions(table)
	if err := dataset.WritePredictions(r.cfg.Data.PredictionsPath, table); err != nil {
		return err
	}
	logger.Info().Int("items", len(table)).Str("path", r.cfg.Data.PredictionsPath).Msg("Prediction table written")

	if err := r.cache.InvalidateAll(ctx); err != nil {
		logger.Warn().Err(err).Msg("Cache invalidation failed")
	}
	return nil
}

// Predict regenerates the prediction table from the saved model without
// retraining. A missing or unreadable artifact degrades to the naive
// last-value forecaster.
func (r *Runner) Predict(ctx context.Context) error {
	records, err := dataset.LoadInventory(r.cfg.Data.InputPath, r.cfg.Data.DateColumn)
	if err != nil {
		return err
	}

	builder := features.NewBuilder()
	rows, err := builder.Build(records)
	if err != nil {
		return err
	}
	sorted := forecast.SortByDate(rows)
	train, test := forecast.SplitChronological(sorted)

	r.restoreModel(ctx)
	forecaster := forecast.LoadForecaster(r.cfg.Model.SavePath)
	preds, err := forecaster.Forecast(test)
	if err != nil {
		var modelErr *domain.ModelError
		if errors.As(err, &modelErr) {
			logger.Warn().Err(err).Msg("Saved model unusable, falling back to naive forecast")
			preds, err = forecast.NaiveLastValueForecaster{}.Forecast(test)
		}
		if err != nil {
			return err
		}
	}

	table := evaluate.BuildPredictionTable(sorted, len(train), preds)
	if err := dataset.WritePredictions(r.cfg.Data.PredictionsPath, table); err != nil {
		return err
	}
	logger.Info().
		Str("model", forecaster.Name()).
		Int("items", len(table)).
		Msg("Prediction table written")

	if err := r.cache.InvalidateAll(ctx); err != nil {
		logger.Warn().Err(err).Msg("Cache invalidation failed")
	}
	return nil
}

// restoreModel pulls the artifact from object storage when no local copy
// exists. Best effort: the naive fallback covers a failed restore.
func (r *Runner) restoreModel(ctx context.Context) {
	if r.objStore == nil {
		return
	}
	if _, err := forecast.LoadArtifact(r.cfg.Model.SavePath); err == nil {
		return
	}
	if err := r.objStore.DownloadObject(ctx, modelObjectKey, r.cfg.Model.SavePath); err != nil {
		logger.Warn().Err(err).Msg("Model artifact restore failed")
	}
}

// Automate reads the prediction table, applies the reorder policy and
// dispatches a single order batch, recording the outcome in history.
func (r *Runner) Automate(ctx context.Context) error {
	preds, err := dataset.LoadPredictions(r.cfg.Data.PredictionsPath)
	if err != nil {
		return err
	}

	policy := reorder.NewPolicy(r.cfg.Thresholds.MinThreshold, r.cfg.Thresholds.MaxDelayDays)
	lines := policy.Decide(preds)
	if len(lines) == 0 {
		logger.Info().Msg("No items need reordering")
		return nil
	}
	logger.Info().Int("items", len(lines)).Msg("Reorder batch assembled")

	api := warehouse.NewAPIClient(r.cfg.Warehouse)
	var ui warehouse.UISubmitter
	if r.cfg.Warehouse.Username != "" && r.cfg.Warehouse.Password != "" {
		ui = warehouse.NewBrowserSubmitter(r.cfg.Warehouse)
	}
	dispatcher := warehouse.NewDispatcher(api, ui)

	result := dispatcher.Dispatch(ctx, lines)
	if err := r.store.Append([]domain.OrderResult{result}); err != nil {
		logger.Error().Err(err).Msg("Failed to record order history")
		return err
	}
	if err := r.cache.InvalidateAll(ctx); err != nil {
		logger.Warn().Err(err).Msg("Cache invalidation failed")
	}

	if !result.Success {
		return &domain.TransportError{Op: "dispatch", Err: errors.New(result.Error)}
	}
	logger.Info().Str("order_id", result.OrderID).Msg("Order placed")
	return nil
}

// StageResult is the outcome of one stage within a run.
type StageResult struct {
	Stage    string
	OK       bool
	Err      error
	Duration time.Duration
}

// Run executes the named stages in order. Failures do not stop later stages;
// automate still runs on a stale prediction table when training fails.
func (r *Runner) Run(ctx context.Context, stages []string) []StageResult {
	results := make([]StageResult, 0, len(stages))
	for _, stage := range stages {
		start := time.Now()
		var err error
		switch stage {
		case StageTrain:
			err = r.Train(ctx)
		case StagePredict:
			err = r.Predict(ctx)
		case StageAutomate:
			err = r.Automate(ctx)
		default:
			err = &domain.DataError{Stage: stage, Reason: "unknown stage"}
		}
		res := StageResult{Stage: stage, OK: err == nil, Err: err, Duration: time.Since(start)}
		if err != nil {
			logger.Error().Err(err).Str("stage", stage).Msg("Stage failed")
		} else {
			logger.Info().Str("stage", stage).Dur("took", res.Duration).Msg("Stage complete")
		}
		results = append(results, res)
	}
	return results
}
