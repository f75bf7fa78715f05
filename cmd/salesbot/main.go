package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/salesbot/internal/cache"
	"github.com/andresuchdata/salesbot/internal/config"
	"github.com/andresuchdata/salesbot/internal/history"
	"github.com/andresuchdata/salesbot/internal/pipeline"
	"github.com/andresuchdata/salesbot/internal/report"
	"github.com/andresuchdata/salesbot/internal/storage"
	"github.com/andresuchdata/salesbot/pkg/logger"
)

func newReportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "report",
			Usage: "Generate the order history report after the run",
		},
		&cli.StringFlag{
			Name:    "report-dir",
			Usage:   "Directory report artifacts are written to",
			Value:   "./data/reports",
			EnvVars: []string{"REPORT_DIR"},
		},
	}
}

func newHistoryStore(cfg *config.Config) (history.Store, error) {
	if cfg.Database.URL != "" {
		store, err := history.NewPostgresStore(cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		return store, nil
	}
	return history.NewCSVStore(cfg.Data.HistoryPath), nil
}

func newRunner(cfg *config.Config) (*pipeline.Runner, history.Store, error) {
	store, err := newHistoryStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	dashCache, err := cache.NewDashboardCache(cfg.Cache)
	if err != nil {
		logger.Warn().Err(err).Msg("Cache unavailable, continuing without it")
		dashCache = cache.NewNoopCache()
	}

	var objStore storage.ObjectStorage
	if cfg.Storage.Endpoint != "" {
		objStore, err = storage.NewMinioClient(cfg.Storage)
		if err != nil {
			logger.Warn().Err(err).Msg("Object storage unavailable, model sync disabled")
			objStore = nil
		}
	}

	return pipeline.NewRunner(cfg, store, dashCache, objStore), store, nil
}

func runStages(c *cli.Context, cfg *config.Config, stages []string) error {
	runner, store, err := newRunner(cfg)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	results := runner.Run(c.Context, stages)

	if c.Bool("report") {
		rows, err := store.Load()
		if err != nil {
			logger.Error().Err(err).Msg("Cannot load history for report")
		} else {
			gen := report.NewGenerator(c.String("report-dir"))
			if err := gen.Generate(rows); err != nil {
				logger.Error().Err(err).Msg("Report generation failed")
			}
		}
	}

	for _, res := range results {
		if !res.OK {
			return cli.Exit("pipeline finished with failures", 1)
		}
	}
	return nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	cfg := config.Load()
	logger.Setup(cfg.Logging.Level, cfg.Logging.Path)

	app := &cli.App{
		Name:  "salesbot",
		Usage: "Sales forecasting and automated reorder pipeline",
		Flags: newReportFlags(),
		Commands: []*cli.Command{
			{
				Name:  "train",
				Usage: "Build features, fit the forecast model and write the prediction table",
				Flags: newReportFlags(),
				Action: func(c *cli.Context) error {
					if err := cfg.ValidateData(); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return runStages(c, cfg, []string{pipeline.StageTrain})
				},
			},
			{
				Name:  "predict",
				Usage: "Regenerate the prediction table from the saved model",
				Flags: newReportFlags(),
				Action: func(c *cli.Context) error {
					if err := cfg.ValidateData(); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return runStages(c, cfg, []string{pipeline.StagePredict})
				},
			},
			{
				Name:  "automate",
				Usage: "Apply the reorder policy and dispatch an order batch",
				Flags: newReportFlags(),
				Action: func(c *cli.Context) error {
					if err := cfg.ValidateForAutomation(); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return runStages(c, cfg, []string{pipeline.StageAutomate})
				},
			},
			{
				Name:  "full",
				Usage: "Run train, predict and automate in sequence",
				Flags: newReportFlags(),
				Action: func(c *cli.Context) error {
					if err := cfg.ValidateData(); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					if err := cfg.ValidateForAutomation(); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return runStages(c, cfg, []string{
						pipeline.StageTrain,
						pipeline.StagePredict,
						pipeline.StageAutomate,
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}
}
