// cmd/stockflow/main.go
//
// Operational CLI for the projection pipeline: run projections locally,
// prepare the database schema, and move snapshot files to and from the
// shared bucket.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/ukryl/stock-projection-app/backend-go/internal/cache"
	"github.com/ukryl/stock-projection-app/backend-go/internal/config"
	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
	"github.com/ukryl/stock-projection-app/backend-go/internal/ingest"
	"github.com/ukryl/stock-projection-app/backend-go/internal/pipeline"
	"github.com/ukryl/stock-projection-app/backend-go/internal/repository/postgres"
	"github.com/ukryl/stock-projection-app/backend-go/internal/service"
	"github.com/ukryl/stock-projection-app/backend-go/internal/storage"
	"github.com/ukryl/stock-projection-app/backend-go/pkg/logger"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "stockflow",
		Usage: "Run and manage yarn stock flow projections",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Load the snapshot directory and run a projection",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data-dir",
						Usage:   "Directory containing the snapshot CSVs",
						EnvVars: []string{"PROJECTION_DATA_DIR"},
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Usage:   "Directory to write the consolidated export to",
						EnvVars: []string{"PROJECTION_OUTPUT_DIR"},
					},
					&cli.StringFlag{
						Name:  "start",
						Usage: "First projected period (YYYY-MM), defaults to next month",
					},
					&cli.IntFlag{
						Name:  "horizon",
						Usage: "Number of months to project",
					},
					&cli.Float64Flag{
						Name:  "safety-stock",
						Usage: "Safety stock in kg applied to every product",
					},
					&cli.StringFlag{
						Name:  "policy",
						Usage: "Safety stock policy: buffer or reserve",
					},
					&cli.StringFlag{
						Name:  "grouping",
						Usage: "Roll-up level: product, family or super_family",
					},
					&cli.Float64Flag{
						Name:  "winding-rate",
						Usage: "Winding capacity in kg per day",
					},
					&cli.BoolFlag{
						Name:  "persist",
						Usage: "Store the run and its results in the database",
					},
				},
				Action: runProjection,
			},
			{
				Name:   "migrate",
				Usage:  "Create the projection tables when missing",
				Action: runMigrate,
			},
			{
				Name:  "download",
				Usage: "Download snapshot CSVs from the shared bucket into the data directory",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Object key prefix to download",
						Value: "snapshots/",
					},
				},
				Action: runDownload,
			},
			{
				Name:  "upload",
				Usage: "Upload a consolidated export to the shared bucket",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Local file to upload",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Object key prefix to upload under",
						Value: "exports/",
					},
				},
				Action: runUpload,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runProjection(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.Mode)

	dataDir := c.String("data-dir")
	if dataDir == "" {
		dataDir = cfg.Projection.DataDir
	}
	outputDir := c.String("output-dir")
	if outputDir == "" {
		outputDir = cfg.Projection.OutputDir
	}

	params := domain.RunParams{
		Start:             domain.PeriodOf(time.Now()).Next(),
		HorizonMonths:     cfg.Projection.HorizonMonths,
		SafetyStockKg:     cfg.Projection.SafetyStockKg,
		SafetyStockPolicy: domain.SafetyStockPolicy(cfg.Projection.SafetyStockPolicy),
		WindingRateKgDay:  cfg.Projection.WindingRateKgDay,
		Grouping:          domain.GroupingLevel(cfg.Projection.Grouping),
	}
	if start := c.String("start"); start != "" {
		period, err := domain.ParsePeriod(start)
		if err != nil {
			return err
		}
		params.Start = period
	}
	if c.IsSet("horizon") {
		params.HorizonMonths = c.Int("horizon")
	}
	if c.IsSet("safety-stock") {
		params.SafetyStockKg = c.Float64("safety-stock")
	}
	if policy := c.String("policy"); policy != "" {
		params.SafetyStockPolicy = domain.SafetyStockPolicy(policy)
	}
	if grouping := c.String("grouping"); grouping != "" {
		params.Grouping = domain.GroupingLevel(grouping)
	}
	if c.IsSet("winding-rate") {
		params.WindingRateKgDay = c.Float64("winding-rate")
	}

	snap, err := ingest.LoadDir(dataDir)
	if err != nil {
		return fmt.Errorf("failed to load snapshot from %s: %w", dataDir, err)
	}

	runner := pipeline.NewRunner(cfg.Projection.WorkerCount)

	var result *pipeline.Result
	if c.Bool("persist") {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(c.Context, db); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}

		svc := service.NewProjectionService(postgres.NewProjectionRepository(db), cache.NewNoopProjectionCache(), runner)
		result, err = svc.Run(c.Context, snap, params)
		if err != nil {
			return err
		}
	} else {
		result, err = runner.Run(c.Context, snap, params)
		if err != nil {
			return err
		}
	}

	path, err := pipeline.ExportCSV(outputDir, result)
	if err != nil {
		return fmt.Errorf("failed to export result: %w", err)
	}

	logger.Log.Info().
		Str("export", path).
		Int("groups", len(result.Groups)).
		Int("recommendations", len(result.Recommendations)).
		Float64("stockout_rate", result.KPIs.StockoutRate).
		Msg("projection run finished")
	for _, note := range result.Degraded {
		logger.Log.Warn().Msg(note)
	}
	return nil
}

func runMigrate(c *cli.Context) error {
	cfg := config.Load()

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := postgres.EnsureSchema(c.Context, db); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	logger.Log.Info().Msg("schema is up to date")
	return nil
}

func runDownload(c *cli.Context) error {
	cfg := config.Load()

	client, err := storage.NewMinioClient(cfg.Storage)
	if err != nil {
		return err
	}

	prefix := c.String("prefix")
	objects, err := client.ListObjects(c.Context, prefix)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		logger.Log.Info().Str("prefix", prefix).Msg("no objects found")
		return nil
	}

	for _, object := range objects {
		dest := filepath.Join(cfg.Projection.DataDir, filepath.Base(object.Key))
		if err := client.DownloadObject(c.Context, object.Key, dest); err != nil {
			return err
		}
		logger.Log.Info().Str("key", object.Key).Str("dest", dest).Msg("downloaded")
	}
	return nil
}

func runUpload(c *cli.Context) error {
	cfg := config.Load()

	client, err := storage.NewMinioClient(cfg.Storage)
	if err != nil {
		return err
	}

	file := c.String("file")
	key := c.String("prefix") + filepath.Base(file)
	if err := client.UploadObject(c.Context, key, file); err != nil {
		return err
	}
	logger.Log.Info().Str("key", key).Msg("uploaded")
	return nil
}
