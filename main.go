package main

import (
	"context"
	"log"

	"binstudy/adapters/excel"
	"binstudy/adapters/fs"
	"binstudy/adapters/memory"
	"binstudy/adapters/postgres"
	"binstudy/adapters/seeded"
	"binstudy/app"
	"binstudy/domain/experiment"
	"binstudy/internal"
	"binstudy/internal/config"
	"binstudy/internal/errors"
	"binstudy/ports"
	"binstudy/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"
)

// initDatabase initializes the PostgreSQL progress ledger, if configured.
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	if appConfig.Database.URL == "" {
		return nil, nil
	}

	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()

	params := experiment.DefaultParams()
	if appConfig.Experiment.ChallengeCount > 0 {
		params.ChallengeCount = appConfig.Experiment.ChallengeCount
	}

	// Progress ledger: postgres when configured, in-memory otherwise.
	var ledger ports.ProgressLedger
	db, err := initDatabase(appConfig)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if db != nil {
		defer db.Close()
		pgLedger := postgres.NewProgressLedger(db)
		if err := pgLedger.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Failed to ensure ledger schema: %v", err)
		}
		ledger = pgLedger
		logger.Info("progress ledger backed by postgres")
	} else {
		ledger = memory.NewProgressLedger()
		logger.Info("no DATABASE_URL configured, progress ledger is in-memory")
	}

	experimentService, err := app.NewExperimentService(
		params,
		experiment.DefaultViewPolicy(),
		appConfig.Experiment.Seed,
		app.ExperimentDeps{
			Challenges: fs.NewChallengeRepository(appConfig.Experiment.ChallengeDir, logger),
			Recovery:   fs.NewRecoveryStore(appConfig.Experiment.RecoveryLog, logger),
			RNG:        seeded.New(),
			Ledger:     ledger,
			Logger:     logger,
		},
	)
	if err != nil {
		log.Fatalf("Failed to create experiment service: %v", err)
	}

	experimentService.OnStudyCompleted(func(t experiment.StudyType) {
		logger.Info("study completed: %s", t)
	})
	experimentService.OnExperimentCompleted(func() {
		logger.Info("experiment completed, thank the participant")
	})

	// When a previous session's assignment log is expected, wait for it on a
	// background task so startup stays responsive; the bound comes from
	// ASSIGNMENT_WAIT.
	group, ctx := errgroup.WithContext(context.Background())
	if appConfig.Experiment.AssignmentLog != "" {
		source, err := fs.NewAssignmentSource(appConfig.Experiment.AssignmentLog, 0, params, logger)
		if err != nil {
			log.Fatalf("Failed to create assignment source: %v", err)
		}
		group.Go(func() error {
			waitCtx, cancel := context.WithTimeout(ctx, appConfig.Experiment.AssignmentWait)
			defer cancel()
			assignment, err := source.Wait(waitCtx)
			if err != nil {
				logger.Error("external assignment unavailable, falling back to randomization: %v", err)
				return nil
			}
			if err := experimentService.ApplyAssignment(*assignment); err != nil {
				logger.Warn("external assignment ignored: %v", err)
			}
			return nil
		})
	}

	reportService := app.NewReportService(ledger, excel.NewReportWriter(), logger)

	server := ui.NewServer(experimentService, reportService, ui.Config{
		BriefingDir: appConfig.Experiment.BriefingDir,
		ReportFile:  appConfig.Report.File,
	}, logger)

	group.Go(func() error {
		return server.Start(":" + appConfig.Server.Port)
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("Server terminated: %v", err)
	}
}
