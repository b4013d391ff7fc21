// Package wire provides dependency injection for the ronda application.
// It creates singleton services with lazy initialization.
package wire

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/example/ronda/internal/adapters/api"
	"github.com/example/ronda/internal/adapters/location"
	"github.com/example/ronda/internal/adapters/sqlite"
	"github.com/example/ronda/internal/app"
	"github.com/example/ronda/internal/config"
	"github.com/example/ronda/internal/db"
	"github.com/example/ronda/internal/ports/primary"
	"github.com/example/ronda/internal/ports/secondary"
)

var (
	visitService   primary.VisitSessionService
	findingService primary.FindingService
	overrideAudit  secondary.OverrideAuditRepository
	cfg            *config.Config
	logger         *zap.Logger
	once           sync.Once
)

// VisitService returns the singleton VisitSessionService instance.
func VisitService() primary.VisitSessionService {
	once.Do(initServices)
	return visitService
}

// FindingService returns the singleton FindingService instance.
func FindingService() primary.FindingService {
	once.Do(initServices)
	return findingService
}

// OverrideAudit returns the singleton override audit repository.
func OverrideAudit() secondary.OverrideAuditRepository {
	once.Do(initServices)
	return overrideAudit
}

// Logger returns the shared application logger.
func Logger() *zap.Logger {
	once.Do(initServices)
	return logger
}

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v (run: ronda init)", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err = newLogger()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	// Get database connection
	database, err := db.GetDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Create repository adapters (secondary ports) - sqlite adapters with injected DB
	draftRepo := sqlite.NewDraftRepository(database)
	overrideAudit = sqlite.NewOverrideAuditRepository(database)

	backOffice := api.NewClient(cfg.APIBaseURL, cfg.APIToken, logger)
	locationProvider := newLocationProvider(cfg, logger)

	evidenceDir, err := db.GetEvidenceDir()
	if err != nil {
		log.Fatalf("failed to resolve evidence directory: %v", err)
	}

	// Create services (primary ports implementation)
	visitService = app.NewVisitSessionService(backOffice, locationProvider, draftRepo, overrideAudit, evidenceDir)
	findingService = app.NewFindingService(backOffice, draftRepo)
}

// newLocationProvider picks the configured positioning source: the
// helper command when set, the pinned coordinate otherwise.
func newLocationProvider(cfg *config.Config, logger *zap.Logger) secondary.LocationProvider {
	if cfg.LocationCmd != "" {
		return location.NewCommandProvider(cfg.LocationCmd, logger)
	}
	return location.NewStaticProvider(cfg.StaticLat, cfg.StaticLng)
}

// newLogger writes structured logs to ~/.ronda/ronda.log so the CLI's
// stdout stays clean for command output.
func newLogger() (*zap.Logger, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	logDir := filepath.Join(home, ".ronda")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{filepath.Join(logDir, "ronda.log")}
	zcfg.ErrorOutputPaths = zcfg.OutputPaths
	return zcfg.Build()
}
