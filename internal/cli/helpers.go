package cli

import (
	"fmt"
	"path/filepath"

	"sart-go/internal/config"
	"sart-go/internal/database"
	logger "sart-go/internal/logging"

	"go.uber.org/zap"
)

// bootstrap loads the configuration and builds the logger from it.
func bootstrap(opts ...logger.Option) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return nil, nil, err
	}
	if !filepath.IsAbs(cfg.Logging.Directory) {
		cfg.Logging.Directory = filepath.Join(projectRoot, cfg.Logging.Directory)
	}
	log, err := logger.Init(cfg.Logging, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}

// openDatabase connects and migrates, storing the handle in database.DB.
func openDatabase(cfg config.DatabaseConfig, log *zap.Logger) error {
	if cfg.Driver == "sqlite" && cfg.Path != ":memory:" && !filepath.IsAbs(cfg.Path) {
		cfg.Path = filepath.Join(projectRoot, cfg.Path)
	}
	return database.Init(cfg, log)
}

func resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectRoot, path)
}
