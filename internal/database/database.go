package database

import (
	"fmt"
	"os"
	"path/filepath"

	"sart-go/internal/config"
	logging "sart-go/internal/logging"
	"sart-go/internal/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Init opens the configured database, runs migrations and stores the
// connection in DB.
func Init(dbConf config.DatabaseConfig, log *zap.Logger) error {
	db, err := Open(dbConf, log)
	if err != nil {
		return err
	}
	log.Info("Database connection established successfully.", zap.String("driver", dbConf.Driver))

	if err := Migrate(db, log); err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to postgres or sqlite depending on dbConf.Driver.
func Open(dbConf config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(dbConf)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logging.NewGormZapLogger(log, dbConf.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dbConf.Driver == "sqlite" {
		// SQLite allows one writer, and every pooled connection to
		// :memory: would otherwise get its own empty database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func dialectorFor(dbConf config.DatabaseConfig) (gorm.Dialector, error) {
	switch dbConf.Driver {
	case "postgres", "":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			dbConf.Host, dbConf.User, dbConf.Password, dbConf.DBName, dbConf.Port)
		return postgres.Open(dsn), nil
	case "sqlite":
		if dbConf.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dbConf.Path), 0755); err != nil {
				return nil, fmt.Errorf("could not create database directory: %w", err)
			}
		}
		return sqlite.Open(dbConf.Path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dbConf.Driver)
	}
}

// Migrate creates or updates the result tables.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	// GORM's AutoMigrate will create tables, columns, and foreign keys.
	// It will NOT create composite indexes, so we handle that separately.
	err := db.AutoMigrate(
		&models.SARTResult{},
		&models.SARTRound{},
		&models.SARTTrial{},
	)
	if err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	log.Info("Database migrations completed successfully.")

	trialIndex := `CREATE INDEX IF NOT EXISTS idx_sart_trials_order ON sart_trials (result_id, round_number, trial_index);`
	if err := db.Exec(trialIndex).Error; err != nil {
		return fmt.Errorf("failed to create custom index on trials table: %w", err)
	}
	log.Info("Custom indexes ensured successfully.")
	return nil
}
