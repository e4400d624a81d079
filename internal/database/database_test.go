package database

import (
	"testing"

	"sart-go/internal/config"

	"go.uber.org/zap"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	log := zap.NewNop()
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", LogLevel: "silent"}, log)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := Migrate(db, log); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	for _, table := range []string{"sart_results", "sart_rounds", "sart_trials"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("table %s missing after Migrate()", table)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(config.DatabaseConfig{Driver: "oracle"}, zap.NewNop()); err == nil {
		t.Error("Open() with an unknown driver returned nil error")
	}
}
