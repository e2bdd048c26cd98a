package db

import (
	"testing"

	"nftvault/internal/config"
)

func TestOpen_SQLiteMemoryMigrates(t *testing.T) {
	d, err := Open(config.DBConfig{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer Close(d)
	if err := AutoMigrate(d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{"wallets", "artifacts", "catalogs", "catalog_items", "ingestion_states", "system_settings"} {
		if !d.Gorm.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
	if err := SetTimezone(d, "UTC"); err != nil {
		t.Fatalf("sqlite timezone should be a no-op: %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(config.DBConfig{Driver: "oracle"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
