package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/timgst1/crawlerprotection/internal/storage/sqlite"
)

func TestOpenAndMigrate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "denials.sqlite")

	db, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	for i := 0; i < 2; i++ {
		if err := sqlite.Migrate(db); err != nil {
			t.Fatalf("Migrate run %d: %v", i+1, err)
		}
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM denials`).Scan(&n); err != nil {
		t.Fatalf("query denials: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty table, got %d rows", n)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := sqlite.Open(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
