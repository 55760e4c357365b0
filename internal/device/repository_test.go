package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the devices table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE devices (
			id INTEGER PRIMARY KEY,
			mac TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			doc TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;
		CREATE INDEX idx_devices_mac ON devices(mac);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func testRecord(id uint32, mac string) *Record {
	return &Record{
		ID:       id,
		MAC:      mac,
		Type:     TypePlug,
		Attrs:    map[string]string{"name": "plug", "location": "kitchen"},
		Channels: map[string]string{"one": "1"},
	}
}

func TestSQLiteRepository_SaveAndGetByMAC(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Save(ctx, testRecord(4, "00:00:00:00:00:00:00:04")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.GetByMAC(ctx, "00:00:00:00:00:00:00:04")
	if err != nil {
		t.Fatalf("GetByMAC() error = %v", err)
	}
	if got.ID != 4 || got.Attrs["location"] != "kitchen" || got.Channels["one"] != "1" {
		t.Errorf("GetByMAC() = %+v", got)
	}
}

func TestSQLiteRepository_SaveReplaces(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	rec := testRecord(1, "aa")
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rec.Attrs["name"] = "renamed"
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("Save(again) error = %v", err)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 || all[0].Attrs["name"] != "renamed" {
		t.Errorf("List() = %+v", all)
	}
}

func TestSQLiteRepository_GetByMACNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if _, err := repo.GetByMAC(ctx, "ff"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByMAC(missing) error = %v, want ErrDeviceNotFound", err)
	}
	if _, err := repo.GetByMAC(ctx, ""); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByMAC(empty) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_DeleteAndMaxID(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	maxID, err := repo.MaxID(ctx)
	if err != nil || maxID != 0 {
		t.Fatalf("MaxID(empty) = %d, %v; want 0, nil", maxID, err)
	}

	for _, id := range []uint32{3, 11, 7} {
		if err := repo.Save(ctx, testRecord(id, "")); err != nil {
			t.Fatalf("Save(%d) error = %v", id, err)
		}
	}
	if maxID, _ = repo.MaxID(ctx); maxID != 11 {
		t.Errorf("MaxID() = %d, want 11", maxID)
	}

	if err := repo.Delete(ctx, 11); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, 11); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Delete(again) error = %v, want ErrDeviceNotFound", err)
	}
	if maxID, _ = repo.MaxID(ctx); maxID != 7 {
		t.Errorf("MaxID() after delete = %d, want 7", maxID)
	}
}

func TestSQLiteRepository_SaveRequiresID(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	if err := repo.Save(context.Background(), testRecord(0, "x")); err == nil {
		t.Fatal("Save(id 0) error = nil, want error")
	}
}
