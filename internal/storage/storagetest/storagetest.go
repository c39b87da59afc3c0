// Package storagetest opens a migrated throwaway database for tests.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/storage"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func New(t testing.TB) *storage.Storage {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "slotwarden.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("getting sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := storage.New(db)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return store
}

// AddMember creates a plain unrestricted member and fails the test on error.
func AddMember(t testing.TB, store *storage.Storage, m *models.Member) *models.Member {
	t.Helper()

	if m.DayNumber == 0 {
		m.DayNumber = 1
	}
	if _, err := store.CreateMember(context.Background(), m); err != nil {
		t.Fatalf("creating member %d: %v", m.UserID, err)
	}
	got, err := store.GetMember(context.Background(), m.GroupID, m.UserID)
	if err != nil {
		t.Fatalf("getting member %d: %v", m.UserID, err)
	}
	return got
}
