package database

import (
	"errors"
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/plumeworks/plume/backend/internal/gateway"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsClampsNegativeCounters(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&gateway.Note{}, &gateway.Profile{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	note := gateway.Note{
		NoteID:     "note-1",
		AuthorID:   "user-1",
		Title:      "t",
		Content:    "c",
		LikesCount: -2,
	}
	if err := database.Create(&note).Error; err != nil {
		testContext.Fatalf("failed to insert note: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored gateway.Note
	if err := database.Where("note_id = ?", note.NoteID).Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload note: %v", err)
	}
	if stored.LikesCount != 0 {
		testContext.Fatalf("expected likes counter to be clamped, got %d", stored.LikesCount)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationClampNegativeCounters).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}

func TestOpenSQLiteTranslatesUniqueViolations(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "open.db")
	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	like := gateway.Like{UserID: "user-1", NoteID: "note-1"}
	if err := database.Create(&like).Error; err != nil {
		testContext.Fatalf("failed to insert like: %v", err)
	}
	duplicate := gateway.Like{UserID: "user-1", NoteID: "note-1"}
	err = database.Create(&duplicate).Error
	if err == nil {
		testContext.Fatalf("expected duplicate insert to fail")
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		testContext.Fatalf("expected translated duplicate-key error, got %v", err)
	}
}
