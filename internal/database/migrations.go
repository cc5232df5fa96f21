package database

import (
	"errors"
	"time"

	"github.com/plumeworks/plume/backend/internal/gateway"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationClampNegativeCounters = "2026-07-14_clamp_negative_counters"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationClampNegativeCounters, apply: clampNegativeCounters},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Counter adjustments are not transactional with join-row writes, so a crash
// between the two statements can leave a counter below zero. Clamp on start.
func clampNegativeCounters(db *gorm.DB) error {
	for _, column := range []string{"likes_count", "collects_count", "comments_count"} {
		if err := db.Model(&gateway.Note{}).
			Where(column+" < 0").
			Update(column, 0).Error; err != nil {
			return err
		}
	}
	for _, column := range []string{"followers_count", "following_count"} {
		if err := db.Model(&gateway.Profile{}).
			Where(column+" < 0").
			Update(column, 0).Error; err != nil {
			return err
		}
	}
	return nil
}
