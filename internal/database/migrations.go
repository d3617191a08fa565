package database

import (
	"errors"
	"time"

	"github.com/storyloomhq/storyloom/backend/internal/content"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationBackfillLevelConfig   = "2026-05-02_backfill_level_config"
	migrationPromoteLegacyChapters = "2026-05-18_promote_legacy_chapters"
)

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
		{name: migrationBackfillLevelConfig, apply: backfillLevelConfig},
		{name: migrationPromoteLegacyChapters, apply: promoteLegacyChapters},
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

// backfillLevelConfig fills the hierarchy labels on projects created before
// the configuration column existed.
func backfillLevelConfig(db *gorm.DB) error {
	const defaults = `{"level1":"Chapter","level2":"Section","level3":"Beat"}`
	return db.Exec(
		"UPDATE projects SET level_config = ? WHERE level_config IS NULL OR level_config = ''",
		defaults,
	).Error
}

// promoteLegacyChapters converts rows from the deprecated flat chapters
// table into top-level content nodes. Node ids reuse the chapter ids so the
// chapter-scoped revisions can be re-pointed in place.
func promoteLegacyChapters(db *gorm.DB) error {
	var legacy []content.Chapter
	if err := db.Order("project_id ASC, sort_order ASC").Find(&legacy).Error; err != nil {
		return err
	}

	for _, chapter := range legacy {
		var existingCount int64
		if err := db.Model(&content.ContentNode{}).
			Where("id = ?", chapter.ID).
			Count(&existingCount).Error; err != nil {
			return err
		}
		if existingCount > 0 {
			continue
		}
		node := content.ContentNode{
			ID:        chapter.ID,
			ProjectID: chapter.ProjectID,
			Title:     chapter.Title,
			Level:     content.MinLevel,
			Order:     chapter.Order,
			CreatedAt: chapter.CreatedAt,
		}
		if err := db.Create(&node).Error; err != nil {
			return err
		}
	}

	if err := db.Exec(
		"UPDATE revisions SET node_id = chapter_id WHERE chapter_id IS NOT NULL AND node_id IS NULL",
	).Error; err != nil {
		return err
	}

	return db.Exec("DELETE FROM chapters").Error
}
