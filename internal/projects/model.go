package projects

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrProjectNotFound indicates the requested project does not exist.
	ErrProjectNotFound = errors.New("projects: project not found")
	// ErrInvalidTitle indicates an empty project title.
	ErrInvalidTitle = errors.New("projects: title is required")
	// ErrInvalidLevelConfig indicates a level configuration with a blank label.
	ErrInvalidLevelConfig = errors.New("projects: level config labels must be non-empty")
)

// LevelConfig names the three fixed hierarchy depths of a project.
type LevelConfig struct {
	Level1 string `json:"level1"`
	Level2 string `json:"level2"`
	Level3 string `json:"level3"`
}

// DefaultLevelConfig returns the labels applied when a project has no
// explicit configuration.
func DefaultLevelConfig() LevelConfig {
	return LevelConfig{Level1: "Chapter", Level2: "Section", Level3: "Beat"}
}

// Validate rejects configurations with blank labels.
func (c LevelConfig) Validate() error {
	for _, label := range []string{c.Level1, c.Level2, c.Level3} {
		if strings.TrimSpace(label) == "" {
			return ErrInvalidLevelConfig
		}
	}
	return nil
}

// Label returns the display label for a hierarchy depth in 1..3.
func (c LevelConfig) Label(level int) string {
	switch level {
	case 1:
		return c.Level1
	case 2:
		return c.Level2
	case 3:
		return c.Level3
	default:
		return ""
	}
}

// Project models a writing project and its hierarchy labels.
type Project struct {
	ID          string      `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	Title       string      `gorm:"column:title;size:320;not null" json:"title"`
	Description string      `gorm:"column:description;type:text" json:"description"`
	LevelConfig LevelConfig `gorm:"column:level_config;type:text;serializer:json" json:"levelConfig"`
	CreatedAt   time.Time   `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt   time.Time   `gorm:"column:updated_at;not null" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Project) TableName() string {
	return "projects"
}
