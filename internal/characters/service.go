package characters

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/storyloomhq/storyloom/backend/internal/identifier"
	"github.com/storyloomhq/storyloom/backend/internal/storyerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew      = "characters.service.new"
	opCreateCharacter = "characters.create"
	opUpdateCharacter = "characters.update"
	opDeleteCharacter = "characters.delete"
	opGetCharacter    = "characters.get"
	opListCharacters  = "characters.list"
)

// ServiceConfig describes the dependencies for the character service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider identifier.Provider
	Logger     *zap.Logger
}

// Service owns the character roster of a project.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider identifier.Provider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, storyerr.New(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, storyerr.New(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// CharacterInput is the writable character shape. Updates are full
// replacements: any field left at its zero value is defaulted, not
// preserved from the stored row.
type CharacterInput struct {
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	Notes           string        `json:"notes"`
	Role            string        `json:"role"`
	Archetype       string        `json:"archetype"`
	Appearance      *Appearance   `json:"appearance"`
	Personality     *Personality  `json:"personality"`
	ImportanceLevel int           `json:"importanceLevel"`
	Relationships   Relationships `json:"relationships"`
	Motivation      string        `json:"motivation"`
	Goals           string        `json:"goals"`
	Fears           string        `json:"fears"`
	Secrets         string        `json:"secrets"`
}

// normalize applies the defaulting and clamping rules shared by create and
// update. A missing personality falls back to the archetype's trait preset
// when one is named, matching how the editing dialog pre-populates sliders.
func (input CharacterInput) normalize(operation string) (CharacterInput, error) {
	normalized := input

	normalized.Name = strings.TrimSpace(input.Name)
	if normalized.Name == "" {
		return CharacterInput{}, storyerr.New(operation, "invalid_name", ErrInvalidName)
	}

	if normalized.Role == "" {
		normalized.Role = defaultRole
	} else if !validRole(normalized.Role) {
		return CharacterInput{}, storyerr.New(operation, "invalid_role", ErrInvalidRole)
	}

	if normalized.Archetype != "" {
		if _, ok := ArchetypePresetByValue(normalized.Archetype); !ok {
			return CharacterInput{}, storyerr.New(operation, "invalid_archetype", ErrInvalidArchetype)
		}
	}

	if normalized.Appearance == nil {
		appearance := DefaultAppearance()
		normalized.Appearance = &appearance
	} else if normalized.Appearance.DistinctiveFeatures == nil {
		features := *normalized.Appearance
		features.DistinctiveFeatures = []string{}
		normalized.Appearance = &features
	}

	if normalized.Personality == nil {
		personality := DefaultPersonality()
		if preset, ok := ArchetypePresetByValue(normalized.Archetype); ok {
			personality = preset.Traits
		}
		normalized.Personality = &personality
	} else {
		clamped := normalized.Personality.Clamped()
		normalized.Personality = &clamped
	}

	if normalized.ImportanceLevel == 0 {
		normalized.ImportanceLevel = defaultImportance
	}
	normalized.ImportanceLevel = clamp(normalized.ImportanceLevel, minImportanceLevel, maxImportanceLevel)

	if normalized.Relationships == nil {
		normalized.Relationships = Relationships{}
	}

	return normalized, nil
}

// CreateCharacter inserts a fully defaulted character row.
func (s *Service) CreateCharacter(ctx context.Context, projectID string, input CharacterInput) (*Character, error) {
	normalized, err := input.normalize(opCreateCharacter)
	if err != nil {
		return nil, err
	}

	characterID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateCharacter, "id_generation_failed", err)
		return nil, storyerr.New(opCreateCharacter, "id_generation_failed", err)
	}

	now := s.clock().UTC()
	character := Character{
		ID:              characterID,
		ProjectID:       projectID,
		Name:            normalized.Name,
		Description:     normalized.Description,
		Notes:           normalized.Notes,
		Role:            normalized.Role,
		Archetype:       normalized.Archetype,
		Appearance:      *normalized.Appearance,
		Personality:     *normalized.Personality,
		ImportanceLevel: normalized.ImportanceLevel,
		Relationships:   normalized.Relationships,
		Motivation:      normalized.Motivation,
		Goals:           normalized.Goals,
		Fears:           normalized.Fears,
		Secrets:         normalized.Secrets,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.db.WithContext(ctx).Create(&character).Error; err != nil {
		s.logError(opCreateCharacter, "insert_failed", err, zap.String("project_id", projectID))
		return nil, storyerr.New(opCreateCharacter, "insert_failed", err)
	}
	return &character, nil
}

// UpdateCharacter replaces every writable field of the stored row. Fields
// omitted from the input are reset to their defaults, not preserved.
func (s *Service) UpdateCharacter(ctx context.Context, characterID string, input CharacterInput) (*Character, error) {
	normalized, err := input.normalize(opUpdateCharacter)
	if err != nil {
		return nil, err
	}

	var existing Character
	err = s.db.WithContext(ctx).Where("id = ?", characterID).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storyerr.New(opUpdateCharacter, "character_not_found", ErrCharacterNotFound)
	}
	if err != nil {
		s.logError(opUpdateCharacter, "select_failed", err, zap.String("character_id", characterID))
		return nil, storyerr.New(opUpdateCharacter, "select_failed", err)
	}

	existing.Name = normalized.Name
	existing.Description = normalized.Description
	existing.Notes = normalized.Notes
	existing.Role = normalized.Role
	existing.Archetype = normalized.Archetype
	existing.Appearance = *normalized.Appearance
	existing.Personality = *normalized.Personality
	existing.ImportanceLevel = normalized.ImportanceLevel
	existing.Relationships = normalized.Relationships
	existing.Motivation = normalized.Motivation
	existing.Goals = normalized.Goals
	existing.Fears = normalized.Fears
	existing.Secrets = normalized.Secrets
	existing.UpdatedAt = s.clock().UTC()

	if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
		s.logError(opUpdateCharacter, "save_failed", err, zap.String("character_id", characterID))
		return nil, storyerr.New(opUpdateCharacter, "save_failed", err)
	}
	return &existing, nil
}

// DeleteCharacter removes the row. Relationship labels on other characters
// that reference the deleted id are intentionally left in place.
func (s *Service) DeleteCharacter(ctx context.Context, characterID string) (*Character, error) {
	var existing Character
	err := s.db.WithContext(ctx).Where("id = ?", characterID).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storyerr.New(opDeleteCharacter, "character_not_found", ErrCharacterNotFound)
	}
	if err != nil {
		s.logError(opDeleteCharacter, "select_failed", err, zap.String("character_id", characterID))
		return nil, storyerr.New(opDeleteCharacter, "select_failed", err)
	}

	if err := s.db.WithContext(ctx).Where("id = ?", characterID).Delete(&Character{}).Error; err != nil {
		s.logError(opDeleteCharacter, "delete_failed", err, zap.String("character_id", characterID))
		return nil, storyerr.New(opDeleteCharacter, "delete_failed", err)
	}
	return &existing, nil
}

// GetCharacter loads a single character.
func (s *Service) GetCharacter(ctx context.Context, characterID string) (*Character, error) {
	var character Character
	err := s.db.WithContext(ctx).Where("id = ?", characterID).Take(&character).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storyerr.New(opGetCharacter, "character_not_found", ErrCharacterNotFound)
	}
	if err != nil {
		s.logError(opGetCharacter, "query_failed", err, zap.String("character_id", characterID))
		return nil, storyerr.New(opGetCharacter, "query_failed", err)
	}
	return &character, nil
}

// ListCharacters returns every character of a project ordered by name.
func (s *Service) ListCharacters(ctx context.Context, projectID string) ([]Character, error) {
	var roster []Character
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("name ASC").
		Find(&roster).Error; err != nil {
		s.logError(opListCharacters, "query_failed", err, zap.String("project_id", projectID))
		return nil, storyerr.New(opListCharacters, "query_failed", err)
	}
	return roster, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("characters service error", attrs...)
}
