package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/storyloomhq/storyloom/backend/internal/characters"
	"github.com/storyloomhq/storyloom/backend/internal/content"
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
	opServiceNew        = "projects.service.new"
	opCreateProject     = "projects.create"
	opListProjects      = "projects.list"
	opGetProject        = "projects.get"
	opUpdateProject     = "projects.update"
	opDeleteProject     = "projects.delete"
	opUpdateLevelConfig = "projects.update_level_config"
)

// ServiceConfig describes the dependencies for the project service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider identifier.Provider
	Logger     *zap.Logger

	// Nodes, when set, is used to bootstrap the first hierarchy node of a
	// new project.
	Nodes *content.Service
}

// Service owns project lifecycle and level configuration.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider identifier.Provider
	logger     *zap.Logger
	nodes      *content.Service
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
		nodes:      cfg.Nodes,
	}, nil
}

// CreateProject inserts a project with the default level configuration and,
// when a content service is wired, bootstraps its first top-level node so a
// fresh project opens with something to write under.
func (s *Service) CreateProject(ctx context.Context, title, description string) (*Project, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return nil, storyerr.New(opCreateProject, "invalid_title", ErrInvalidTitle)
	}

	projectID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateProject, "id_generation_failed", err)
		return nil, storyerr.New(opCreateProject, "id_generation_failed", err)
	}

	now := s.clock().UTC()
	project := Project{
		ID:          projectID,
		Title:       trimmed,
		Description: description,
		LevelConfig: DefaultLevelConfig(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
		s.logError(opCreateProject, "insert_failed", err, zap.String("project_id", projectID))
		return nil, storyerr.New(opCreateProject, "insert_failed", err)
	}

	if s.nodes != nil {
		firstTitle := fmt.Sprintf("%s 1", project.LevelConfig.Level1)
		if _, err := s.nodes.CreateNode(ctx, content.CreateNodeRequest{
			ProjectID: project.ID,
			Title:     firstTitle,
			Level:     content.MinLevel,
		}); err != nil {
			s.logError(opCreateProject, "bootstrap_node_failed", err, zap.String("project_id", projectID))
			return nil, storyerr.New(opCreateProject, "bootstrap_node_failed", err)
		}
	}

	return &project, nil
}

// ListProjects returns every stored project, newest first.
func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	var all []Project
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&all).Error; err != nil {
		s.logError(opListProjects, "query_failed", err)
		return nil, storyerr.New(opListProjects, "query_failed", err)
	}
	return all, nil
}

// GetProject loads a single project.
func (s *Service) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var project Project
	err := s.db.WithContext(ctx).Where("id = ?", projectID).Take(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storyerr.New(opGetProject, "project_not_found", ErrProjectNotFound)
	}
	if err != nil {
		s.logError(opGetProject, "query_failed", err, zap.String("project_id", projectID))
		return nil, storyerr.New(opGetProject, "query_failed", err)
	}
	return &project, nil
}

// UpdateProject replaces title and description.
func (s *Service) UpdateProject(ctx context.Context, projectID, title, description string) (*Project, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return nil, storyerr.New(opUpdateProject, "invalid_title", ErrInvalidTitle)
	}

	result := s.db.WithContext(ctx).Model(&Project{}).
		Where("id = ?", projectID).
		Updates(map[string]any{
			"title":       trimmed,
			"description": description,
			"updated_at":  s.clock().UTC(),
		})
	if result.Error != nil {
		s.logError(opUpdateProject, "update_failed", result.Error, zap.String("project_id", projectID))
		return nil, storyerr.New(opUpdateProject, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, storyerr.New(opUpdateProject, "project_not_found", ErrProjectNotFound)
	}
	return s.GetProject(ctx, projectID)
}

// UpdateLevelConfig replaces the hierarchy labels wholesale. Existing node
// level integers are untouched; only display labels change.
func (s *Service) UpdateLevelConfig(ctx context.Context, projectID string, levelConfig LevelConfig) (*Project, error) {
	if err := levelConfig.Validate(); err != nil {
		return nil, storyerr.New(opUpdateLevelConfig, "invalid_level_config", err)
	}

	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	project.LevelConfig = levelConfig
	project.UpdatedAt = s.clock().UTC()
	if err := s.db.WithContext(ctx).Save(project).Error; err != nil {
		s.logError(opUpdateLevelConfig, "save_failed", err, zap.String("project_id", projectID))
		return nil, storyerr.New(opUpdateLevelConfig, "save_failed", err)
	}
	return project, nil
}

// DeleteProject removes the project and everything it owns - content nodes,
// their revisions, legacy chapters and their revisions, and the character
// roster - in a single transaction.
func (s *Service) DeleteProject(ctx context.Context, projectID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project Project
		err := tx.Where("id = ?", projectID).Take(&project).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return storyerr.New(opDeleteProject, "project_not_found", ErrProjectNotFound)
		}
		if err != nil {
			s.logError(opDeleteProject, "select_failed", err, zap.String("project_id", projectID))
			return storyerr.New(opDeleteProject, "select_failed", err)
		}

		var nodeIDs []string
		if err := tx.Model(&content.ContentNode{}).
			Where("project_id = ?", projectID).
			Pluck("id", &nodeIDs).Error; err != nil {
			s.logError(opDeleteProject, "node_list_failed", err, zap.String("project_id", projectID))
			return storyerr.New(opDeleteProject, "node_list_failed", err)
		}
		if len(nodeIDs) > 0 {
			if err := tx.Where("node_id IN ?", nodeIDs).Delete(&content.Revision{}).Error; err != nil {
				s.logError(opDeleteProject, "revision_delete_failed", err, zap.String("project_id", projectID))
				return storyerr.New(opDeleteProject, "revision_delete_failed", err)
			}
		}

		var chapterIDs []string
		if err := tx.Model(&content.Chapter{}).
			Where("project_id = ?", projectID).
			Pluck("id", &chapterIDs).Error; err != nil {
			s.logError(opDeleteProject, "chapter_list_failed", err, zap.String("project_id", projectID))
			return storyerr.New(opDeleteProject, "chapter_list_failed", err)
		}
		if len(chapterIDs) > 0 {
			if err := tx.Where("chapter_id IN ?", chapterIDs).Delete(&content.Revision{}).Error; err != nil {
				s.logError(opDeleteProject, "legacy_revision_delete_failed", err, zap.String("project_id", projectID))
				return storyerr.New(opDeleteProject, "legacy_revision_delete_failed", err)
			}
		}

		for _, step := range []struct {
			reason string
			model  any
		}{
			{reason: "node_delete_failed", model: &content.ContentNode{}},
			{reason: "chapter_delete_failed", model: &content.Chapter{}},
			{reason: "character_delete_failed", model: &characters.Character{}},
		} {
			if err := tx.Where("project_id = ?", projectID).Delete(step.model).Error; err != nil {
				s.logError(opDeleteProject, step.reason, err, zap.String("project_id", projectID))
				return storyerr.New(opDeleteProject, step.reason, err)
			}
		}

		if err := tx.Where("id = ?", projectID).Delete(&Project{}).Error; err != nil {
			s.logError(opDeleteProject, "project_delete_failed", err, zap.String("project_id", projectID))
			return storyerr.New(opDeleteProject, "project_delete_failed", err)
		}
		return nil
	})
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
	s.loggerOrDefault().Error("projects service error", attrs...)
}
