package content

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
	opServiceNew     = "content.service.new"
	opGetTree        = "content.get_tree"
	opGetNode        = "content.get_node"
	opCreateNode     = "content.create_node"
	opRenameNode     = "content.rename_node"
	opUpdateNotes    = "content.update_node_notes"
	opDeleteNode     = "content.delete_node"
	opSaveRevision   = "content.save_revision"
	opListRevisions  = "content.list_revisions"
	opLatestRevision = "content.latest_revision"
)

// ServiceConfig describes the dependencies for the content service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider identifier.Provider
	Logger     *zap.Logger
}

// Service owns the project hierarchy and its prose revisions.
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

// GetTree assembles the ordered node forest for a project.
func (s *Service) GetTree(ctx context.Context, projectID string) ([]*TreeNode, error) {
	var rows []ContentNode
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("level ASC, sort_order ASC").
		Find(&rows).Error; err != nil {
		s.logError(opGetTree, "query_failed", err, zap.String("project_id", projectID))
		return nil, storyerr.New(opGetTree, "query_failed", err)
	}
	return AssembleTree(rows), nil
}

// GetNode loads a single node by identifier.
func (s *Service) GetNode(ctx context.Context, nodeID string) (*ContentNode, error) {
	var node ContentNode
	err := s.db.WithContext(ctx).Where("id = ?", nodeID).Take(&node).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storyerr.New(opGetNode, "node_not_found", ErrNodeNotFound)
	}
	if err != nil {
		s.logError(opGetNode, "query_failed", err, zap.String("node_id", nodeID))
		return nil, storyerr.New(opGetNode, "query_failed", err)
	}
	return &node, nil
}

// CreateNodeRequest describes a new hierarchy node.
type CreateNodeRequest struct {
	ProjectID string
	Title     string
	Level     int
	ParentID  *string
}

// CreateNode inserts a node at the next sibling position. The order value is
// the count of existing rows sharing (project, level, parent) and deleted
// siblings never free their slot. Leaf nodes receive one empty revision so
// the editor always has something to load.
func (s *Service) CreateNode(ctx context.Context, request CreateNodeRequest) (*ContentNode, error) {
	title := strings.TrimSpace(request.Title)
	if title == "" {
		return nil, storyerr.New(opCreateNode, "invalid_title", ErrInvalidTitle)
	}
	if request.Level < MinLevel || request.Level > MaxLevel {
		return nil, storyerr.New(opCreateNode, "invalid_level", ErrInvalidLevel)
	}
	if request.Level > MinLevel && request.ParentID == nil {
		return nil, storyerr.New(opCreateNode, "missing_parent", ErrMissingParent)
	}
	if request.Level == MinLevel && request.ParentID != nil {
		return nil, storyerr.New(opCreateNode, "unexpected_parent", ErrLevelMismatch)
	}

	var created ContentNode
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if request.ParentID != nil {
			var parent ContentNode
			err := tx.Where("id = ?", *request.ParentID).Take(&parent).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storyerr.New(opCreateNode, "parent_not_found", ErrNodeNotFound)
			}
			if err != nil {
				s.logError(opCreateNode, "parent_select_failed", err,
					zap.String("project_id", request.ProjectID),
					zap.String("parent_id", *request.ParentID))
				return storyerr.New(opCreateNode, "parent_select_failed", err)
			}
			if parent.ProjectID != request.ProjectID {
				return storyerr.New(opCreateNode, "parent_project_mismatch", ErrNodeNotFound)
			}
			if parent.Level != request.Level-1 {
				return storyerr.New(opCreateNode, "level_mismatch", ErrLevelMismatch)
			}
		}

		siblingQuery := tx.Model(&ContentNode{}).
			Where("project_id = ? AND level = ?", request.ProjectID, request.Level)
		if request.ParentID == nil {
			siblingQuery = siblingQuery.Where("parent_id IS NULL")
		} else {
			siblingQuery = siblingQuery.Where("parent_id = ?", *request.ParentID)
		}
		var siblingCount int64
		if err := siblingQuery.Count(&siblingCount).Error; err != nil {
			s.logError(opCreateNode, "sibling_count_failed", err,
				zap.String("project_id", request.ProjectID))
			return storyerr.New(opCreateNode, "sibling_count_failed", err)
		}

		nodeID, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opCreateNode, "id_generation_failed", err)
			return storyerr.New(opCreateNode, "id_generation_failed", err)
		}

		created = ContentNode{
			ID:        nodeID,
			ProjectID: request.ProjectID,
			ParentID:  request.ParentID,
			Title:     title,
			Level:     request.Level,
			Order:     int(siblingCount),
			CreatedAt: s.clock().UTC(),
		}
		if err := tx.Create(&created).Error; err != nil {
			s.logError(opCreateNode, "node_insert_failed", err,
				zap.String("project_id", request.ProjectID),
				zap.String("node_id", nodeID))
			return storyerr.New(opCreateNode, "node_insert_failed", err)
		}

		if created.Level == MaxLevel {
			revisionID, err := s.idProvider.NewID()
			if err != nil {
				s.logError(opCreateNode, "id_generation_failed", err)
				return storyerr.New(opCreateNode, "id_generation_failed", err)
			}
			initial := Revision{
				ID:         revisionID,
				NodeID:     &created.ID,
				Content:    "",
				AuthorID:   RevisionAuthorID,
				AuthorName: DefaultAuthorName,
				CreatedAt:  s.clock().UTC(),
			}
			if err := tx.Create(&initial).Error; err != nil {
				s.logError(opCreateNode, "initial_revision_failed", err,
					zap.String("node_id", created.ID))
				return storyerr.New(opCreateNode, "initial_revision_failed", err)
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return &created, nil
}

// RenameNode replaces the node title.
func (s *Service) RenameNode(ctx context.Context, nodeID, title string) (*ContentNode, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return nil, storyerr.New(opRenameNode, "invalid_title", ErrInvalidTitle)
	}

	result := s.db.WithContext(ctx).Model(&ContentNode{}).
		Where("id = ?", nodeID).
		Update("title", trimmed)
	if result.Error != nil {
		s.logError(opRenameNode, "update_failed", result.Error, zap.String("node_id", nodeID))
		return nil, storyerr.New(opRenameNode, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, storyerr.New(opRenameNode, "node_not_found", ErrNodeNotFound)
	}
	return s.GetNode(ctx, nodeID)
}

// UpdateNodeNotes overwrites head and/or foot notes. A nil pointer leaves the
// stored value untouched; a pointer to the empty string clears it.
func (s *Service) UpdateNodeNotes(ctx context.Context, nodeID string, headNotes, footNotes *string) (*ContentNode, error) {
	updates := map[string]any{}
	if headNotes != nil {
		updates["head_notes"] = *headNotes
	}
	if footNotes != nil {
		updates["foot_notes"] = *footNotes
	}
	if len(updates) == 0 {
		return s.GetNode(ctx, nodeID)
	}

	result := s.db.WithContext(ctx).Model(&ContentNode{}).
		Where("id = ?", nodeID).
		Updates(updates)
	if result.Error != nil {
		s.logError(opUpdateNotes, "update_failed", result.Error, zap.String("node_id", nodeID))
		return nil, storyerr.New(opUpdateNotes, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, storyerr.New(opUpdateNotes, "node_not_found", ErrNodeNotFound)
	}
	return s.GetNode(ctx, nodeID)
}

// DeleteNode removes a node, its descendants and every attached revision in
// one transaction. Revisions go first to satisfy reference ordering, then
// nodes from the deepest generation upward. Returns the removed root so
// callers still know which project changed.
func (s *Service) DeleteNode(ctx context.Context, nodeID string) (*ContentNode, error) {
	var removed ContentNode
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", nodeID).Take(&removed).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return storyerr.New(opDeleteNode, "node_not_found", ErrNodeNotFound)
		}
		if err != nil {
			s.logError(opDeleteNode, "node_select_failed", err, zap.String("node_id", nodeID))
			return storyerr.New(opDeleteNode, "node_select_failed", err)
		}

		generations, err := s.collectSubtree(tx, removed.ID)
		if err != nil {
			s.logError(opDeleteNode, "subtree_walk_failed", err, zap.String("node_id", nodeID))
			return storyerr.New(opDeleteNode, "subtree_walk_failed", err)
		}

		all := make([]string, 0)
		for _, generation := range generations {
			all = append(all, generation...)
		}
		if err := tx.Where("node_id IN ?", all).Delete(&Revision{}).Error; err != nil {
			s.logError(opDeleteNode, "revision_delete_failed", err, zap.String("node_id", nodeID))
			return storyerr.New(opDeleteNode, "revision_delete_failed", err)
		}

		for i := len(generations) - 1; i >= 0; i-- {
			if err := tx.Where("id IN ?", generations[i]).Delete(&ContentNode{}).Error; err != nil {
				s.logError(opDeleteNode, "node_delete_failed", err, zap.String("node_id", nodeID))
				return storyerr.New(opDeleteNode, "node_delete_failed", err)
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return &removed, nil
}

// collectSubtree walks the hierarchy breadth-first from rootID and returns
// node ids grouped by generation, root first. Already-seen ids are skipped so
// a corrupted parent cycle cannot stall the walk.
func (s *Service) collectSubtree(tx *gorm.DB, rootID string) ([][]string, error) {
	seen := map[string]bool{rootID: true}
	generations := [][]string{{rootID}}
	frontier := []string{rootID}
	for len(frontier) > 0 {
		var children []ContentNode
		if err := tx.Where("parent_id IN ?", frontier).Find(&children).Error; err != nil {
			return nil, err
		}
		next := make([]string, 0, len(children))
		for _, child := range children {
			if seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			next = append(next, child.ID)
		}
		if len(next) == 0 {
			break
		}
		generations = append(generations, next)
		frontier = next
	}
	return generations, nil
}

// SaveRevision appends a new prose snapshot for a leaf node. Saves are never
// deduplicated; identical content produces a new row each time.
func (s *Service) SaveRevision(ctx context.Context, nodeID, body, authorName string) (*Revision, error) {
	var node ContentNode
	err := s.db.WithContext(ctx).Where("id = ?", nodeID).Take(&node).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storyerr.New(opSaveRevision, "node_not_found", ErrNodeNotFound)
	}
	if err != nil {
		s.logError(opSaveRevision, "node_select_failed", err, zap.String("node_id", nodeID))
		return nil, storyerr.New(opSaveRevision, "node_select_failed", err)
	}
	if node.Level != MaxLevel {
		return nil, storyerr.New(opSaveRevision, "not_leaf", ErrNotLeaf)
	}

	displayAuthor := strings.TrimSpace(authorName)
	if displayAuthor == "" {
		displayAuthor = DefaultAuthorName
	}

	revisionID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opSaveRevision, "id_generation_failed", err)
		return nil, storyerr.New(opSaveRevision, "id_generation_failed", err)
	}

	revision := Revision{
		ID:         revisionID,
		NodeID:     &node.ID,
		Content:    body,
		AuthorID:   RevisionAuthorID,
		AuthorName: displayAuthor,
		CreatedAt:  s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&revision).Error; err != nil {
		s.logError(opSaveRevision, "revision_insert_failed", err, zap.String("node_id", nodeID))
		return nil, storyerr.New(opSaveRevision, "revision_insert_failed", err)
	}
	return &revision, nil
}

// ListRevisions returns all revisions for a node, oldest first.
func (s *Service) ListRevisions(ctx context.Context, nodeID string) ([]Revision, error) {
	var revisions []Revision
	if err := s.db.WithContext(ctx).
		Where("node_id = ?", nodeID).
		Order("created_at ASC").
		Find(&revisions).Error; err != nil {
		s.logError(opListRevisions, "query_failed", err, zap.String("node_id", nodeID))
		return nil, storyerr.New(opListRevisions, "query_failed", err)
	}
	return revisions, nil
}

// LatestRevision returns the newest revision for a node.
func (s *Service) LatestRevision(ctx context.Context, nodeID string) (*Revision, error) {
	var revision Revision
	err := s.db.WithContext(ctx).
		Where("node_id = ?", nodeID).
		Order("created_at DESC").
		Take(&revision).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storyerr.New(opLatestRevision, "revision_not_found", ErrRevisionNotFound)
	}
	if err != nil {
		s.logError(opLatestRevision, "query_failed", err, zap.String("node_id", nodeID))
		return nil, storyerr.New(opLatestRevision, "query_failed", err)
	}
	return &revision, nil
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
	s.loggerOrDefault().Error("content service error", attrs...)
}
