package content

import (
	"errors"
	"time"
)

const (
	// MinLevel is the topmost hierarchy depth.
	MinLevel = 1
	// MaxLevel is the leaf depth that holds prose revisions.
	MaxLevel = 3
)

const (
	// RevisionAuthorID tags every revision written through the API.
	RevisionAuthorID = "user"
	// DefaultAuthorName is used when a save request omits the display author.
	DefaultAuthorName = "User"
)

var (
	// ErrNodeNotFound indicates the requested content node does not exist.
	ErrNodeNotFound = errors.New("content: node not found")
	// ErrRevisionNotFound indicates a node has no stored revisions.
	ErrRevisionNotFound = errors.New("content: revision not found")
	// ErrInvalidTitle indicates an empty node title.
	ErrInvalidTitle = errors.New("content: title is required")
	// ErrInvalidLevel indicates a level outside 1..3.
	ErrInvalidLevel = errors.New("content: level must be between 1 and 3")
	// ErrMissingParent indicates a non-root node created without a parent.
	ErrMissingParent = errors.New("content: parent is required below the top level")
	// ErrLevelMismatch indicates a child level that is not parent level + 1.
	ErrLevelMismatch = errors.New("content: node level must be parent level + 1")
	// ErrNotLeaf indicates an attempt to attach prose to a non-leaf node.
	ErrNotLeaf = errors.New("content: only leaf nodes hold revisions")
)

// ContentNode is one row of the self-referencing project hierarchy. Order is
// assigned as the sibling count at creation time and never renumbered, so
// gaps after deletes are expected.
type ContentNode struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	ProjectID string    `gorm:"column:project_id;size:190;not null;index:idx_content_nodes_project_level,priority:1" json:"projectId"`
	ParentID  *string   `gorm:"column:parent_id;size:190;index" json:"parentId"`
	Title     string    `gorm:"column:title;size:320;not null" json:"title"`
	Level     int       `gorm:"column:level;not null;index:idx_content_nodes_project_level,priority:2" json:"level"`
	Order     int       `gorm:"column:sort_order;not null" json:"order"`
	HeadNotes *string   `gorm:"column:head_notes;type:text" json:"headNotes"`
	FootNotes *string   `gorm:"column:foot_notes;type:text" json:"footNotes"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (ContentNode) TableName() string {
	return "content_nodes"
}

// Revision is an append-only prose snapshot for a leaf node. ChapterID is
// only populated on rows written before the hierarchy existed; the startup
// migration re-points them at promoted nodes.
type Revision struct {
	ID               string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	NodeID           *string   `gorm:"column:node_id;size:190;index" json:"nodeId"`
	ChapterID        *string   `gorm:"column:chapter_id;size:190;index" json:"chapterId"`
	Content          string    `gorm:"column:content;type:text;not null" json:"content"`
	AuthorID         string    `gorm:"column:author_id;size:190;not null" json:"authorId"`
	AuthorName       string    `gorm:"column:author_name;size:320;not null" json:"authorName"`
	ParentRevisionID *string   `gorm:"column:parent_revision_id;size:190" json:"parentRevisionId"`
	AIMetadataJSON   string    `gorm:"column:ai_metadata;type:text" json:"aiMetadata,omitempty"`
	CreatedAt        time.Time `gorm:"column:created_at;not null" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Revision) TableName() string {
	return "revisions"
}

// Chapter is the deprecated flat predecessor of ContentNode. Rows are
// promoted to level-1 nodes by the startup migration and the table only
// remains so old databases keep opening.
type Chapter struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	ProjectID string    `gorm:"column:project_id;size:190;not null;index" json:"projectId"`
	Title     string    `gorm:"column:title;size:320;not null" json:"title"`
	Order     int       `gorm:"column:sort_order;not null" json:"order"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Chapter) TableName() string {
	return "chapters"
}
