package projects

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/storyloomhq/storyloom/backend/internal/characters"
	"github.com/storyloomhq/storyloom/backend/internal/content"
	"gorm.io/gorm"
)

type sequenceIDGenerator struct {
	next int
}

func (g *sequenceIDGenerator) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("id-%d", g.next), nil
}

type tickingClock struct {
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

type testHarness struct {
	db         *gorm.DB
	projects   *Service
	content    *content.Service
	characters *characters.Service
}

func newTestHarness(t *testing.T) testHarness {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "projects.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&Project{},
		&content.ContentNode{},
		&content.Chapter{},
		&content.Revision{},
		&characters.Character{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	ids := &sequenceIDGenerator{}
	clock := &tickingClock{now: time.Unix(1700000000, 0).UTC()}

	contentService, err := content.NewService(content.ServiceConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: ids,
	})
	if err != nil {
		t.Fatalf("failed to construct content service: %v", err)
	}
	characterService, err := characters.NewService(characters.ServiceConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: ids,
	})
	if err != nil {
		t.Fatalf("failed to construct character service: %v", err)
	}
	projectService, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: ids,
		Nodes:      contentService,
	})
	if err != nil {
		t.Fatalf("failed to construct project service: %v", err)
	}

	return testHarness{
		db:         db,
		projects:   projectService,
		content:    contentService,
		characters: characterService,
	}
}

func TestCreateProjectDefaultsLevelConfig(t *testing.T) {
	harness := newTestHarness(t)

	project, err := harness.projects.CreateProject(context.Background(), "Family Saga", "a story with Dad")
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if project.LevelConfig != DefaultLevelConfig() {
		t.Fatalf("expected default level config, got %+v", project.LevelConfig)
	}
}

func TestCreateProjectBootstrapsFirstNode(t *testing.T) {
	harness := newTestHarness(t)

	project, err := harness.projects.CreateProject(context.Background(), "Family Saga", "")
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	forest, err := harness.content.GetTree(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("unexpected tree error: %v", err)
	}
	if len(forest) != 1 {
		t.Fatalf("expected one bootstrap node, got %d", len(forest))
	}
	if forest[0].Title != "Chapter 1" {
		t.Fatalf("expected bootstrap title from level-1 label, got %q", forest[0].Title)
	}
	if forest[0].Level != 1 || forest[0].Order != 0 {
		t.Fatalf("unexpected bootstrap node shape: level=%d order=%d", forest[0].Level, forest[0].Order)
	}
}

func TestCreateProjectRejectsEmptyTitle(t *testing.T) {
	harness := newTestHarness(t)
	_, err := harness.projects.CreateProject(context.Background(), "  ", "")
	if !errors.Is(err, ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
}

func TestUpdateLevelConfigReplacesWholesale(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()

	project, err := harness.projects.CreateProject(ctx, "Screenplay", "")
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	updated, err := harness.projects.UpdateLevelConfig(ctx, project.ID, LevelConfig{
		Level1: "Act", Level2: "Scene", Level3: "Beat",
	})
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}
	if updated.LevelConfig.Level1 != "Act" {
		t.Fatalf("expected replaced labels, got %+v", updated.LevelConfig)
	}

	// Existing node level integers are untouched by a label change.
	forest, err := harness.content.GetTree(ctx, project.ID)
	if err != nil {
		t.Fatalf("unexpected tree error: %v", err)
	}
	if forest[0].Level != 1 {
		t.Fatalf("expected node level unchanged, got %d", forest[0].Level)
	}
}

func TestUpdateLevelConfigRejectsBlankLabel(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()

	project, err := harness.projects.CreateProject(ctx, "Screenplay", "")
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	_, err = harness.projects.UpdateLevelConfig(ctx, project.ID, LevelConfig{Level1: "Act", Level2: " ", Level3: "Beat"})
	if !errors.Is(err, ErrInvalidLevelConfig) {
		t.Fatalf("expected ErrInvalidLevelConfig, got %v", err)
	}
}

func TestDeleteProjectCascadesEverythingOwned(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()

	project, err := harness.projects.CreateProject(ctx, "Doomed", "")
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	root, err := harness.content.GetTree(ctx, project.ID)
	if err != nil || len(root) != 1 {
		t.Fatalf("expected bootstrap node, got %v %v", root, err)
	}
	scene, err := harness.content.CreateNode(ctx, content.CreateNodeRequest{
		ProjectID: project.ID, Title: "Section 1", Level: 2, ParentID: &root[0].ID,
	})
	if err != nil {
		t.Fatalf("unexpected node error: %v", err)
	}
	if _, err := harness.content.CreateNode(ctx, content.CreateNodeRequest{
		ProjectID: project.ID, Title: "Beat 1", Level: 3, ParentID: &scene.ID,
	}); err != nil {
		t.Fatalf("unexpected node error: %v", err)
	}
	if _, err := harness.characters.CreateCharacter(ctx, project.ID, characters.CharacterInput{Name: "Mira"}); err != nil {
		t.Fatalf("unexpected character error: %v", err)
	}

	survivor, err := harness.projects.CreateProject(ctx, "Survivor", "")
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	if err := harness.projects.DeleteProject(ctx, project.ID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	for _, probe := range []struct {
		name  string
		model any
		where string
		args  []any
		want  int64
	}{
		{name: "nodes", model: &content.ContentNode{}, where: "project_id = ?", args: []any{project.ID}, want: 0},
		{name: "characters", model: &characters.Character{}, where: "project_id = ?", args: []any{project.ID}, want: 0},
		{name: "projects", model: &Project{}, where: "id = ?", args: []any{project.ID}, want: 0},
		{name: "survivor-nodes", model: &content.ContentNode{}, where: "project_id = ?", args: []any{survivor.ID}, want: 1},
	} {
		var count int64
		if err := harness.db.Model(probe.model).Where(probe.where, probe.args...).Count(&count).Error; err != nil {
			t.Fatalf("failed to count %s: %v", probe.name, err)
		}
		if count != probe.want {
			t.Fatalf("expected %d %s, got %d", probe.want, probe.name, count)
		}
	}

	var revisionCount int64
	if err := harness.db.Model(&content.Revision{}).Count(&revisionCount).Error; err != nil {
		t.Fatalf("failed to count revisions: %v", err)
	}
	if revisionCount != 0 {
		t.Fatalf("expected all revisions of deleted project removed, got %d", revisionCount)
	}
}

func TestDeleteProjectMissing(t *testing.T) {
	harness := newTestHarness(t)
	err := harness.projects.DeleteProject(context.Background(), "missing")
	if !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestLevelPresetByName(t *testing.T) {
	preset, ok := LevelPresetByName("Classic Screenplay")
	if !ok {
		t.Fatalf("expected preset to exist")
	}
	if preset.Config.Level1 != "Act" || preset.Config.Level3 != "Beat" {
		t.Fatalf("unexpected preset config: %+v", preset.Config)
	}
	if _, ok := LevelPresetByName("Haiku"); ok {
		t.Fatalf("expected unknown preset to be rejected")
	}
}
