package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/storyloomhq/storyloom/backend/internal/characters"
	"github.com/storyloomhq/storyloom/backend/internal/content"
	"github.com/storyloomhq/storyloom/backend/internal/database"
	"github.com/storyloomhq/storyloom/backend/internal/identifier"
	"github.com/storyloomhq/storyloom/backend/internal/projects"
	"github.com/storyloomhq/storyloom/backend/internal/server"
	"go.uber.org/zap"
)

// newBackend stands the whole stack up the same way the binary does, just on
// a temp database and an httptest listener.
func newBackend(testContext *testing.T) *httptest.Server {
	testContext.Helper()
	gin.SetMode(gin.TestMode)

	databasePath := filepath.Join(testContext.TempDir(), "integration.db")
	db, err := database.OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}

	idProvider := identifier.NewUUIDProvider()
	contentService, err := content.NewService(content.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		testContext.Fatalf("failed to build content service: %v", err)
	}
	projectService, err := projects.NewService(projects.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Nodes:      contentService,
	})
	if err != nil {
		testContext.Fatalf("failed to build project service: %v", err)
	}
	characterService, err := characters.NewService(characters.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		testContext.Fatalf("failed to build character service: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Projects:   projectService,
		Content:    contentService,
		Characters: characterService,
	})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}

	backend := httptest.NewServer(handler)
	testContext.Cleanup(backend.Close)
	return backend
}

func call(testContext *testing.T, backend *httptest.Server, method, path string, body any, expectStatus int) []byte {
	testContext.Helper()
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			testContext.Fatalf("failed to encode body: %v", err)
		}
		payload = encoded
	}
	request, err := http.NewRequest(method, backend.URL+path, bytes.NewReader(payload))
	if err != nil {
		testContext.Fatalf("failed to build request: %v", err)
	}
	request.Header.Set("Content-Type", "application/json")
	response, err := backend.Client().Do(request)
	if err != nil {
		testContext.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer response.Body.Close()

	var buffer bytes.Buffer
	if _, err := buffer.ReadFrom(response.Body); err != nil {
		testContext.Fatalf("failed to read response body: %v", err)
	}
	if response.StatusCode != expectStatus {
		testContext.Fatalf("%s %s: expected status %d, got %d: %s", method, path, expectStatus, response.StatusCode, buffer.String())
	}
	return buffer.Bytes()
}

func decode[T any](testContext *testing.T, raw []byte) T {
	testContext.Helper()
	var decoded T
	if err := json.Unmarshal(raw, &decoded); err != nil {
		testContext.Fatalf("failed to decode %q: %v", string(raw), err)
	}
	return decoded
}

// TestStoryAuthoringFlow walks a realistic session: create a project, build
// out the hierarchy, draft prose on a leaf, add a character, then tear the
// project down and verify nothing leaks across to a second project.
func TestStoryAuthoringFlow(testContext *testing.T) {
	backend := newBackend(testContext)

	project := decode[projects.Project](testContext, call(testContext, backend,
		http.MethodPost, "/projects", gin.H{"title": "The Lighthouse Keeper", "description": "A bedtime serial"},
		http.StatusCreated))
	keeper := decode[projects.Project](testContext, call(testContext, backend,
		http.MethodPost, "/projects", gin.H{"title": "Control Project"},
		http.StatusCreated))

	type treeEnvelope struct {
		Tree []content.TreeNode `json:"tree"`
	}
	tree := decode[treeEnvelope](testContext, call(testContext, backend,
		http.MethodGet, "/projects/"+project.ID+"/tree", nil, http.StatusOK))
	if len(tree.Tree) != 1 || tree.Tree[0].Title != "Chapter 1" {
		testContext.Fatalf("expected bootstrapped first chapter, got %+v", tree.Tree)
	}
	chapterID := tree.Tree[0].ID

	section := decode[content.ContentNode](testContext, call(testContext, backend,
		http.MethodPost, "/projects/"+project.ID+"/nodes",
		gin.H{"title": "The Storm Arrives", "level": 2, "parentId": chapterID},
		http.StatusCreated))
	beat := decode[content.ContentNode](testContext, call(testContext, backend,
		http.MethodPost, "/projects/"+project.ID+"/nodes",
		gin.H{"title": "Waves at the Door", "level": 3, "parentId": section.ID},
		http.StatusCreated))

	call(testContext, backend, http.MethodPut, "/nodes/"+section.ID+"/notes",
		gin.H{"headNotes": "Keep the tone gentle"}, http.StatusOK)

	call(testContext, backend, http.MethodPost, "/nodes/"+beat.ID+"/revisions",
		gin.H{"content": "The sea whispered first, then it sang.", "authorName": "Dad"},
		http.StatusCreated)
	call(testContext, backend, http.MethodPost, "/nodes/"+beat.ID+"/revisions",
		gin.H{"content": "The sea whispered first, then it roared.", "authorName": "Maya"},
		http.StatusCreated)

	latest := decode[content.Revision](testContext, call(testContext, backend,
		http.MethodGet, "/nodes/"+beat.ID+"/revisions/latest", nil, http.StatusOK))
	if latest.AuthorName != "Maya" {
		testContext.Fatalf("expected newest revision, got author %q", latest.AuthorName)
	}

	type revisionsEnvelope struct {
		Revisions []content.Revision `json:"revisions"`
	}
	history := decode[revisionsEnvelope](testContext, call(testContext, backend,
		http.MethodGet, "/nodes/"+beat.ID+"/revisions", nil, http.StatusOK))
	if len(history.Revisions) != 3 {
		testContext.Fatalf("expected seeded revision plus two drafts, got %d", len(history.Revisions))
	}

	hero := decode[characters.Character](testContext, call(testContext, backend,
		http.MethodPost, "/projects/"+project.ID+"/characters",
		gin.H{"name": "Edda", "role": "protagonist", "archetype": "hero"},
		http.StatusCreated))
	if hero.Personality.Courage != 80 {
		testContext.Fatalf("expected hero courage preset, got %d", hero.Personality.Courage)
	}

	call(testContext, backend, http.MethodPut, "/projects/"+project.ID+"/levels",
		gin.H{"level1": "Act", "level2": "Scene", "level3": "Moment"}, http.StatusOK)
	reloaded := decode[projects.Project](testContext, call(testContext, backend,
		http.MethodGet, "/projects/"+project.ID, nil, http.StatusOK))
	if reloaded.LevelConfig.Level3 != "Moment" {
		testContext.Fatalf("expected relabeled levels, got %+v", reloaded.LevelConfig)
	}

	call(testContext, backend, http.MethodDelete, "/projects/"+project.ID, nil, http.StatusNoContent)
	call(testContext, backend, http.MethodGet, "/projects/"+project.ID, nil, http.StatusNotFound)
	call(testContext, backend, http.MethodGet, "/nodes/"+beat.ID+"/revisions/latest", nil, http.StatusNotFound)

	keeperTree := decode[treeEnvelope](testContext, call(testContext, backend,
		http.MethodGet, "/projects/"+keeper.ID+"/tree", nil, http.StatusOK))
	if len(keeperTree.Tree) != 1 {
		testContext.Fatalf("expected untouched control project tree, got %+v", keeperTree.Tree)
	}
}
