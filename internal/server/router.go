package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/storyloomhq/storyloom/backend/internal/characters"
	"github.com/storyloomhq/storyloom/backend/internal/content"
	"github.com/storyloomhq/storyloom/backend/internal/projects"
	"github.com/storyloomhq/storyloom/backend/internal/storyerr"
	"go.uber.org/zap"
)

var (
	errMissingProjectsService   = errors.New("projects service dependency required")
	errMissingContentService    = errors.New("content service dependency required")
	errMissingCharactersService = errors.New("characters service dependency required")
)

const heartbeatInterval = 25 * time.Second

// Dependencies wires the domain services into the HTTP surface.
type Dependencies struct {
	Projects   *projects.Service
	Content    *content.Service
	Characters *characters.Service
	Realtime   *RefreshDispatcher
	Logger     *zap.Logger

	// CORSOrigins defaults to allowing every origin when empty.
	CORSOrigins []string
}

// NewHTTPHandler builds the gin router exposing every project, content and
// character operation plus the per-project refresh stream.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Projects == nil {
		return nil, errMissingProjectsService
	}
	if deps.Content == nil {
		return nil, errMissingContentService
	}
	if deps.Characters == nil {
		return nil, errMissingCharactersService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Realtime
	if dispatcher == nil {
		dispatcher = NewRefreshDispatcher()
	}
	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		projects:   deps.Projects,
		content:    deps.Content,
		characters: deps.Characters,
		realtime:   dispatcher,
		logger:     logger,
	}

	router.GET("/level-presets", handler.handleLevelPresets)

	router.POST("/projects", handler.handleCreateProject)
	router.GET("/projects", handler.handleListProjects)
	router.GET("/projects/:projectID", handler.handleGetProject)
	router.PUT("/projects/:projectID", handler.handleUpdateProject)
	router.DELETE("/projects/:projectID", handler.handleDeleteProject)
	router.PUT("/projects/:projectID/levels", handler.handleUpdateLevelConfig)
	router.GET("/projects/:projectID/tree", handler.handleGetTree)
	router.POST("/projects/:projectID/nodes", handler.handleCreateNode)
	router.GET("/projects/:projectID/characters", handler.handleListCharacters)
	router.POST("/projects/:projectID/characters", handler.handleCreateCharacter)
	router.GET("/projects/:projectID/events", handler.handleRefreshStream)

	router.PUT("/nodes/:nodeID", handler.handleRenameNode)
	router.PUT("/nodes/:nodeID/notes", handler.handleUpdateNodeNotes)
	router.DELETE("/nodes/:nodeID", handler.handleDeleteNode)
	router.GET("/nodes/:nodeID/revisions", handler.handleListRevisions)
	router.GET("/nodes/:nodeID/revisions/latest", handler.handleLatestRevision)
	router.POST("/nodes/:nodeID/revisions", handler.handleSaveRevision)

	router.GET("/characters/:characterID", handler.handleGetCharacter)
	router.PUT("/characters/:characterID", handler.handleUpdateCharacter)
	router.DELETE("/characters/:characterID", handler.handleDeleteCharacter)

	return router, nil
}

type httpHandler struct {
	projects   *projects.Service
	content    *content.Service
	characters *characters.Service
	realtime   *RefreshDispatcher
	logger     *zap.Logger
}

type projectRequestPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type levelConfigPayload struct {
	Level1 string `json:"level1"`
	Level2 string `json:"level2"`
	Level3 string `json:"level3"`
	Preset string `json:"preset"`
}

type createNodePayload struct {
	Title    string  `json:"title"`
	Level    int     `json:"level"`
	ParentID *string `json:"parentId"`
}

type renameNodePayload struct {
	Title string `json:"title"`
}

type nodeNotesPayload struct {
	HeadNotes *string `json:"headNotes"`
	FootNotes *string `json:"footNotes"`
}

type saveRevisionPayload struct {
	Content    string `json:"content"`
	AuthorName string `json:"authorName"`
}

func (h *httpHandler) handleLevelPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": projects.LevelPresets()})
}

func (h *httpHandler) handleCreateProject(c *gin.Context) {
	var request projectRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	project, err := h.projects.CreateProject(c.Request.Context(), request.Title, request.Description)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishRefresh(project.ID, RefreshEventProjectChanged, project.ID)
	c.JSON(http.StatusCreated, project)
}

func (h *httpHandler) handleListProjects(c *gin.Context) {
	all, err := h.projects.ListProjects(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": all})
}

func (h *httpHandler) handleGetProject(c *gin.Context) {
	project, err := h.projects.GetProject(c.Request.Context(), c.Param("projectID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *httpHandler) handleUpdateProject(c *gin.Context) {
	var request projectRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	project, err := h.projects.UpdateProject(c.Request.Context(), c.Param("projectID"), request.Title, request.Description)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishRefresh(project.ID, RefreshEventProjectChanged, project.ID)
	c.JSON(http.StatusOK, project)
}

func (h *httpHandler) handleDeleteProject(c *gin.Context) {
	projectID := c.Param("projectID")
	if err := h.projects.DeleteProject(c.Request.Context(), projectID); err != nil {
		h.respondError(c, err)
		return
	}
	h.publishRefresh(projectID, RefreshEventProjectChanged, projectID)
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleUpdateLevelConfig(c *gin.Context) {
	var request levelConfigPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	levelConfig := projects.LevelConfig{
		Level1: request.Level1,
		Level2: request.Level2,
		Level3: request.Level3,
	}
	if request.Preset != "" {
		preset, ok := projects.LevelPresetByName(request.Preset)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_preset"})
			return
		}
		levelConfig = preset.Config
	}

	project, err := h.projects.UpdateLevelConfig(c.Request.Context(), c.Param("projectID"), levelConfig)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishRefresh(project.ID, RefreshEventProjectChanged, project.ID)
	c.JSON(http.StatusOK, project)
}

func (h *httpHandler) handleGetTree(c *gin.Context) {
	projectID := c.Param("projectID")
	forest, err := h.content.GetTree(c.Request.Context(), projectID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tree": forest})
}

func (h *httpHandler) handleCreateNode(c *gin.Context) {
	var request createNodePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	node, err := h.content.CreateNode(c.Request.Context(), content.CreateNodeRequest{
		ProjectID: c.Param("projectID"),
		Title:     request.Title,
		Level:     request.Level,
		ParentID:  request.ParentID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishRefresh(node.ProjectID, RefreshEventTreeChanged, node.ID)
	c.JSON(http.StatusCreated, node)
}

func (h *httpHandler) handleRenameNode(c *gin.Context) {
	var request renameNodePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	node, err := h.content.RenameNode(c.Request.Context(), c.Param("nodeID"), request.Title)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishRefresh(node.ProjectID, RefreshEventTreeChanged, node.ID)
	c.JSON(http.StatusOK, node)
}

func (h *httpHandler) handleUpdateNodeNotes(c *gin.Context) {
	var request nodeNotesPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	node, err := h.content.UpdateNodeNotes(c.Request.Context(), c.Param("nodeID"), request.HeadNotes, request.FootNotes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishRefresh(node.ProjectID, RefreshEventTreeChanged, node.ID)
	c.JSON(http.StatusOK, node)
}

func (h *httpHandler) handleDeleteNode(c *gin.Context) {
	removed, err := h.content.DeleteNode(c.Request.Context(), c.Param("nodeID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishRefresh(removed.ProjectID, RefreshEventTreeChanged, removed.ID)
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleListRevisions(c *gin.Context) {
	revisions, err := h.content.ListRevisions(c.Request.Context(), c.Param("nodeID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revisions": revisions})
}

func (h *httpHandler) handleLatestRevision(c *gin.Context) {
	revision, err := h.content.LatestRevision(c.Request.Context(), c.Param("nodeID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, revision)
}

func (h *httpHandler) handleSaveRevision(c *gin.Context) {
	var request saveRevisionPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	nodeID := c.Param("nodeID")
	revision, err := h.content.SaveRevision(c.Request.Context(), nodeID, request.Content, request.AuthorName)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if node, err := h.content.GetNode(c.Request.Context(), nodeID); err == nil {
		h.publishRefresh(node.ProjectID, RefreshEventRevisionSaved, revision.ID)
	}
	c.JSON(http.StatusCreated, revision)
}

func (h *httpHandler) handleListCharacters(c *gin.Context) {
	roster, err := h.characters.ListCharacters(c.Request.Context(), c.Param("projectID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"characters": roster})
}

func (h *httpHandler) handleCreateCharacter(c *gin.Context) {
	var request characters.CharacterInput
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	character, err := h.characters.CreateCharacter(c.Request.Context(), c.Param("projectID"), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishRefresh(character.ProjectID, RefreshEventCharacterChanged, character.ID)
	c.JSON(http.StatusCreated, character)
}

func (h *httpHandler) handleGetCharacter(c *gin.Context) {
	character, err := h.characters.GetCharacter(c.Request.Context(), c.Param("characterID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, character)
}

func (h *httpHandler) handleUpdateCharacter(c *gin.Context) {
	var request characters.CharacterInput
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	character, err := h.characters.UpdateCharacter(c.Request.Context(), c.Param("characterID"), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishRefresh(character.ProjectID, RefreshEventCharacterChanged, character.ID)
	c.JSON(http.StatusOK, character)
}

func (h *httpHandler) handleDeleteCharacter(c *gin.Context) {
	removed, err := h.characters.DeleteCharacter(c.Request.Context(), c.Param("characterID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishRefresh(removed.ProjectID, RefreshEventCharacterChanged, removed.ID)
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleRefreshStream(c *gin.Context) {
	projectID := c.Param("projectID")
	if _, err := h.projects.GetProject(c.Request.Context(), projectID); err != nil {
		h.respondError(c, err)
		return
	}

	stream, cleanup := h.realtime.Subscribe(c.Request.Context(), projectID)
	defer cleanup()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case message, ok := <-stream:
			if !ok {
				return
			}
			writeStreamEvent(c, message.EventType, streamEventBody{
				ProjectID: message.ProjectID,
				EntityIDs: message.EntityIDs,
				Timestamp: message.Timestamp.UTC().Format(time.RFC3339Nano),
			})
		case <-heartbeat.C:
			writeStreamEvent(c, refreshEventHeartbeat, streamEventBody{ProjectID: projectID})
		}
	}
}

type streamEventBody struct {
	ProjectID string   `json:"projectId"`
	EntityIDs []string `json:"entityIds,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
}

func writeStreamEvent(c *gin.Context, eventType string, body streamEventBody) {
	c.SSEvent(eventType, body)
	c.Writer.Flush()
}

func (h *httpHandler) publishRefresh(projectID, eventType string, entityIDs ...string) {
	h.realtime.Publish(RefreshMessage{
		ProjectID: projectID,
		EventType: eventType,
		EntityIDs: entityIDs,
		Timestamp: time.Now().UTC(),
	})
}

func (h *httpHandler) respondError(c *gin.Context, err error) {
	status := statusForError(err)
	code := "internal_error"
	var serviceErr *storyerr.ServiceError
	if errors.As(err, &serviceErr) {
		code = serviceErr.Code()
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err), zap.String("path", c.FullPath()))
	}
	c.JSON(status, gin.H{"error": code})
}

func statusForError(err error) int {
	notFound := []error{
		projects.ErrProjectNotFound,
		content.ErrNodeNotFound,
		content.ErrRevisionNotFound,
		characters.ErrCharacterNotFound,
	}
	for _, sentinel := range notFound {
		if errors.Is(err, sentinel) {
			return http.StatusNotFound
		}
	}

	badRequest := []error{
		projects.ErrInvalidTitle,
		projects.ErrInvalidLevelConfig,
		content.ErrInvalidTitle,
		content.ErrInvalidLevel,
		content.ErrMissingParent,
		content.ErrLevelMismatch,
		content.ErrNotLeaf,
		characters.ErrInvalidName,
		characters.ErrInvalidRole,
		characters.ErrInvalidArchetype,
	}
	for _, sentinel := range badRequest {
		if errors.Is(err, sentinel) {
			return http.StatusBadRequest
		}
	}

	return http.StatusInternalServerError
}
