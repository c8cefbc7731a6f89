package kb

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aviroy619/rabbitloader-chat/internal/actions"
	"github.com/aviroy619/rabbitloader-chat/pkg/auth"
	"github.com/aviroy619/rabbitloader-chat/pkg/llm"
	"github.com/aviroy619/rabbitloader-chat/pkg/logging"
)

// AdminAPI exposes the operator surface: curated corrections and the
// read-only action catalog.
type AdminAPI struct {
	store    *Store
	embedder llm.Embedder
	logger   logging.Logger
	now      func() time.Time
}

type correctionRequest struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	SessionID string `json:"sessionId"`
}

func NewAdminAPI(store *Store, embedder llm.Embedder, logger logging.Logger) (*AdminAPI, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	return &AdminAPI{
		store:    store,
		embedder: embedder,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// RegisterRoutes mounts the admin endpoints behind JWT auth with an
// operator-grade role.
func (a *AdminAPI) RegisterRoutes(router *gin.Engine, jwtSecret []byte) {
	group := router.Group("/admin")
	group.Use(auth.JWTAuthMiddleware(jwtSecret))
	group.Use(auth.OperatorOnlyMiddleware())
	group.POST("/corrections", a.handleCreateCorrection)
	group.GET("/corrections", a.handleListCorrections)
	group.GET("/actions", a.handleListActions)
}

// handleCreateCorrection embeds the question and writes the curated
// answer into the admin-edits tier, where it outranks every other
// knowledge source on the next lookup.
func (a *AdminAPI) handleCreateCorrection(c *gin.Context) {
	var req correctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request body"})
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	req.Answer = strings.TrimSpace(req.Answer)
	if req.Question == "" || req.Answer == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "question and answer are required"})
		return
	}

	embedding, err := a.embedder.Embed(c.Request.Context(), req.Question)
	if err != nil {
		a.logger.WithError(err).Error("Failed to embed correction question")
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "embedding failed"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	now := a.now()
	correction := Correction{
		ID:        fmt.Sprintf("admin_edit_%s_%d", sessionID, now.UnixMilli()),
		Question:  req.Question,
		Answer:    req.Answer,
		Editor:    c.GetString(auth.KeyEmail),
		SessionID: sessionID,
		CreatedAt: now,
	}

	if err := a.store.UpsertCorrection(c.Request.Context(), correction, embedding); err != nil {
		a.logger.WithError(err).Error("Failed to store correction")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to store correction"})
		return
	}

	observeCorrectionStored()
	a.logger.WithFields(logging.Fields{
		"correction_id": correction.ID,
		"editor":        correction.Editor,
	}).Info("Correction stored")

	c.JSON(http.StatusCreated, gin.H{"ok": true, "correction": correction})
}

func (a *AdminAPI) handleListCorrections(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	corrections, err := a.store.ListCorrections(c.Request.Context(), limit)
	if err != nil {
		a.logger.WithError(err).Error("Failed to list corrections")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to list corrections"})
		return
	}
	if corrections == nil {
		corrections = []Correction{}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "items": corrections})
}

func (a *AdminAPI) handleListActions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "actions": actions.List()})
}
