package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aviroy619/rabbitloader-chat/internal/actions"
	"github.com/aviroy619/rabbitloader-chat/internal/kb"
	"github.com/aviroy619/rabbitloader-chat/internal/routing"
	"github.com/aviroy619/rabbitloader-chat/internal/upstream"
	"github.com/aviroy619/rabbitloader-chat/pkg/logging"
)

// ActionExecutor runs a registry action for one message.
type ActionExecutor interface {
	Execute(ctx context.Context, actionID, userMsg string, chatCtx actions.Context) (*actions.Result, error)
}

// Retriever looks a question up across the knowledge tiers.
type Retriever interface {
	Retrieve(ctx context.Context, userMsg string) kb.Retrieval
}

// Composer turns a retrieval into a final answer.
type Composer interface {
	Compose(ctx context.Context, userMsg string, retrieved kb.Retrieval) (string, []kb.Source, error)
}

// Handler owns the chat pipeline endpoints.
type Handler struct {
	executor  ActionExecutor
	retriever Retriever
	composer  Composer
	logger    logging.Logger
}

func NewHandler(executor ActionExecutor, retriever Retriever, composer Composer, logger logging.Logger) *Handler {
	return &Handler{executor: executor, retriever: retriever, composer: composer, logger: logger}
}

// RegisterRoutes mounts the public chat endpoints.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/chat", h.handleChat)
	router.POST("/route", h.handleRoute)
}

type chatRequest struct {
	SessionID string          `json:"sessionId"`
	UserMsg   string          `json:"userMsg"`
	Ctx       actions.Context `json:"ctx"`
}

type routeRequest struct {
	Message string `json:"message"`
}

// mergedContext applies the precedence contract: body-supplied context
// wins, the Authorization header only fills a missing JWT. The JWT is
// never parsed out of the chat message itself.
func mergedContext(c *gin.Context, body actions.Context) actions.Context {
	ctx := body
	ctx.Domain = strings.ToLower(strings.TrimSpace(ctx.Domain))
	if ctx.JWT == "" {
		header := c.GetHeader("Authorization")
		if after, found := strings.CutPrefix(header, "Bearer "); found {
			ctx.JWT = strings.TrimSpace(after)
		}
	}
	return ctx
}

func (h *Handler) handleChat(c *gin.Context) {
	start := time.Now()

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.UserMsg) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "userMsg is required"})
		return
	}

	ctx := mergedContext(c, req.Ctx)
	decision := routing.Classify(req.UserMsg, actions.Known)
	observeRouteDecision(string(decision.Route), string(decision.Decision))

	h.logger.WithFields(logging.Fields{
		"session_id": req.SessionID,
		"route":      decision.Route,
		"decision":   decision.Decision,
		"has_jwt":    ctx.JWT != "",
		"jwt":        logging.MaskToken(ctx.JWT),
	}).Info("Chat message routed")

	switch {
	case decision.Decision == routing.DecisionPolicyBlock:
		// Destructive requests get the console note, no retrieval and
		// no model call.
		c.JSON(http.StatusOK, gin.H{
			"route":  routing.RouteQNA,
			"answer": decision.Note,
			"trace":  gin.H{"decision": decision.Decision, "sources": []kb.Source{}},
		})

	case decision.Route == routing.RouteAction:
		h.answerAction(c, decision.Proposal.ActionID, req.UserMsg, ctx, start)

	default:
		h.answerQNA(c, req.UserMsg, start)
	}
}

func (h *Handler) answerAction(c *gin.Context, actionID, userMsg string, ctx actions.Context, start time.Time) {
	result, err := h.executor.Execute(c.Request.Context(), actionID, userMsg, ctx)
	if err != nil {
		h.renderActionError(c, actionID, err)
		return
	}

	observeActionExecution(actionID, string(result.Outcome))
	observeChatDuration("action", time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"route":  routing.RouteAction,
		"answer": result.Answer,
		"trace": gin.H{
			"decision": routing.RouteAction,
			"actionId": actionID,
			"http":     gin.H{"status": result.HTTP.Status, "ms": result.HTTP.Ms},
		},
	})
}

func (h *Handler) renderActionError(c *gin.Context, actionID string, err error) {
	var (
		validationErr *actions.ValidationError
		pathErr       *actions.MissingPathParamError
		unknownErr    *actions.UnknownActionError
		upstreamErr   *upstream.Error
	)

	switch {
	case errors.As(err, &validationErr):
		observeActionExecution(actionID, "missing_context")
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "Missing required context",
			"need":  validationErr.Missing,
			"trace": gin.H{"decision": routing.RouteAction, "actionId": actionID},
		})
	case errors.As(err, &pathErr):
		observeActionExecution(actionID, "missing_context")
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": err.Error(),
			"need":  pathErr.Tokens,
			"trace": gin.H{"decision": routing.RouteAction, "actionId": actionID},
		})
	case errors.As(err, &unknownErr):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	case errors.As(err, &upstreamErr):
		observeActionExecution(actionID, "upstream_error")
		h.logger.WithError(upstreamErr).WithField("action_id", actionID).Error("Upstream call failed")
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": upstreamErr.Error()})
	default:
		h.logger.WithError(err).WithField("action_id", actionID).Error("Action execution failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
	}
}

func (h *Handler) answerQNA(c *gin.Context, userMsg string, start time.Time) {
	retrieved := h.retriever.Retrieve(c.Request.Context(), userMsg)

	answer, sources, err := h.composer.Compose(c.Request.Context(), userMsg, retrieved)
	if err != nil {
		h.logger.WithError(err).Error("Answer composition failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "answer generation failed"})
		return
	}

	// Compact trace: at most three citations.
	if len(sources) > 3 {
		sources = sources[:3]
	}
	if sources == nil {
		sources = []kb.Source{}
	}

	observeChatDuration("qna", time.Since(start))
	h.logger.WithFields(logging.Fields{
		"source_tier": retrieved.Source,
		"confidence":  retrieved.Confidence,
		"chunks":      len(retrieved.Chunks),
	}).Info("QNA answered")

	c.JSON(http.StatusOK, gin.H{
		"route":  routing.RouteQNA,
		"answer": answer,
		"trace":  gin.H{"decision": routing.RouteQNA, "sources": sources},
	})
}

// handleRoute exposes the routing decision without executing anything,
// for testing and telemetry.
func (h *Handler) handleRoute(c *gin.Context) {
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request body"})
		return
	}

	decision := routing.Classify(req.Message, actions.Known)

	var proposal any
	var actionID any
	if decision.Proposal != nil {
		proposal = decision.Proposal
		actionID = decision.Proposal.ActionID
	}

	c.JSON(http.StatusOK, gin.H{
		"route":    decision.Route,
		"proposal": proposal,
		"trace":    gin.H{"decision": decision.Decision, "actionId": actionID},
	})
}
