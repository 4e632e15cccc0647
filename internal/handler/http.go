package handler

import (
	"net/http"

	"wordspark-server/internal/models"
	"wordspark-server/internal/orchestrator"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatHandler serves the single chat operation.
type ChatHandler struct {
	orch   *orchestrator.Orchestrator
	logger *zap.Logger
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(orch *orchestrator.Orchestrator, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		orch:   orch,
		logger: logger.Named("ChatHandler"),
	}
}

// RegisterRoutes attaches the handler's routes to a gin router.
func (h *ChatHandler) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/chat", h.handleChat)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func (h *ChatHandler) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
		return
	}

	state, result, err := h.orch.HandleTurn(c.Request.Context(), req.SessionState, req.Message, models.Mode(req.Mode))
	if err != nil {
		// HandleTurn reserves errors for programmer-level misuse; the child
		// still never sees a technical failure.
		h.logger.Error("Turn handling failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, APIError{Message: "something went wrong"})
		return
	}

	resp := ChatResponse{
		ResponseText:   result.ResponseText,
		SessionState:   state,
		SuggestedTheme: result.SuggestedTheme,
	}
	if result.VocabQuestion != nil {
		resp.VocabQuestion = &VocabQuestionDTO{
			Question:           result.VocabQuestion.PromptText,
			Options:            result.VocabQuestion.Options,
			CorrectOptionIndex: result.VocabQuestion.CorrectOptionIndex,
		}
	}

	c.JSON(http.StatusOK, resp)
}
