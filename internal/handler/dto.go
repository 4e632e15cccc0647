package handler

import "wordspark-server/internal/models"

// ChatRequest is the single externally-facing operation's input. The
// session state blob is round-tripped by the client; a null state starts a
// fresh session.
type ChatRequest struct {
	Message      string               `json:"message"`
	Mode         string               `json:"mode" binding:"required,oneof=story facts"`
	SessionState *models.SessionState `json:"sessionState"`
}

// VocabQuestionDTO mirrors models.VocabQuestion for the wire.
type VocabQuestionDTO struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
}

// ChatResponse is the operation's output.
type ChatResponse struct {
	ResponseText   string               `json:"responseText"`
	VocabQuestion  *VocabQuestionDTO    `json:"vocabQuestion,omitempty"`
	SessionState   *models.SessionState `json:"sessionState"`
	SuggestedTheme string               `json:"suggestedTheme,omitempty"`
}

// APIError is the standardized error envelope.
type APIError struct {
	Message string `json:"message"`
}
