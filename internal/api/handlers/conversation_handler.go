package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ayush-jadaun/midnfull/internal/services"
	"github.com/ayush-jadaun/midnfull/internal/utils"
)

type ConversationHandler struct {
	svc services.ConversationService
}

func NewConversationHandler(svc services.ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type ConversationInput struct {
	TranscribedText string `json:"transcribed_text"`
}

type ConversationOutput struct {
	ReplyText string `json:"reply_text"`
	AudioURL  string `json:"audio_url"`
}

// ProcessTurn handles POST /conversation/:session_id/process.
func (h *ConversationHandler) ProcessTurn(c *gin.Context) {
	sessionID := c.Param("session_id")

	var req ConversationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ConversationHandler.ProcessTurn", "invalid request body", err))
		return
	}

	res, err := h.svc.ProcessTurn(c.Request.Context(), sessionID, req.TranscribedText)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ConversationOutput{
		ReplyText: res.ReplyText,
		AudioURL:  res.AudioURL,
	})
}
