package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ayush-jadaun/midnfull/internal/providers/speech"
	"github.com/ayush-jadaun/midnfull/internal/utils"
)

type TranscribeHandler struct {
	stt speech.Transcriber
}

// NewTranscribeHandler accepts a nil transcriber; requests then report
// UNAVAILABLE.
func NewTranscribeHandler(stt speech.Transcriber) *TranscribeHandler {
	return &TranscribeHandler{stt: stt}
}

type TranscribeResponse struct {
	Text string `json:"text"`
}

// Transcribe handles POST /transcribe with a multipart "file" field.
func (h *TranscribeHandler) Transcribe(c *gin.Context) {
	const op = "TranscribeHandler.Transcribe"

	if h.stt == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "speech service is not available", nil))
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "multipart field 'file' is required", err))
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer f.Close()

	const maxBytes = 10 << 20
	audio, err := io.ReadAll(io.LimitReader(f, maxBytes))
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to read upload", err))
		return
	}
	if len(audio) == 0 {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "uploaded audio is empty", nil))
		return
	}

	text, _, err := h.stt.Transcribe(c.Request.Context(), audio, c.PostForm("language"))
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "transcription failed", err))
		return
	}

	c.JSON(http.StatusOK, TranscribeResponse{Text: text})
}
