package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/ayush-jadaun/midnfull/internal/providers/embedding"
	"github.com/ayush-jadaun/midnfull/internal/providers/llm"
	"github.com/ayush-jadaun/midnfull/internal/providers/rtc"
	"github.com/ayush-jadaun/midnfull/internal/providers/speech"
)

// HealthHandler reports which collaborators were configured at startup.
type HealthHandler struct {
	LLM       llm.Provider
	TTS       speech.Synthesizer
	STT       speech.Transcriber
	Embedder  embedding.Provider
	LiveKit   *rtc.LiveKit
	Redis     *redis.Client
	Postgres  *gorm.DB
	MongoConn *mongo.Client
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"services": gin.H{
			"llm":       h.LLM != nil,
			"tts":       h.TTS != nil,
			"stt":       h.STT != nil,
			"embedding": h.Embedder != nil,
			"livekit":   h.LiveKit != nil,
			"redis":     h.Redis != nil,
			"postgres":  h.Postgres != nil,
			"mongo":     h.MongoConn != nil,
		},
	})
}
