package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/ayush-jadaun/midnfull/internal/api/handlers"
	"github.com/ayush-jadaun/midnfull/internal/api/middleware"
)

type Deps struct {
	Conversation *handlers.ConversationHandler
	Token        *handlers.TokenHandler
	Transcribe   *handlers.TranscribeHandler
	Health       *handlers.HealthHandler
	Session      *handlers.SessionHandler
	WS           *handlers.WSHandler

	AudioDir    string
	AudioPrefix string
	JWTSecret   string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/health", d.Health.Check)

	r.POST("/conversation/:session_id/process", d.Conversation.ProcessTurn)

	r.POST("/livekit/token", d.Token.Issue)
	r.POST("/livekit/token/:room_id", d.Token.IssueForRoom)

	r.POST("/transcribe", d.Transcribe.Transcribe)

	// Synthesized audio artifacts
	prefix := d.AudioPrefix
	if prefix == "" {
		prefix = "/static"
	}
	r.Static(prefix, d.AudioDir)

	// Identified routes (Supabase JWT when a secret is configured)
	auth := r.Group("/")
	auth.Use(middleware.Identity(d.JWTSecret))

	auth.POST("/session/start", d.Session.Start)
	auth.GET("/session/:session_id", d.Session.Get)
	auth.POST("/session/:session_id/end", d.Session.End)

	auth.GET("/ws/session/:session_id", d.WS.SessionWS)
}
