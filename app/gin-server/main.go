package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/ayush-jadaun/midnfull/config"
	"github.com/ayush-jadaun/midnfull/internal/api/handlers"
	"github.com/ayush-jadaun/midnfull/internal/api/middleware"
	"github.com/ayush-jadaun/midnfull/internal/api/routes"
	"github.com/ayush-jadaun/midnfull/internal/logger"
	"github.com/ayush-jadaun/midnfull/internal/providers/embedding"
	"github.com/ayush-jadaun/midnfull/internal/providers/llm"
	"github.com/ayush-jadaun/midnfull/internal/providers/rtc"
	"github.com/ayush-jadaun/midnfull/internal/providers/speech"
	mongorepo "github.com/ayush-jadaun/midnfull/internal/repositories/mongo"
	pgrepo "github.com/ayush-jadaun/midnfull/internal/repositories/postgres"
	"github.com/ayush-jadaun/midnfull/internal/repositories/redisrepo"
	"github.com/ayush-jadaun/midnfull/internal/services"
	"github.com/ayush-jadaun/midnfull/internal/storage"
	"github.com/ayush-jadaun/midnfull/internal/workers"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New()
	ctx := context.Background()

	// Stores. A missing setting disables the feature; a failing connection
	// for a configured store is fatal.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		r, err := config.InitRedis(cfg.RedisAddr)
		if err != nil {
			log.WithError(err).Fatal("redis init failed")
		}
		rdb = r
		log.Info("redis connected")
	} else {
		log.Warn("redis not configured; short-term memory and turn streaming disabled")
	}

	var db *gorm.DB
	if cfg.PostgresURI != "" {
		d, err := config.InitPostgres(cfg.PostgresURI)
		if err != nil {
			log.WithError(err).Fatal("postgres init failed")
		}
		db = d
		log.Info("postgres connected")
	} else {
		log.Warn("postgres not configured; long-term memory disabled")
	}

	var mongoClient *mongodrv.Client
	var sessionRepo mongorepo.SessionRepository
	if cfg.MongoURI != "" {
		m, err := config.InitMongo(cfg.MongoURI)
		if err != nil {
			log.WithError(err).Fatal("mongo init failed")
		}
		mongoClient = m
		mdb := m.Database(cfg.MongoDB)
		if err := mongorepo.EnsureIndexes(ctx, mdb); err != nil {
			log.WithError(err).Warn("mongo index creation failed")
		}
		sessionRepo = mongorepo.NewSessionRepo(mdb)
		log.Info("mongo connected")
	} else {
		log.Warn("mongo not configured; session lifecycle disabled")
	}

	// Providers
	var llmProvider llm.Provider
	switch cfg.LLMProvider {
	case "vertex":
		v, err := llm.NewVertexGemini(ctx, cfg.VertexProjectID, cfg.VertexLocation, cfg.VertexModel)
		if err != nil {
			log.WithError(err).Fatal("vertex gemini init failed")
		}
		llmProvider = v
	default:
		if cfg.GeminiAPIKey != "" {
			llmProvider = llm.NewGemini(cfg.GeminiAPIKey, cfg.GeminiAPIURL)
		} else {
			log.Warn("GEMINI_API_KEY not set; language model disabled")
		}
	}

	var tts speech.Synthesizer
	var stt speech.Transcriber
	if cfg.ElevenLabsAPIKey != "" {
		el := speech.NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsAPIURL, cfg.ElevenLabsVoiceID, cfg.ElevenLabsModelID)
		tts = el
		stt = el
	} else {
		log.Warn("ELEVENLABS_API_KEY not set; speech synthesis disabled")
	}
	if cfg.STTProvider == "google" {
		g, err := speech.NewGoogleSTT(ctx)
		if err != nil {
			log.WithError(err).Fatal("google speech init failed")
		}
		stt = g
	}

	var embedder embedding.Provider
	if cfg.OpenAIAPIKey != "" {
		embedder = embedding.NewOpenAI(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	} else {
		log.Warn("OPENAI_API_KEY not set; memory recall disabled")
	}

	var lk *rtc.LiveKit
	if cfg.LiveKitAPIKey != "" && cfg.LiveKitAPISecret != "" {
		l, err := rtc.NewLiveKit(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, cfg.LiveKitTokenTTL)
		if err != nil {
			log.WithError(err).Fatal("livekit init failed")
		}
		lk = l
	} else {
		log.Warn("LIVEKIT_API_KEY/LIVEKIT_API_SECRET not set; token issuance disabled")
	}

	// Audio artifact storage
	var audioStore storage.Uploader
	if cfg.AudioBucket != "" {
		g, err := storage.NewGCSUploader(ctx, cfg.AudioBucket)
		if err != nil {
			log.WithError(err).Fatal("gcs init failed")
		}
		audioStore = g
	} else {
		l, err := storage.NewLocalStore(cfg.AudioDir, cfg.AudioPublicPrefix)
		if err != nil {
			log.WithError(err).Fatal("audio dir init failed")
		}
		audioStore = l
	}

	// Repositories and services
	var history redisrepo.HistoryRepo
	if rdb != nil {
		history = redisrepo.NewHistoryRepo(rdb, cfg.ShortTermMaxMessages)
	}
	var memories pgrepo.MemoryRepo
	if db != nil {
		memories = pgrepo.NewMemoryRepo(db)
	}

	log.WithField("memory_scope", cfg.MemoryScope).Info("memory recall scope")

	conversations := services.NewConversationService(services.ConversationDeps{
		LLM:             llmProvider,
		TTS:             tts,
		Embedder:        embedder,
		History:         history,
		Memories:        memories,
		Audio:           audioStore,
		Logger:          log,
		TopK:            cfg.MemoryTopK,
		MemoryScope:     cfg.MemoryScope,
		SingleAudioFile: cfg.AudioSingleFile,
	})
	tokens := services.NewTokenService(lk)
	sessions := services.NewSessionService(sessionRepo)

	if rdb != nil && cfg.TurnWorkers > 0 {
		pool := &workers.TurnWorkerPool{
			Redis:         rdb,
			Conversations: conversations,
			NumWorkers:    cfg.TurnWorkers,
			Logger:        log,
		}
		if err := pool.Start(ctx); err != nil {
			log.WithError(err).Fatal("turn worker pool start failed")
		}
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Conversation: handlers.NewConversationHandler(conversations),
		Token:        handlers.NewTokenHandler(tokens),
		Transcribe:   handlers.NewTranscribeHandler(stt),
		Health: &handlers.HealthHandler{
			LLM:       llmProvider,
			TTS:       tts,
			STT:       stt,
			Embedder:  embedder,
			LiveKit:   lk,
			Redis:     rdb,
			Postgres:  db,
			MongoConn: mongoClient,
		},
		Session:     handlers.NewSessionHandler(sessions),
		WS:          handlers.NewWSHandler(rdb, log, ""),
		AudioDir:    cfg.AudioDir,
		AudioPrefix: cfg.AudioPublicPrefix,
		JWTSecret:   cfg.SupabaseJWTSecret,
	})

	log.WithField("port", cfg.Port).Info("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
