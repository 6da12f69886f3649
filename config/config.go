package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every environment-driven setting the server recognizes.
// Missing optional values disable the feature they belong to; the affected
// endpoints then report UNAVAILABLE instead of the process refusing to start.
type Config struct {
	Port string

	// Generative language provider
	LLMProvider     string // "gemini" (REST) | "vertex" (SDK)
	GeminiAPIKey    string
	GeminiAPIURL    string
	VertexProjectID string
	VertexLocation  string
	VertexModel     string

	// Speech provider
	ElevenLabsAPIKey  string
	ElevenLabsAPIURL  string
	ElevenLabsVoiceID string
	ElevenLabsModelID string
	STTProvider       string // "elevenlabs" | "google"

	// Embeddings
	OpenAIAPIKey        string
	EmbeddingModel      string
	EmbeddingDimensions int

	// Real-time media
	LiveKitAPIKey    string
	LiveKitAPISecret string
	LiveKitTokenTTL  time.Duration

	// Stores
	RedisAddr   string
	PostgresURI string
	MongoURI    string
	MongoDB     string

	// Memory policy
	ShortTermMaxMessages int
	MemoryTopK           int
	MemoryScope          string // "session" | "global"

	// Audio artifacts
	AudioDir          string
	AudioPublicPrefix string
	AudioSingleFile   bool
	AudioBucket       string // non-empty switches storage to GCS

	SupabaseJWTSecret string
	TurnWorkers       int
}

func Load() Config {
	return Config{
		Port: getenv("PORT", "8080"),

		LLMProvider:     strings.ToLower(getenv("LLM_PROVIDER", "gemini")),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiAPIURL:    os.Getenv("GEMINI_API_URL"),
		VertexProjectID: os.Getenv("VERTEX_PROJECT_ID"),
		VertexLocation:  getenv("VERTEX_LOCATION", "us-central1"),
		VertexModel:     os.Getenv("VERTEX_MODEL"),

		ElevenLabsAPIKey:  os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsAPIURL:  os.Getenv("ELEVENLABS_API_URL"),
		ElevenLabsVoiceID: os.Getenv("ELEVENLABS_VOICE_ID"),
		ElevenLabsModelID: os.Getenv("ELEVENLABS_MODEL_ID"),
		STTProvider:       strings.ToLower(getenv("STT_PROVIDER", "elevenlabs")),

		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		EmbeddingModel:      getenv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimensions: getint("EMBEDDING_DIMENSIONS", 1536),

		LiveKitAPIKey:    os.Getenv("LIVEKIT_API_KEY"),
		LiveKitAPISecret: os.Getenv("LIVEKIT_API_SECRET"),
		LiveKitTokenTTL:  getdur("LIVEKIT_TOKEN_TTL", time.Hour),

		RedisAddr:   redisAddr(),
		PostgresURI: os.Getenv("POSTGRES_URI"),
		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDB:     getenv("MONGO_DB", "midnfull"),

		ShortTermMaxMessages: getint("SHORT_TERM_MAX_MESSAGES", 10),
		MemoryTopK:           getint("MEMORY_TOP_K", 3),
		MemoryScope:          strings.ToLower(getenv("MEMORY_SCOPE", "session")),

		AudioDir:          getenv("AUDIO_DIR", "audio_responses"),
		AudioPublicPrefix: getenv("AUDIO_PUBLIC_PREFIX", "/static"),
		AudioSingleFile:   getbool("AUDIO_SINGLE_FILE", false),
		AudioBucket:       os.Getenv("AUDIO_BUCKET"),

		SupabaseJWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),
		TurnWorkers:       getint("TURN_WORKERS", 2),
	}
}

// redisAddr accepts the same aliases the deployment scripts have used over
// time: REDIS_ADDR, REDIS_URI, REDIS_URL.
func redisAddr() string {
	for _, k := range []string{"REDIS_ADDR", "REDIS_URI", "REDIS_URL"} {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
