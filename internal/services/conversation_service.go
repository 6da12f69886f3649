package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"

	"github.com/ayush-jadaun/midnfull/internal/models"
	"github.com/ayush-jadaun/midnfull/internal/providers/embedding"
	"github.com/ayush-jadaun/midnfull/internal/providers/llm"
	"github.com/ayush-jadaun/midnfull/internal/providers/speech"
	pgrepo "github.com/ayush-jadaun/midnfull/internal/repositories/postgres"
	"github.com/ayush-jadaun/midnfull/internal/repositories/redisrepo"
	"github.com/ayush-jadaun/midnfull/internal/storage"
	"github.com/ayush-jadaun/midnfull/internal/utils"
)

const (
	// MemoryScopeSession limits similarity search to the caller's session;
	// MemoryScopeGlobal searches every session's records. Global matches the
	// reference behavior but leaks one user's memories into another's
	// replies, so session is the default.
	MemoryScopeSession = "session"
	MemoryScopeGlobal  = "global"

	neutralEmotion = "neutral"
)

type TurnResult struct {
	SessionID string `json:"session_id"`
	ReplyText string `json:"reply_text"`
	AudioURL  string `json:"audio_url"`
	Emotion   string `json:"emotion"`
	Turn      int64  `json:"turn"`
}

type ConversationService interface {
	// ProcessTurn runs one utterance-in, reply-out cycle: classify emotion,
	// update short-term history, recall long-term memories, generate a
	// reply, synthesize speech, and store the audio. Turns for the same
	// session are serialized; distinct sessions run concurrently.
	ProcessTurn(ctx context.Context, sessionID, userText string) (*TurnResult, error)
}

// ConversationDeps carries the collaborator handles. Nil optional handles
// (Embedder, Memories) disable long-term recall; nil required handles (LLM,
// TTS, History, Audio) make ProcessTurn report UNAVAILABLE.
type ConversationDeps struct {
	LLM      llm.Provider
	TTS      speech.Synthesizer
	Embedder embedding.Provider
	History  redisrepo.HistoryRepo
	Memories pgrepo.MemoryRepo
	Audio    storage.Uploader
	Logger   *logrus.Logger

	TopK            int
	MemoryScope     string // MemoryScopeSession | MemoryScopeGlobal
	SingleAudioFile bool   // legacy {session_id}_reply.mp3 overwrite naming
}

type conversationService struct {
	d ConversationDeps

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewConversationService(d ConversationDeps) ConversationService {
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	if d.TopK <= 0 {
		d.TopK = 3
	}
	if d.MemoryScope == "" {
		d.MemoryScope = MemoryScopeSession
	}
	return &conversationService{d: d, locks: make(map[string]*sync.Mutex)}
}

// sessionLock returns the mutex serializing turns for one session. Entries
// are never evicted; a mutex per active session id is cheap and eviction
// would race with lock holders.
func (s *conversationService) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

func (s *conversationService) ProcessTurn(ctx context.Context, sessionID, userText string) (*TurnResult, error) {
	const op = "ConversationService.ProcessTurn"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	if strings.TrimSpace(userText) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "transcribed_text is required", nil)
	}
	if s.d.LLM == nil || s.d.TTS == nil || s.d.History == nil || s.d.Audio == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "required services are not available", nil)
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	log := s.d.Logger.WithField("session_id", sessionID)

	// Classification failure is non-fatal: degrade to neutral.
	emotion := s.classifyEmotion(ctx, userText)

	if err := s.d.History.Append(ctx, sessionID, "user: "+userText); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to append history", err)
	}

	history, err := s.d.History.Recent(ctx, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to read history", err)
	}

	memories := s.recallMemories(ctx, sessionID, userText)

	reply, err := s.d.LLM.Complete(ctx, buildReplyPrompt(history, emotion, memories))
	if err != nil {
		// The user-utterance append above stays in place: no rollback on
		// mid-turn failure.
		return nil, utils.E(utils.CodeInternal, op, "reply generation failed", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, utils.E(utils.CodeInternal, op, "reply generation returned empty text", nil)
	}

	s.storeMemory(ctx, sessionID, reply)

	audio, err := s.d.TTS.Synthesize(ctx, reply)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "speech synthesis failed", err)
	}

	var turn int64
	objectName := sessionID + "_reply.mp3"
	if !s.d.SingleAudioFile {
		turn, err = s.d.History.NextTurn(ctx, sessionID)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to advance turn counter", err)
		}
		objectName = fmt.Sprintf("%s_%d.mp3", sessionID, turn)
	}

	audioURL, err := s.d.Audio.Upload(ctx, objectName, "audio/mpeg", bytes.NewReader(audio))
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store audio", err)
	}

	if err := s.d.History.Append(ctx, sessionID, "assistant: "+reply); err != nil {
		// The reply already exists; losing this append only shortens the
		// next turn's context.
		log.WithError(err).Warn("failed to append assistant utterance")
	}

	log.WithFields(logrus.Fields{
		"emotion": emotion,
		"turn":    turn,
	}).Info("turn processed")

	return &TurnResult{
		SessionID: sessionID,
		ReplyText: reply,
		AudioURL:  audioURL,
		Emotion:   emotion,
		Turn:      turn,
	}, nil
}

func (s *conversationService) classifyEmotion(ctx context.Context, userText string) string {
	prompt := "Analyze the following text and respond ONLY with a single word that best describes the user's emotion (e.g., angry, sad, happy, neutral, anxious, etc.):\n\n" + userText

	out, err := s.d.LLM.Complete(ctx, prompt)
	if err != nil {
		s.d.Logger.WithError(err).Warn("emotion classification failed, using neutral")
		return neutralEmotion
	}

	words := strings.Fields(strings.ToLower(strings.TrimSpace(out)))
	if len(words) != 1 {
		return neutralEmotion
	}
	return strings.Trim(words[0], ".,!\"'")
}

// recallMemories embeds the utterance and fetches the most similar long-term
// summaries. Any failure here degrades to no recalled context; recall never
// fails a turn.
func (s *conversationService) recallMemories(ctx context.Context, sessionID, userText string) []string {
	if s.d.Embedder == nil || s.d.Memories == nil {
		return nil
	}

	vec, err := s.d.Embedder.Embed(ctx, userText)
	if err != nil {
		s.d.Logger.WithError(err).Warn("query embedding failed, skipping memory recall")
		return nil
	}

	scope := sessionID
	if s.d.MemoryScope == MemoryScopeGlobal {
		scope = ""
	}

	matches, err := s.d.Memories.SearchSimilar(ctx, pgvector.NewVector(vec), scope, s.d.TopK)
	if err != nil {
		s.d.Logger.WithError(err).Warn("memory search failed, skipping memory recall")
		return nil
	}

	summaries := make([]string, 0, len(matches))
	for _, m := range matches {
		summaries = append(summaries, m.Summary)
	}
	if len(matches) > 0 {
		// Matches arrive ordered by distance; the first is the best hit.
		s.d.Logger.WithFields(logrus.Fields{
			"session_id":     sessionID,
			"matches":        len(matches),
			"top_similarity": matches[0].Similarity(),
		}).Debug("recalled long-term memories")
	}
	return summaries
}

// storeMemory persists the reply as an append-only memory record with a
// fresh embedding. A record is only written when an embedding is available;
// failures are logged, never fatal to the turn.
func (s *conversationService) storeMemory(ctx context.Context, sessionID, reply string) {
	if s.d.Embedder == nil || s.d.Memories == nil {
		return
	}

	vec, err := s.d.Embedder.Embed(ctx, reply)
	if err != nil {
		s.d.Logger.WithError(err).Warn("reply embedding failed, skipping long-term write")
		return
	}

	rec := &models.MemoryRecord{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Summary:   reply,
		Embedding: pgvector.NewVector(vec),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.d.Memories.Insert(ctx, rec); err != nil {
		s.d.Logger.WithError(err).Warn("failed to insert memory record")
	}
}

func buildReplyPrompt(history []string, emotion string, memories []string) string {
	var b strings.Builder
	b.WriteString("You are an empathetic mental health assistant. The user's detected emotion is: ")
	b.WriteString(emotion)
	b.WriteString(".\n")
	b.WriteString("Recent conversation:\n")
	b.WriteString(strings.Join(history, "\n"))
	b.WriteString("\n")
	b.WriteString("Relevant past memories:\n")
	b.WriteString(strings.Join(memories, "\n"))
	b.WriteString("\n")
	b.WriteString("Reply in a way that is supportive, non-judgmental, and encourages the user to share more if they wish.")
	return b.String()
}
