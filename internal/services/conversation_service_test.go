package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/ayush-jadaun/midnfull/internal/models"
	"github.com/ayush-jadaun/midnfull/internal/utils"
)

// ---- fakes ----

type fakeLLM struct {
	mu      sync.Mutex
	prompts []string

	emotion     string
	reply       string
	failEmotion bool
	failReply   bool
	replyDelay  time.Duration

	active    int32
	maxActive int32

	replyEntered chan struct{}
	replyRelease chan struct{}
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if strings.HasPrefix(prompt, "Analyze the following text") {
		if f.failEmotion {
			return "", errors.New("classifier down")
		}
		return f.emotion, nil
	}

	cur := atomic.AddInt32(&f.active, 1)
	for {
		max := atomic.LoadInt32(&f.maxActive)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxActive, max, cur) {
			break
		}
	}
	if f.replyEntered != nil {
		f.replyEntered <- struct{}{}
		<-f.replyRelease
	}
	if f.replyDelay > 0 {
		time.Sleep(f.replyDelay)
	}
	atomic.AddInt32(&f.active, -1)

	if f.failReply {
		return "", errors.New("model down")
	}
	return f.reply, nil
}

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) replyPrompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.prompts {
		if !strings.HasPrefix(p, "Analyze the following text") {
			out = append(out, p)
		}
	}
	return out
}

type fakeTTS struct {
	mu    sync.Mutex
	texts []string
	fail  bool
}

func (f *fakeTTS) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.fail {
		return nil, errors.New("tts down")
	}
	return []byte("mp3-bytes:" + text), nil
}

func (f *fakeTTS) Close() error { return nil }

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail {
		return nil, errors.New("embedder down")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) Close() error { return nil }

type fakeHistory struct {
	mu      sync.Mutex
	max     int
	lists   map[string][]string
	turns   map[string]int64
	appends int
}

func newFakeHistory(max int) *fakeHistory {
	return &fakeHistory{max: max, lists: map[string][]string{}, turns: map[string]int64{}}
}

func (f *fakeHistory) Append(_ context.Context, sessionID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	l := append(f.lists[sessionID], message)
	if len(l) > f.max {
		l = l[len(l)-f.max:]
	}
	f.lists[sessionID] = l
	return nil
}

func (f *fakeHistory) Recent(_ context.Context, sessionID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lists[sessionID]...), nil
}

func (f *fakeHistory) Clear(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lists, sessionID)
	delete(f.turns, sessionID)
	return nil
}

func (f *fakeHistory) NextTurn(_ context.Context, sessionID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns[sessionID]++
	return f.turns[sessionID], nil
}

type fakeMemories struct {
	mu        sync.Mutex
	inserted  []*models.MemoryRecord
	results   []models.MemoryMatch
	searches  int
	lastScope string
	lastTopK  int
}

func (f *fakeMemories) Insert(_ context.Context, rec *models.MemoryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, rec)
	return nil
}

func (f *fakeMemories) SearchSimilar(_ context.Context, _ pgvector.Vector, sessionID string, topK int) ([]models.MemoryMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	f.lastScope = sessionID
	f.lastTopK = topK
	return f.results, nil
}

type fakeUploader struct {
	mu    sync.Mutex
	names []string
}

func (f *fakeUploader) Upload(_ context.Context, objectName, _ string, r io.Reader) (string, error) {
	_, _ = io.ReadAll(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, objectName)
	return "/static/" + objectName, nil
}

// ---- harness ----

type testEnv struct {
	llm      *fakeLLM
	tts      *fakeTTS
	embedder *fakeEmbedder
	history  *fakeHistory
	memories *fakeMemories
	audio    *fakeUploader
	deps     ConversationDeps
}

func newTestEnv() *testEnv {
	env := &testEnv{
		llm:      &fakeLLM{emotion: "sad", reply: "I hear you"},
		tts:      &fakeTTS{},
		embedder: &fakeEmbedder{},
		history:  newFakeHistory(10),
		memories: &fakeMemories{},
		audio:    &fakeUploader{},
	}
	env.deps = ConversationDeps{
		LLM:      env.llm,
		TTS:      env.tts,
		Embedder: env.embedder,
		History:  env.history,
		Memories: env.memories,
		Audio:    env.audio,
	}
	return env
}

func (e *testEnv) service() ConversationService {
	return NewConversationService(e.deps)
}

// ---- tests ----

func TestProcessTurnRejectsEmptyText(t *testing.T) {
	env := newTestEnv()
	svc := env.service()

	for _, text := range []string{"", "   ", "\t\n "} {
		_, err := svc.ProcessTurn(context.Background(), "s1", text)
		require.Error(t, err)
		require.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	}

	// No collaborator calls and no memory writes.
	require.Empty(t, env.llm.prompts)
	require.Empty(t, env.tts.texts)
	require.Zero(t, env.embedder.calls)
	require.Zero(t, env.history.appends)
	require.Empty(t, env.memories.inserted)
	require.Empty(t, env.audio.names)
}

func TestProcessTurnRejectsEmptySessionID(t *testing.T) {
	env := newTestEnv()
	_, err := env.service().ProcessTurn(context.Background(), "", "hello")
	require.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	require.Zero(t, env.history.appends)
}

func TestProcessTurnUnavailableWithoutLLM(t *testing.T) {
	env := newTestEnv()
	env.deps.LLM = nil
	_, err := env.service().ProcessTurn(context.Background(), "s1", "hello")
	require.True(t, utils.IsCode(err, utils.CodeUnavailable))
	require.Zero(t, env.history.appends)
}

func TestProcessTurnHappyPath(t *testing.T) {
	env := newTestEnv()
	env.memories.results = []models.MemoryMatch{
		{Summary: "felt better after a walk"},
		{Summary: "worried about work"},
	}
	svc := env.service()

	res, err := svc.ProcessTurn(context.Background(), "s1", "I feel down")
	require.NoError(t, err)

	// Reply is the generator's output verbatim.
	require.Equal(t, "I hear you", res.ReplyText)
	require.Equal(t, "sad", res.Emotion)
	require.Equal(t, int64(1), res.Turn)
	// Audio reference derived deterministically from the session and turn.
	require.Equal(t, "/static/s1_1.mp3", res.AudioURL)
	require.Equal(t, []string{"s1_1.mp3"}, env.audio.names)

	h, _ := env.history.Recent(context.Background(), "s1")
	require.Equal(t, []string{"user: I feel down", "assistant: I hear you"}, h)

	require.Len(t, env.memories.inserted, 1)
	require.Equal(t, "I hear you", env.memories.inserted[0].Summary)
	require.Equal(t, "s1", env.memories.inserted[0].SessionID)

	// Query embedding + reply embedding.
	require.Equal(t, 2, env.embedder.calls)

	prompts := env.llm.replyPrompts()
	require.Len(t, prompts, 1)
	require.Contains(t, prompts[0], "detected emotion is: sad")
	require.Contains(t, prompts[0], "user: I feel down")
	require.Contains(t, prompts[0], "felt better after a walk")
	require.Contains(t, prompts[0], "worried about work")
	// Assistant reply is appended after prompt assembly, never inside it.
	require.NotContains(t, prompts[0], "assistant: I hear you")
}

func TestEmotionClassificationDegradesToNeutral(t *testing.T) {
	env := newTestEnv()
	env.llm.failEmotion = true
	res, err := env.service().ProcessTurn(context.Background(), "s1", "whatever")
	require.NoError(t, err)
	require.Equal(t, "neutral", res.Emotion)
	require.Contains(t, env.llm.replyPrompts()[0], "detected emotion is: neutral")
}

func TestEmotionLabelNormalization(t *testing.T) {
	cases := map[string]string{
		"SAD.":              "sad",
		" Anxious \n":       "anxious",
		"the user is angry": "neutral", // multi-word answers are unusable
		"":                  "neutral",
	}
	for raw, want := range cases {
		env := newTestEnv()
		env.llm.emotion = raw
		res, err := env.service().ProcessTurn(context.Background(), "s1", "hello")
		require.NoError(t, err)
		require.Equal(t, want, res.Emotion, "raw label %q", raw)
	}
}

func TestGenerationFailureLeavesEarlierWrites(t *testing.T) {
	env := newTestEnv()
	env.llm.failReply = true
	_, err := env.service().ProcessTurn(context.Background(), "s1", "I feel down")
	require.Error(t, err)
	require.True(t, utils.IsCode(err, utils.CodeInternal))

	// The user-utterance append is not rolled back.
	h, _ := env.history.Recent(context.Background(), "s1")
	require.Equal(t, []string{"user: I feel down"}, h)
	require.Empty(t, env.memories.inserted)
	require.Empty(t, env.audio.names)
	require.Empty(t, env.tts.texts)
}

func TestRepeatedTurnsAppendOnly(t *testing.T) {
	env := newTestEnv()
	svc := env.service()

	for i := 0; i < 2; i++ {
		_, err := svc.ProcessTurn(context.Background(), "s1", "same input")
		require.NoError(t, err)
	}

	// No deduplication anywhere: two memory records, four history entries,
	// two distinct audio objects.
	require.Len(t, env.memories.inserted, 2)
	h, _ := env.history.Recent(context.Background(), "s1")
	require.Len(t, h, 4)
	require.Equal(t, []string{"s1_1.mp3", "s1_2.mp3"}, env.audio.names)
}

func TestShortTermHistoryCap(t *testing.T) {
	env := newTestEnv()
	env.history = newFakeHistory(3)
	env.deps.History = env.history
	svc := env.service()

	for _, text := range []string{"one", "two", "three"} {
		_, err := svc.ProcessTurn(context.Background(), "s1", text)
		require.NoError(t, err)
	}

	// Six appends against a cap of three: only the most recent three
	// survive, in arrival order.
	h, _ := env.history.Recent(context.Background(), "s1")
	require.Equal(t, []string{
		"assistant: I hear you",
		"user: three",
		"assistant: I hear you",
	}, h)
}

func TestMemoryScopeSessionAndGlobal(t *testing.T) {
	env := newTestEnv()
	_, err := env.service().ProcessTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)
	require.Equal(t, "s1", env.memories.lastScope)
	require.Equal(t, 3, env.memories.lastTopK)

	env = newTestEnv()
	env.deps.MemoryScope = MemoryScopeGlobal
	_, err = env.service().ProcessTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)
	require.Equal(t, "", env.memories.lastScope)
}

func TestRecallFailureIsNonFatal(t *testing.T) {
	env := newTestEnv()
	env.embedder.fail = true
	res, err := env.service().ProcessTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)
	require.Equal(t, "I hear you", res.ReplyText)
	require.Zero(t, env.memories.searches)
	// The reply embedding also failed, so no long-term write either.
	require.Empty(t, env.memories.inserted)
}

func TestRecallLogsMatchScores(t *testing.T) {
	env := newTestEnv()
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	env.deps.Logger = log
	env.memories.results = []models.MemoryMatch{
		{Summary: "felt better after a walk", Distance: 0.2},
		{Summary: "worried about work", Distance: 0.6},
	}

	_, err := env.service().ProcessTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)

	var entry *logrus.Entry
	for i := range hook.Entries {
		if hook.Entries[i].Message == "recalled long-term memories" {
			entry = &hook.Entries[i]
		}
	}
	require.NotNil(t, entry)
	require.Equal(t, 2, entry.Data["matches"])
	require.InDelta(t, 0.8, entry.Data["top_similarity"], 1e-9)
}

func TestEmptyMemoryStoreIsNotAnError(t *testing.T) {
	env := newTestEnv()
	env.memories.results = nil
	res, err := env.service().ProcessTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)
	require.Equal(t, "I hear you", res.ReplyText)
	require.Equal(t, 1, env.memories.searches)
}

func TestSingleAudioFileNaming(t *testing.T) {
	env := newTestEnv()
	env.deps.SingleAudioFile = true
	svc := env.service()

	for i := 0; i < 2; i++ {
		res, err := svc.ProcessTurn(context.Background(), "s1", "hello")
		require.NoError(t, err)
		require.Equal(t, "/static/s1_reply.mp3", res.AudioURL)
		require.Zero(t, res.Turn)
	}
	// Legacy naming overwrites the same object every turn.
	require.Equal(t, []string{"s1_reply.mp3", "s1_reply.mp3"}, env.audio.names)
}

func TestSameSessionTurnsAreSerialized(t *testing.T) {
	env := newTestEnv()
	env.llm.replyDelay = 50 * time.Millisecond
	svc := env.service()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ProcessTurn(context.Background(), "s1", "hello")
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	// Reply generation never overlapped for the shared session.
	require.Equal(t, int32(1), atomic.LoadInt32(&env.llm.maxActive))

	// Every turn got a distinct audio object.
	seen := map[string]bool{}
	for _, name := range env.audio.names {
		require.False(t, seen[name], "duplicate audio object %s", name)
		seen[name] = true
	}
	require.Len(t, seen, 4)

	// History holds whole user/assistant pairs, never interleaved halves.
	h, _ := env.history.Recent(context.Background(), "s1")
	require.Len(t, h, 8)
	for i := 0; i < len(h); i += 2 {
		require.True(t, strings.HasPrefix(h[i], "user: "), "entry %d: %s", i, h[i])
		require.True(t, strings.HasPrefix(h[i+1], "assistant: "), "entry %d: %s", i+1, h[i+1])
	}
}

func TestDifferentSessionsRunConcurrently(t *testing.T) {
	env := newTestEnv()
	env.llm.replyEntered = make(chan struct{})
	env.llm.replyRelease = make(chan struct{})
	svc := env.service()

	var wg sync.WaitGroup
	for _, sid := range []string{"s1", "s2"} {
		wg.Add(1)
		go func(sid string) {
			defer wg.Done()
			_, err := svc.ProcessTurn(context.Background(), sid, "word for "+sid)
			require.NoError(t, err)
		}(sid)
	}

	// Both sessions must reach reply generation while the other is still
	// inside it; a shared lock would hang the second arrival.
	for i := 0; i < 2; i++ {
		select {
		case <-env.llm.replyEntered:
		case <-time.After(2 * time.Second):
			t.Fatal("second session blocked behind the first session's lock")
		}
	}
	close(env.llm.replyRelease)
	wg.Wait()

	// Histories never bleed into each other.
	h1, _ := env.history.Recent(context.Background(), "s1")
	h2, _ := env.history.Recent(context.Background(), "s2")
	require.Equal(t, []string{"user: word for s1", "assistant: I hear you"}, h1)
	require.Equal(t, []string{"user: word for s2", "assistant: I hear you"}, h2)
	require.ElementsMatch(t, []string{"s1_1.mp3", "s2_1.mp3"}, env.audio.names)
}
