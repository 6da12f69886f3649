package redisrepo

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// HistoryRepo is the short-term conversational memory: a capped Redis list
// per session holding the most recent utterances, plus a per-session turn
// counter used for audio artifact naming.
type HistoryRepo interface {
	// Append pushes a message and trims the list to the configured cap,
	// oldest evicted first.
	Append(ctx context.Context, sessionID, message string) error
	// Recent returns the retained messages, oldest first.
	Recent(ctx context.Context, sessionID string) ([]string, error)
	// Clear deletes the session's history. Available but unused by the
	// normal turn path.
	Clear(ctx context.Context, sessionID string) error
	// NextTurn returns the next monotonically increasing turn number for
	// the session, starting at 1.
	NextTurn(ctx context.Context, sessionID string) (int64, error)
}

type historyRepo struct {
	rdb *redis.Client
	max int64
}

func NewHistoryRepo(rdb *redis.Client, maxMessages int) HistoryRepo {
	if maxMessages <= 0 {
		maxMessages = 10
	}
	return &historyRepo{rdb: rdb, max: int64(maxMessages)}
}

func historyKey(sessionID string) string { return "session:" + sessionID + ":history" }
func turnKey(sessionID string) string    { return "session:" + sessionID + ":turns" }

func (r *historyRepo) Append(ctx context.Context, sessionID, message string) error {
	key := historyKey(sessionID)
	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, key, message)
	pipe.LTrim(ctx, key, -r.max, -1)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *historyRepo) Recent(ctx context.Context, sessionID string) ([]string, error) {
	msgs, err := r.rdb.LRange(ctx, historyKey(sessionID), 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return msgs, err
}

func (r *historyRepo) Clear(ctx context.Context, sessionID string) error {
	return r.rdb.Del(ctx, historyKey(sessionID), turnKey(sessionID)).Err()
}

func (r *historyRepo) NextTurn(ctx context.Context, sessionID string) (int64, error) {
	return r.rdb.Incr(ctx, turnKey(sessionID)).Result()
}
