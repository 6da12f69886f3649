package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ayush-jadaun/midnfull/internal/services"
)

// TurnWorkerPool consumes queued turns from a Redis stream and runs them
// through the conversation service, publishing results to the session's
// response channel. Turns submitted over the WebSocket endpoint land here.
type TurnWorkerPool struct {
	Redis         *redis.Client
	Conversations services.ConversationService
	NumWorkers    int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *TurnWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Conversations == nil {
		return errors.New("TurnWorkerPool missing dependency: Redis/Conversations must be set")
	}
	if p.Stream == "" {
		p.Stream = "turns:stream"
	}
	if p.Group == "" {
		p.Group = "turn-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *TurnWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *TurnWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	sessionID := getStr("session_id")
	text := getStr("text")
	if sessionID == "" || text == "" {
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":   msg.ID,
		"session_id": sessionID,
	})

	respCh := "session:" + sessionID + ":response"
	statusCh := "session:" + sessionID + ":status"

	p.publish(ctx, statusCh, map[string]any{
		"type": "status", "status": "processing",
	})

	start := time.Now()
	res, err := p.Conversations.ProcessTurn(ctx, sessionID, text)
	if err != nil {
		log.WithError(err).Error("turn processing failed")
		p.publish(ctx, statusCh, map[string]any{
			"type": "status", "status": "failed", "message": "turn processing failed",
		})
		return
	}

	p.publish(ctx, respCh, map[string]any{
		"type":               "turn_reply",
		"reply_text":         res.ReplyText,
		"audio_url":          res.AudioURL,
		"emotion":            res.Emotion,
		"turn":               res.Turn,
		"processing_time_ms": time.Since(start).Milliseconds(),
	})
	p.publish(ctx, statusCh, map[string]any{
		"type": "status", "status": "done",
	})
}

func (p *TurnWorkerPool) publish(ctx context.Context, channel string, payload map[string]any) {
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = p.Redis.Publish(ctx, channel, string(b)).Err()
}
