package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ayush-jadaun/midnfull/internal/models"
	mongorepo "github.com/ayush-jadaun/midnfull/internal/repositories/mongo"
	"github.com/ayush-jadaun/midnfull/internal/utils"
)

type SessionService interface {
	Start(ctx context.Context, userID, language string) (*models.Session, error)
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	End(ctx context.Context, sessionID string) (*models.Session, error)
}

type sessionService struct {
	sessions mongorepo.SessionRepository
}

func NewSessionService(sessions mongorepo.SessionRepository) SessionService {
	return &sessionService{sessions: sessions}
}

func (s *sessionService) Start(ctx context.Context, userID, language string) (*models.Session, error) {
	const op = "SessionService.Start"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if language == "" {
		language = "en"
	}
	if s.sessions == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "session store is not available", nil)
	}

	session := &models.Session{
		SessionID: uuid.NewString(),
		UserID:    userID,
		Language:  language,
		Status:    "active",
		CreatedAt: time.Now().UTC(),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create session", err)
	}
	return session, nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	const op = "SessionService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	if s.sessions == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "session store is not available", nil)
	}

	out, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	return out, nil
}

func (s *sessionService) End(ctx context.Context, sessionID string) (*models.Session, error) {
	const op = "SessionService.End"

	ss, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dur := int64(now.Sub(ss.CreatedAt).Seconds())
	if dur < 0 {
		dur = 0
	}

	if err := s.sessions.End(ctx, sessionID, now, dur); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to end session", err)
	}

	ss.Status = "ended"
	ss.EndedAt = &now
	ss.DurationSeconds = dur
	return ss, nil
}
