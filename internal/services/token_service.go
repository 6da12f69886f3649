package services

import (
	"time"

	"github.com/ayush-jadaun/midnfull/internal/providers/rtc"
	"github.com/ayush-jadaun/midnfull/internal/utils"
)

type TokenService interface {
	// IssueRoomToken mints a room access token for an audio call. ttl <= 0
	// uses the provider default (1 hour).
	IssueRoomToken(identity, room string, ttl time.Duration) (string, error)
}

type tokenService struct {
	lk *rtc.LiveKit
}

// NewTokenService accepts a nil provider; issuance then reports UNAVAILABLE,
// matching a deployment without LiveKit credentials.
func NewTokenService(lk *rtc.LiveKit) TokenService {
	return &tokenService{lk: lk}
}

func (s *tokenService) IssueRoomToken(identity, room string, ttl time.Duration) (string, error) {
	const op = "TokenService.IssueRoomToken"

	if identity == "" || room == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "identity and room are required", nil)
	}
	if s.lk == nil {
		return "", utils.E(utils.CodeUnavailable, op, "realtime media service is not available; check LIVEKIT_API_KEY and LIVEKIT_API_SECRET", nil)
	}

	token, err := s.lk.MintToken(identity, room, ttl)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to mint token", err)
	}
	return token, nil
}
