package rtc

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LiveKit mints room access tokens. A LiveKit access token is a plain HS256
// JWT carrying a "video" grant claim, so signing it needs nothing beyond the
// JWT library.
type LiveKit struct {
	apiKey     string
	apiSecret  string
	defaultTTL time.Duration
}

func NewLiveKit(apiKey, apiSecret string, defaultTTL time.Duration) (*LiveKit, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("livekit: api key and secret are required")
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &LiveKit{apiKey: apiKey, apiSecret: apiSecret, defaultTTL: defaultTTL}, nil
}

// VideoGrant mirrors the grant claim LiveKit servers expect.
type VideoGrant struct {
	Room           string `json:"room,omitempty"`
	RoomJoin       bool   `json:"roomJoin"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

type AccessClaims struct {
	jwt.RegisteredClaims
	Video VideoGrant `json:"video"`
}

// MintToken issues an audio-call token: join the room, publish and subscribe
// audio, publish data. ttl <= 0 falls back to the configured default.
func (l *LiveKit) MintToken(identity, room string, ttl time.Duration) (string, error) {
	if identity == "" {
		return "", errors.New("livekit: identity is required")
	}
	if room == "" {
		return "", errors.New("livekit: room is required")
	}
	if ttl <= 0 {
		ttl = l.defaultTTL
	}

	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    l.apiKey,
			Subject:   identity,
			ID:        identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Video: VideoGrant{
			Room:           room,
			RoomJoin:       true,
			CanPublish:     true,
			CanSubscribe:   true,
			CanPublishData: true,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(l.apiSecret))
}
