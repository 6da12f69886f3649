package models

import "time"

// Session is the lifecycle record for one audio call. Conversation turns do
// not require one to exist; the record only tracks start/end bookkeeping.
type Session struct {
	SessionID       string     `bson:"session_id" json:"session_id"`
	UserID          string     `bson:"user_id" json:"user_id"`
	Language        string     `bson:"language" json:"language"`
	Status          string     `bson:"status" json:"status"` // active | ended
	CreatedAt       time.Time  `bson:"created_at" json:"created_at"`
	EndedAt         *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	DurationSeconds int64      `bson:"duration_seconds" json:"duration_seconds"`
}
