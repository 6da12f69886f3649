package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// MemoryRecord is one long-term memory entry. Records are append-only; they
// are never updated or deleted by normal operation.
//
// Expected schema (the vector dimension must match EMBEDDING_DIMENSIONS):
//
//	CREATE EXTENSION IF NOT EXISTS vector;
//	CREATE TABLE IF NOT EXISTS conversation_memory (
//	    id UUID PRIMARY KEY,
//	    session_id TEXT,
//	    summary TEXT,
//	    embedding VECTOR(1536),
//	    metadata JSONB,
//	    created_at TIMESTAMPTZ DEFAULT NOW()
//	);
type MemoryRecord struct {
	ID        string          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID string          `gorm:"column:session_id;type:text;index" json:"session_id"`
	Summary   string          `gorm:"column:summary;type:text" json:"summary"`
	Embedding pgvector.Vector `gorm:"column:embedding;type:vector(1536)" json:"-"`
	Metadata  datatypes.JSON  `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt time.Time       `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (MemoryRecord) TableName() string { return "conversation_memory" }

// MemoryMatch is one similarity-search hit. Distance is the pgvector `<#>`
// distance of the stored embedding against the query embedding; lower is more
// similar.
type MemoryMatch struct {
	ID        string  `json:"id"`
	SessionID string  `json:"session_id"`
	Summary   string  `json:"summary"`
	Distance  float64 `json:"-"`
}

func (m MemoryMatch) Similarity() float64 { return 1 - m.Distance }
