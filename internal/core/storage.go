package core

import (
	"context"
	"time"
)

type EntryRepository interface {
	Put(ctx context.Context, entry MemoryEntry) error
	Get(ctx context.Context, id string, now time.Time) (*MemoryEntry, error)
	Delete(ctx context.Context, id string) error
	ListByConversation(ctx context.Context, conversationID string, contextType ContextType, now time.Time) ([]MemoryEntry, error)
	ListByContextType(ctx context.Context, contextType ContextType, limit int, now time.Time) ([]MemoryEntry, error)
	DeleteByConversation(ctx context.Context, conversationID string) (int64, error)
	ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
	LoadAll(ctx context.Context, now time.Time) ([]MemoryEntry, error)
	Count(ctx context.Context) (int64, map[ContextType]int64, error)
}

type RelationshipRepository interface {
	Put(ctx context.Context, rel Relationship) error
	DeleteByEntry(ctx context.Context, entryID string) error
	LoadAll(ctx context.Context) ([]Relationship, error)
	Count(ctx context.Context) (int64, error)
}
