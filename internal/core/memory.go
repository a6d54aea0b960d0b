package core

import "context"

// MemoryStore is the only surface the tool layer talks to.
type MemoryStore interface {
	Store(ctx context.Context, req StoreRequest) (string, error)
	Relate(ctx context.Context, fromID, toID, relType string, strength *float64, metadata map[string]any) (*Relationship, error)
	Retrieve(ctx context.Context, q Query) ([]MemoryEntry, error)
	ListByType(ctx context.Context, contextType ContextType, limit int) ([]MemoryEntry, error)
	Get(ctx context.Context, id string) (*MemoryEntry, error)
	Related(ctx context.Context, id string, limit int) ([]MemoryEntry, error)
	Clear(ctx context.Context, id string) error
	ClearConversation(ctx context.Context, conversationID string) (int64, error)
	Stats(ctx context.Context) (*Stats, error)
}
