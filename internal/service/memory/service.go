package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sandevgo/recalld/internal/config"
	"github.com/sandevgo/recalld/internal/core"
	"github.com/sandevgo/recalld/pkg/log"
)

var _ core.MemoryStore = (*Service)(nil)

// Service is the facade in front of the entry table, the tag index and the
// relationship graph. It is the only layer that coordinates writes across
// them: entry row first, then derived in-memory state.
type Service struct {
	cfg     *config.AppConfig
	entries core.EntryRepository
	rels    core.RelationshipRepository
	tags    *TagIndex
	graph   *Graph
	engine  *Engine
}

func NewService(
	cfg *config.AppConfig,
	entries core.EntryRepository,
	rels core.RelationshipRepository,
) *Service {
	tags := NewTagIndex()
	graph := NewGraph()

	return &Service{
		cfg:     cfg,
		entries: entries,
		rels:    rels,
		tags:    tags,
		graph:   graph,
		engine:  NewEngine(entries, tags, graph, cfg.MaxTraverseDepth),
	}
}

// Warmup rebuilds the tag index and the relationship graph from the durable
// tables. Edges whose endpoints are already gone are kept: consumers skip
// dangling edges and the sweeper prunes them.
func (s *Service) Warmup(ctx context.Context) error {
	now := time.Now().UTC()

	entries, err := s.entries.LoadAll(ctx, now)
	if err != nil {
		return fmt.Errorf("warmup entries: %w", err)
	}
	for i := range entries {
		s.tags.AddTags(entries[i].ID, entries[i].Tags)
	}

	rels, err := s.rels.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("warmup relationships: %w", err)
	}
	edges := 0
	for _, rel := range rels {
		if err := s.graph.AddEdge(rel); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("id", rel.ID).Msg("skipping bad relationship row")
			continue
		}
		edges++
	}

	log.FromCtx(ctx).Info().
		Int("entries", len(entries)).
		Int("relationships", edges).
		Msg("memory store warmed up")
	return nil
}

func (s *Service) Store(ctx context.Context, req core.StoreRequest) (string, error) {
	now := time.Now().UTC()

	entry, err := s.buildEntry(req, now)
	if err != nil {
		return "", err
	}

	if err := s.entries.Put(ctx, *entry); err != nil {
		return "", err
	}
	s.tags.AddTags(entry.ID, entry.Tags)

	log.FromCtx(ctx).Debug().
		Str("id", entry.ID).
		Str("conversation", entry.ConversationID).
		Str("context_type", string(entry.ContextType)).
		Float64("importance", entry.ImportanceScore).
		Msg("stored memory entry")
	return entry.ID, nil
}

func (s *Service) buildEntry(req core.StoreRequest, now time.Time) (*core.MemoryEntry, error) {
	if strings.TrimSpace(req.ConversationID) == "" {
		return nil, core.Invalid("conversation_id", "must not be empty")
	}
	if req.Content == "" {
		return nil, core.Invalid("content", "must not be empty")
	}
	// The bound is in characters, not bytes: multibyte content must not be
	// cut short
	if n := utf8.RuneCountInString(req.Content); n > s.cfg.MaxContentLen {
		return nil, &core.LimitExceeded{Field: "content", Max: s.cfg.MaxContentLen, Got: n}
	}
	if !req.ContextType.Valid() {
		return nil, core.Invalid("context_type", fmt.Sprintf("unknown value %q", req.ContextType))
	}
	switch req.Role {
	case "", core.RoleUser, core.RoleAssistant, core.RoleSystem:
	default:
		return nil, core.Invalid("role", fmt.Sprintf("unknown value %q", req.Role))
	}

	tags, err := normalizeTags(req.Tags, s.cfg.MaxTags)
	if err != nil {
		return nil, err
	}

	// Explicit score is taken verbatim, clamped; otherwise compute one
	score := 0.0
	if req.ImportanceScore != nil {
		score = Clamp(*req.ImportanceScore)
	} else {
		score = Score(req.Content, req.ContextType)
	}

	// A pre-assigned ID keeps retries of the same request idempotent:
	// the upsert re-puts the same row instead of minting a duplicate.
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	entry := &core.MemoryEntry{
		ID:              id,
		ConversationID:  req.ConversationID,
		SessionID:       req.SessionID,
		Role:            req.Role,
		Content:         req.Content,
		ContextType:     req.ContextType,
		ImportanceScore: score,
		Tags:            tags,
		Metadata:        req.Metadata,
		CreatedAt:       now,
	}

	if req.TTLSeconds != nil {
		if *req.TTLSeconds < 0 {
			return nil, core.Invalid("ttl_seconds", "must not be negative")
		}
		exp := now.Add(time.Duration(*req.TTLSeconds) * time.Second)
		entry.ExpiresAt = &exp
	}

	return entry, nil
}

func normalizeTags(raw []string, maxTags int) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return nil, core.Invalid("tags", "must not contain empty strings")
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	if len(tags) > maxTags {
		return nil, &core.LimitExceeded{Field: "tags", Max: maxTags, Got: len(tags)}
	}
	return tags, nil
}

func (s *Service) Relate(ctx context.Context, fromID, toID, relType string, strength *float64, metadata map[string]any) (*core.Relationship, error) {
	if fromID == toID {
		return nil, core.Invalid("relationship", "self-loop edges are not allowed")
	}
	if strings.TrimSpace(relType) == "" {
		return nil, core.Invalid("relationship_type", "must not be empty")
	}

	str := 0.5
	if strength != nil {
		if *strength < 0 || *strength > 1 {
			return nil, core.Invalid("strength", "must be within [0.0, 1.0]")
		}
		str = *strength
	}

	// Both endpoints must currently resolve; expired counts as missing
	now := time.Now().UTC()
	if _, err := s.entries.Get(ctx, fromID, now); err != nil {
		return nil, fmt.Errorf("from entry %s: %w", fromID, err)
	}
	if _, err := s.entries.Get(ctx, toID, now); err != nil {
		return nil, fmt.Errorf("to entry %s: %w", toID, err)
	}

	rel := core.Relationship{
		ID:        uuid.NewString(),
		FromID:    fromID,
		ToID:      toID,
		Type:      relType,
		Strength:  str,
		Metadata:  metadata,
		CreatedAt: now,
	}

	if err := s.rels.Put(ctx, rel); err != nil {
		return nil, err
	}
	if err := s.graph.AddEdge(rel); err != nil {
		return nil, err
	}

	log.FromCtx(ctx).Debug().
		Str("from", fromID).
		Str("to", toID).
		Str("type", relType).
		Float64("strength", str).
		Msg("related memory entries")
	return &rel, nil
}

func (s *Service) Retrieve(ctx context.Context, q core.Query) ([]core.MemoryEntry, error) {
	if strings.TrimSpace(q.ConversationID) == "" {
		return nil, core.Invalid("conversation_id", "must not be empty")
	}
	if q.ContextType != "" && !q.ContextType.Valid() {
		return nil, core.Invalid("context_type", fmt.Sprintf("unknown value %q", q.ContextType))
	}
	if q.HasMinScore && (q.MinImportance < 0 || q.MinImportance > 1) {
		return nil, core.Invalid("min_importance", "must be within [0.0, 1.0]")
	}
	switch q.TagMatch {
	case "", core.MatchAny, core.MatchAll:
	default:
		return nil, core.Invalid("tag_match", fmt.Sprintf("unknown value %q", q.TagMatch))
	}

	// Zero means "not supplied": apply the default. Explicit non-positive
	// limits are rejected at the transport boundary.
	if q.Limit < 0 {
		return nil, core.Invalid("limit", "must be positive")
	}
	if q.Limit == 0 {
		q.Limit = s.cfg.DefaultQueryLimit
	}
	if q.Limit > s.cfg.MaxQueryLimit {
		q.Limit = s.cfg.MaxQueryLimit
	}

	return s.engine.Query(ctx, q, time.Now().UTC())
}

// ListByType returns the most important live entries of one context type,
// across all conversations.
func (s *Service) ListByType(ctx context.Context, contextType core.ContextType, limit int) ([]core.MemoryEntry, error) {
	if !contextType.Valid() {
		return nil, core.Invalid("context_type", fmt.Sprintf("unknown value %q", contextType))
	}
	if limit <= 0 {
		limit = s.cfg.DefaultQueryLimit
	}
	if limit > s.cfg.MaxQueryLimit {
		limit = s.cfg.MaxQueryLimit
	}

	return s.entries.ListByContextType(ctx, contextType, limit, time.Now().UTC())
}

func (s *Service) Get(ctx context.Context, id string) (*core.MemoryEntry, error) {
	if id == "" {
		return nil, core.Invalid("entry_id", "must not be empty")
	}
	return s.entries.Get(ctx, id, time.Now().UTC())
}

// Related returns live neighbors of an entry ordered by edge strength,
// strongest first. Dangling edges are skipped.
func (s *Service) Related(ctx context.Context, id string, limit int) ([]core.MemoryEntry, error) {
	if id == "" {
		return nil, core.Invalid("entry_id", "must not be empty")
	}
	if limit <= 0 {
		limit = s.cfg.DefaultQueryLimit
	}
	if limit > s.cfg.MaxQueryLimit {
		limit = s.cfg.MaxQueryLimit
	}

	edges := s.graph.EdgesFrom(id, "")
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].Strength != edges[j].Strength {
			return edges[i].Strength > edges[j].Strength
		}
		return edges[i].ToID < edges[j].ToID
	})

	now := time.Now().UTC()
	result := make([]core.MemoryEntry, 0, limit)
	for _, edge := range edges {
		entry, err := s.entries.Get(ctx, edge.ToID, now)
		if err != nil {
			if core.IsStorage(err) {
				return nil, err
			}
			continue // dangling or expired endpoint
		}
		result = append(result, *entry)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

// Clear removes an entry together with its edges and index state. It is
// idempotent: clearing an unknown or already-cleared ID succeeds.
func (s *Service) Clear(ctx context.Context, id string) error {
	if id == "" {
		return core.Invalid("entry_id", "must not be empty")
	}

	if err := s.entries.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.rels.DeleteByEntry(ctx, id); err != nil {
		// The entry row is already gone; surface the partial failure so the
		// caller can retry the whole Clear.
		return err
	}
	s.graph.RemoveEntry(id)
	s.tags.RemoveEntry(id)

	log.FromCtx(ctx).Debug().Str("id", id).Msg("cleared memory entry")
	return nil
}

// ClearConversation drops every entry of a conversation. Entries that were
// already expired may leave edges behind; the sweeper reclaims those.
func (s *Service) ClearConversation(ctx context.Context, conversationID string) (int64, error) {
	if strings.TrimSpace(conversationID) == "" {
		return 0, core.Invalid("conversation_id", "must not be empty")
	}

	now := time.Now().UTC()
	entries, err := s.entries.ListByConversation(ctx, conversationID, "", now)
	if err != nil {
		return 0, err
	}

	n, err := s.entries.DeleteByConversation(ctx, conversationID)
	if err != nil {
		return 0, err
	}

	for i := range entries {
		id := entries[i].ID
		if err := s.rels.DeleteByEntry(ctx, id); err != nil {
			return n, err
		}
		s.graph.RemoveEntry(id)
		s.tags.RemoveEntry(id)
	}

	log.FromCtx(ctx).Info().
		Str("conversation", conversationID).
		Int64("deleted", n).
		Msg("cleared conversation")
	return n, nil
}

func (s *Service) Stats(ctx context.Context) (*core.Stats, error) {
	total, byType, err := s.entries.Count(ctx)
	if err != nil {
		return nil, err
	}
	rels, err := s.rels.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &core.Stats{
		Entries:       total,
		Relationships: rels,
		ByContextType: byType,
	}, nil
}
