package memory

import (
	"context"
	"sort"
	"time"

	"github.com/sandevgo/recalld/internal/core"
)

// relationshipFilterDepth is how far out from the anchor entry the
// relationship filter reaches.
const relationshipFilterDepth = 2

// Engine answers filtered, ranked queries by composing the entry table with
// the tag index and the relationship graph.
type Engine struct {
	entries  core.EntryRepository
	tags     *TagIndex
	graph    *Graph
	maxDepth int
}

func NewEngine(entries core.EntryRepository, tags *TagIndex, graph *Graph, maxDepth int) *Engine {
	if maxDepth <= 0 || maxDepth > hardDepthCap {
		maxDepth = hardDepthCap
	}
	return &Engine{
		entries:  entries,
		tags:     tags,
		graph:    graph,
		maxDepth: maxDepth,
	}
}

// Query expects q.Limit to be normalized (> 0) by the caller. An empty
// result is normal, not an error.
func (e *Engine) Query(ctx context.Context, q core.Query, now time.Time) ([]core.MemoryEntry, error) {
	// 1. Base candidate set, expired entries already excluded
	candidates, err := e.entries.ListByConversation(ctx, q.ConversationID, q.ContextType, now)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []core.MemoryEntry{}, nil
	}

	// 2. Tag filter
	if len(q.Tags) > 0 {
		match := q.TagMatch
		if match == "" {
			match = core.MatchAny
		}
		allowed := e.tags.EntriesForTags(q.Tags, match)
		candidates = keepIf(candidates, func(entry *core.MemoryEntry) bool {
			_, ok := allowed[entry.ID]
			return ok
		})
	}

	// 3. Importance floor
	if q.HasMinScore {
		candidates = keepIf(candidates, func(entry *core.MemoryEntry) bool {
			return entry.ImportanceScore >= q.MinImportance
		})
	}

	// 4. Relationship anchor
	if q.RelationshipFilter != "" {
		linked := e.linkedTo(q.RelationshipFilter)
		candidates = keepIf(candidates, func(entry *core.MemoryEntry) bool {
			_, ok := linked[entry.ID]
			return ok
		})
	}

	// 5. Deterministic ranking
	sortRanked(candidates)

	// 6. Truncate
	if len(candidates) > q.Limit {
		candidates = candidates[:q.Limit]
	}
	return candidates, nil
}

// linkedTo collects everything reachable from the anchor plus entries with a
// direct edge into it. Dangling IDs are harmless here: they simply will not
// match any live candidate.
func (e *Engine) linkedTo(anchor string) map[string]struct{} {
	depth := relationshipFilterDepth
	if depth > e.maxDepth {
		depth = e.maxDepth
	}

	linked := make(map[string]struct{})
	for _, r := range e.graph.Traverse(anchor, depth, "") {
		linked[r.ID] = struct{}{}
	}
	for _, edge := range e.graph.EdgesTo(anchor, "") {
		linked[edge.FromID] = struct{}{}
	}
	return linked
}

// sortRanked orders entries by importance desc, then recency desc, then ID
// asc so that identical queries always return the same order.
func sortRanked(entries []core.MemoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		if a.ImportanceScore != b.ImportanceScore {
			return a.ImportanceScore > b.ImportanceScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func keepIf(entries []core.MemoryEntry, keep func(*core.MemoryEntry) bool) []core.MemoryEntry {
	result := entries[:0]
	for i := range entries {
		if keep(&entries[i]) {
			result = append(result, entries[i])
		}
	}
	return result
}
