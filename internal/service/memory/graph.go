package memory

import (
	"sync"

	"github.com/sandevgo/recalld/internal/core"
)

// hardDepthCap bounds traversal work even if callers ask for more.
const hardDepthCap = 16

// Graph holds the directed relationship edges in memory, mirroring the
// relationships table. Edges are kept in insertion order per node so that
// traversal tie-breaks are deterministic.
type Graph struct {
	mu  sync.RWMutex
	out map[string][]core.Relationship
	in  map[string][]core.Relationship
}

func NewGraph() *Graph {
	return &Graph{
		out: make(map[string][]core.Relationship),
		in:  make(map[string][]core.Relationship),
	}
}

// AddEdge validates and records a directed edge. An edge with the same
// (from, to, type) replaces the previous one, matching the table upsert.
func (g *Graph) AddEdge(rel core.Relationship) error {
	if rel.FromID == rel.ToID {
		return core.Invalid("relationship", "self-loop edges are not allowed")
	}
	if rel.Strength < 0 || rel.Strength > 1 {
		return core.Invalid("strength", "must be within [0.0, 1.0]")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.out[rel.FromID] = upsertEdge(g.out[rel.FromID], rel)
	g.in[rel.ToID] = upsertEdge(g.in[rel.ToID], rel)
	return nil
}

func upsertEdge(edges []core.Relationship, rel core.Relationship) []core.Relationship {
	for i, e := range edges {
		if e.FromID == rel.FromID && e.ToID == rel.ToID && e.Type == rel.Type {
			edges[i] = rel
			return edges
		}
	}
	return append(edges, rel)
}

func (g *Graph) EdgesFrom(id string, typeFilter string) []core.Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return filterEdges(g.out[id], typeFilter)
}

func (g *Graph) EdgesTo(id string, typeFilter string) []core.Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return filterEdges(g.in[id], typeFilter)
}

func filterEdges(edges []core.Relationship, typeFilter string) []core.Relationship {
	result := make([]core.Relationship, 0, len(edges))
	for _, e := range edges {
		if typeFilter == "" || e.Type == typeFilter {
			result = append(result, e)
		}
	}
	return result
}

// RemoveEntry drops every edge touching the given entry, both directions.
func (g *Graph) RemoveEntry(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, e := range g.out[id] {
		g.in[e.ToID] = dropEdgesWith(g.in[e.ToID], id)
	}
	for _, e := range g.in[id] {
		g.out[e.FromID] = dropEdgesWith(g.out[e.FromID], id)
	}
	delete(g.out, id)
	delete(g.in, id)
}

func dropEdgesWith(edges []core.Relationship, id string) []core.Relationship {
	result := edges[:0]
	for _, e := range edges {
		if e.FromID != id && e.ToID != id {
			result = append(result, e)
		}
	}
	return result
}

// Reachable is one node found by Traverse. Strength is the product of edge
// strengths along the path, so longer or weaker chains score lower.
type Reachable struct {
	ID       string
	Strength float64
	Depth    int
}

// Traverse walks breadth-first from start up to maxDepth hops. The start
// node itself is not part of the result. A start with no outgoing edges
// yields an empty sequence. First visit wins: BFS order guarantees the
// shortest path, and per-node insertion order breaks remaining ties.
func (g *Graph) Traverse(start string, maxDepth int, typeFilter string) []Reachable {
	if maxDepth <= 0 {
		return nil
	}
	if maxDepth > hardDepthCap {
		maxDepth = hardDepthCap
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]struct{}{start: {}}
	var result []Reachable

	type frontierNode struct {
		id       string
		strength float64
	}
	frontier := []frontierNode{{id: start, strength: 1.0}}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []frontierNode
		for _, node := range frontier {
			for _, e := range g.out[node.id] {
				if typeFilter != "" && e.Type != typeFilter {
					continue
				}
				if _, seen := visited[e.ToID]; seen {
					continue
				}
				visited[e.ToID] = struct{}{}

				r := Reachable{
					ID:       e.ToID,
					Strength: node.strength * e.Strength,
					Depth:    depth,
				}
				result = append(result, r)
				next = append(next, frontierNode{id: r.ID, strength: r.Strength})
			}
		}
		frontier = next
	}

	return result
}
