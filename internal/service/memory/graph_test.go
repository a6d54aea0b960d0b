package memory

import (
	"fmt"
	"math"
	"testing"

	"github.com/sandevgo/recalld/internal/core"
)

func edge(from, to, relType string, strength float64) core.Relationship {
	return core.Relationship{
		ID:       fmt.Sprintf("%s-%s-%s", from, to, relType),
		FromID:   from,
		ToID:     to,
		Type:     relType,
		Strength: strength,
	}
}

func mustAdd(t *testing.T, g *Graph, e core.Relationship) {
	t.Helper()
	if err := g.AddEdge(e); err != nil {
		t.Fatalf("AddEdge(%s -> %s): %v", e.FromID, e.ToID, err)
	}
}

func TestGraph_AddEdgeValidation(t *testing.T) {
	g := NewGraph()

	if err := g.AddEdge(edge("a", "a", "references", 0.5)); err == nil {
		t.Error("expected self-loop to be rejected")
	}
	if err := g.AddEdge(edge("a", "b", "references", 1.5)); err == nil {
		t.Error("expected out-of-range strength to be rejected")
	}
	if err := g.AddEdge(edge("a", "b", "references", -0.1)); err == nil {
		t.Error("expected negative strength to be rejected")
	}
	if err := g.AddEdge(edge("a", "b", "references", 1.0)); err != nil {
		t.Errorf("expected boundary strength to be accepted: %v", err)
	}
}

func TestGraph_EdgesFromToWithTypeFilter(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, edge("a", "b", "references", 0.5))
	mustAdd(t, g, edge("a", "c", "leads_to", 0.7))
	mustAdd(t, g, edge("d", "a", "informs", 0.9))

	if got := g.EdgesFrom("a", ""); len(got) != 2 {
		t.Errorf("EdgesFrom(a) = %d edges, want 2", len(got))
	}
	if got := g.EdgesFrom("a", "leads_to"); len(got) != 1 || got[0].ToID != "c" {
		t.Errorf("EdgesFrom(a, leads_to) = %v, want single edge to c", got)
	}
	if got := g.EdgesTo("a", ""); len(got) != 1 || got[0].FromID != "d" {
		t.Errorf("EdgesTo(a) = %v, want single edge from d", got)
	}
	if got := g.EdgesFrom("unknown", ""); len(got) != 0 {
		t.Errorf("EdgesFrom(unknown) = %v, want empty", got)
	}
}

func TestGraph_UpsertReplacesStrength(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, edge("a", "b", "references", 0.3))
	mustAdd(t, g, edge("a", "b", "references", 0.8))

	got := g.EdgesFrom("a", "")
	if len(got) != 1 {
		t.Fatalf("expected 1 edge after upsert, got %d", len(got))
	}
	if got[0].Strength != 0.8 {
		t.Errorf("strength = %v, want 0.8", got[0].Strength)
	}
}

func TestGraph_Traverse(t *testing.T) {
	// a -> b (0.8) -> c (0.5); a -> c (0.2) direct
	g := NewGraph()
	mustAdd(t, g, edge("a", "b", "leads_to", 0.8))
	mustAdd(t, g, edge("b", "c", "leads_to", 0.5))
	mustAdd(t, g, edge("a", "c", "related_to", 0.2))

	got := g.Traverse("a", 3, "")
	if len(got) != 2 {
		t.Fatalf("reachable = %v, want b and c", got)
	}

	byID := make(map[string]Reachable)
	for _, r := range got {
		byID[r.ID] = r
	}

	if b := byID["b"]; b.Depth != 1 || math.Abs(b.Strength-0.8) > 1e-9 {
		t.Errorf("b = %+v, want depth 1 strength 0.8", b)
	}
	// Direct hop wins over the stronger two-hop path: shorter path first
	if c := byID["c"]; c.Depth != 1 || math.Abs(c.Strength-0.2) > 1e-9 {
		t.Errorf("c = %+v, want depth 1 strength 0.2", c)
	}
}

func TestGraph_TraverseMultiplicativeDecay(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, edge("a", "b", "leads_to", 0.8))
	mustAdd(t, g, edge("b", "c", "leads_to", 0.5))

	got := g.Traverse("a", 3, "")
	byID := make(map[string]Reachable)
	for _, r := range got {
		byID[r.ID] = r
	}

	if c := byID["c"]; math.Abs(c.Strength-0.4) > 1e-9 {
		t.Errorf("c strength = %v, want 0.8*0.5=0.4", c.Strength)
	}
}

func TestGraph_TraverseDepthBound(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, edge("a", "b", "leads_to", 1.0))
	mustAdd(t, g, edge("b", "c", "leads_to", 1.0))
	mustAdd(t, g, edge("c", "d", "leads_to", 1.0))

	if got := g.Traverse("a", 2, ""); len(got) != 2 {
		t.Errorf("depth 2 reachable = %v, want b and c only", got)
	}
	if got := g.Traverse("a", 0, ""); got != nil {
		t.Errorf("depth 0 reachable = %v, want nil", got)
	}
}

func TestGraph_TraverseCycle(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, edge("a", "b", "leads_to", 0.9))
	mustAdd(t, g, edge("b", "a", "leads_to", 0.9))

	got := g.Traverse("a", hardDepthCap+10, "")
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("cycle traversal = %v, want just b", got)
	}
}

func TestGraph_TraverseFromUnknownStart(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, edge("a", "b", "leads_to", 0.9))

	if got := g.Traverse("ghost", 3, ""); len(got) != 0 {
		t.Errorf("traverse from unknown start = %v, want empty", got)
	}
}

func TestGraph_TraverseDeterministicOrder(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, edge("a", "b", "leads_to", 0.5))
	mustAdd(t, g, edge("a", "c", "leads_to", 0.5))
	mustAdd(t, g, edge("a", "d", "leads_to", 0.5))

	first := g.Traverse("a", 1, "")
	for i := 0; i < 10; i++ {
		again := g.Traverse("a", 1, "")
		for j := range first {
			if again[j].ID != first[j].ID {
				t.Fatalf("order changed between runs: %v vs %v", first, again)
			}
		}
	}
}

func TestGraph_RemoveEntry(t *testing.T) {
	g := NewGraph()
	mustAdd(t, g, edge("a", "b", "leads_to", 0.5))
	mustAdd(t, g, edge("b", "c", "leads_to", 0.5))
	mustAdd(t, g, edge("c", "b", "informs", 0.5))

	g.RemoveEntry("b")

	if got := g.EdgesFrom("a", ""); len(got) != 0 {
		t.Errorf("a still has edges: %v", got)
	}
	if got := g.EdgesTo("c", ""); len(got) != 0 {
		t.Errorf("c still has inbound edges: %v", got)
	}
	if got := g.Traverse("a", 3, ""); len(got) != 0 {
		t.Errorf("traverse after removal = %v, want empty", got)
	}

	// Removing twice is harmless
	g.RemoveEntry("b")
}
