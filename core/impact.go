package core

import (
	"context"
	"fmt"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
)

// ImpactWalker computes the blast radius of a component by breadth-first
// traversal of the dependency graph. Reads only; it may run concurrently
// with ingestion writes and tolerates eventually-consistent graph state.
type ImpactWalker struct {
	store contract.GraphStore
}

// NewImpactWalker returns a walker over the given graph store.
func NewImpactWalker(store contract.GraphStore) *ImpactWalker {
	return &ImpactWalker{store: store}
}

// WalkImpact traverses outgoing edges from the root component up to maxDepth
// hops. Nodes are deduplicated by ID, not by path: an entity reachable twice
// appears once, at its shallowest hop. The visited set makes cyclic graphs
// terminate.
//
// Context cancellation aborts the walk and returns whatever was computed so
// far with Partial set. A graph store failure on the root returns a degraded
// result with an explicit Reason instead of an error.
func (w *ImpactWalker) WalkImpact(ctx context.Context, componentID string, maxDepth int) schema.DependencyImpact {
	if maxDepth <= 0 {
		maxDepth = schema.DefaultImpactMaxDepth
	}
	impact := schema.DependencyImpact{RootID: componentID, MaxDepth: maxDepth}

	type frontierNode struct {
		id  string
		hop int
	}
	visited := map[string]struct{}{componentID: {}}
	frontier := []frontierNode{{id: componentID, hop: 0}}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		if current.hop >= maxDepth {
			continue
		}

		select {
		case <-ctx.Done():
			impact.Partial = true
			impact.Reason = fmt.Sprintf("traversal cancelled at hop %d: %v", current.hop, ctx.Err())
			w.finalize(&impact)
			return impact
		default:
		}

		edges, err := w.store.EdgesFrom(ctx, current.id)
		if err != nil {
			if current.id == componentID {
				impact.Reason = "graph context unavailable"
				contract.LogWarn("impact walk degraded", &contract.GraphUnavailableError{Err: err})
				return impact
			}
			// A mid-walk failure degrades that branch only.
			impact.Partial = true
			impact.Reason = fmt.Sprintf("edges unavailable for %s", current.id)
			continue
		}

		for _, edge := range edges {
			if _, seen := visited[edge.ToID]; seen {
				continue
			}
			visited[edge.ToID] = struct{}{}
			impact.Edges = append(impact.Edges, edge)

			node := schema.ImpactNode{
				ID:   edge.ToID,
				Kind: schema.NodeKindForID(edge.ToID),
				Hop:  current.hop + 1,
			}
			if stored, err := w.store.GetNode(ctx, edge.ToID); err == nil && stored.Name != "" {
				node.Name = stored.Name
			}

			switch node.Kind {
			case schema.ComponentNode:
				impact.Components = append(impact.Components, node)
				frontier = append(frontier, frontierNode{id: node.ID, hop: node.Hop})
			case schema.DocNode:
				impact.Docs = append(impact.Docs, node)
			case schema.ServiceNode:
				impact.Services = append(impact.Services, node)
			case schema.APINode:
				impact.APIs = append(impact.APIs, node)
			default:
				// Issues, PRs and threads are evidence, not blast radius.
			}
		}
	}

	w.finalize(&impact)
	return impact
}

func (w *ImpactWalker) finalize(impact *schema.DependencyImpact) {
	impact.AffectedDocCount = len(impact.Docs)
	impact.AffectedServiceCount = len(impact.Services)
}

// SummarizeImpact renders a one-line dependency summary for incident output.
func SummarizeImpact(impact *schema.DependencyImpact) string {
	if impact.Reason != "" && len(impact.Components) == 0 && len(impact.Docs) == 0 {
		return impact.Reason
	}
	return fmt.Sprintf("%d dependent components, %d docs, %d services within %d hops",
		len(impact.Components), impact.AffectedDocCount, impact.AffectedServiceCount, impact.MaxDepth)
}
