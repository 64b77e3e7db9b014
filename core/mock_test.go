package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/crtscope/crtscope/schema"
)

// fakeStore is an in-memory GraphStore used across the engine tests.
type fakeStore struct {
	components map[string]schema.Component
	nodes      map[string]schema.GraphNode
	edges      []schema.GraphEdge
	signals    map[string]schema.ActivitySignal
	candidates []schema.IncidentCandidate
	runs       int64

	// signalsErr, per source, forces SignalsForComponent to fail.
	signalsErr map[schema.Source]error
	// edgesErr forces EdgesFrom to fail for every node.
	edgesErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		components: map[string]schema.Component{},
		nodes:      map[string]schema.GraphNode{},
		signals:    map[string]schema.ActivitySignal{},
		signalsErr: map[schema.Source]error{},
	}
}

func (f *fakeStore) UpsertComponent(_ context.Context, c schema.Component) error {
	f.components[c.ID] = c
	return nil
}

func (f *fakeStore) UpsertNode(_ context.Context, n schema.GraphNode) error {
	f.nodes[n.ID] = n
	return nil
}

func (f *fakeStore) UpsertEdge(_ context.Context, e schema.GraphEdge) error {
	for _, existing := range f.edges {
		if existing == e {
			return nil
		}
	}
	f.edges = append(f.edges, e)
	return nil
}

func (f *fakeStore) UpsertSignal(_ context.Context, s schema.ActivitySignal) error {
	f.signals[s.ID] = s
	return nil
}

func (f *fakeStore) GetComponent(_ context.Context, componentID string) (schema.Component, error) {
	c, ok := f.components[componentID]
	if !ok {
		return schema.Component{}, fmt.Errorf("component not found: %s", componentID)
	}
	return c, nil
}

func (f *fakeStore) ListComponents(_ context.Context) ([]schema.Component, error) {
	out := make([]schema.Component, 0, len(f.components))
	for _, c := range f.components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) SignalsForComponent(_ context.Context, componentID string, source schema.Source, since time.Time) ([]schema.ActivitySignal, error) {
	if err := f.signalsErr[source]; err != nil {
		return nil, err
	}
	var out []schema.ActivitySignal
	for _, sig := range f.signals {
		if source != "" && sig.Source != source {
			continue
		}
		if sig.Timestamp.Before(since) {
			continue
		}
		for _, id := range sig.ComponentIDs {
			if id == componentID {
				out = append(out, sig)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *fakeStore) Neighborhood(_ context.Context, componentID string) (schema.Neighborhood, error) {
	nb := schema.Neighborhood{ComponentID: componentID}
	for _, e := range f.edges {
		if e.FromID != componentID && e.ToID != componentID {
			continue
		}
		other := e.ToID
		if other == componentID {
			other = e.FromID
		}
		switch schema.NodeKindForID(other) {
		case schema.DocNode:
			nb.DocIDs = append(nb.DocIDs, other)
		case schema.IssueNode:
			nb.IssueIDs = append(nb.IssueIDs, other)
		case schema.PRNode:
			nb.PRIDs = append(nb.PRIDs, other)
		case schema.ThreadNode:
			nb.SlackThreadIDs = append(nb.SlackThreadIDs, other)
		case schema.APINode:
			nb.APIEndpointIDs = append(nb.APIEndpointIDs, other)
		}
	}
	return nb, nil
}

func (f *fakeStore) APIImpact(_ context.Context, apiID string) (schema.APIImpact, error) {
	return schema.APIImpact{APIID: apiID}, nil
}

func (f *fakeStore) EdgesFrom(_ context.Context, nodeID string) ([]schema.GraphEdge, error) {
	if f.edgesErr != nil {
		return nil, f.edgesErr
	}
	var out []schema.GraphEdge
	for _, e := range f.edges {
		if e.FromID == nodeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetNode(_ context.Context, nodeID string) (schema.GraphNode, error) {
	n, ok := f.nodes[nodeID]
	if !ok {
		return schema.GraphNode{ID: nodeID, Kind: schema.NodeKindForID(nodeID)}, nil
	}
	return n, nil
}

func (f *fakeStore) BeginRun(_ context.Context, _ time.Time, _ map[string]any) (int64, error) {
	f.runs++
	return f.runs, nil
}

func (f *fakeStore) EndRun(_ context.Context, _ int64, _ time.Time, _ int) error {
	return nil
}

func (f *fakeStore) SaveCandidate(_ context.Context, c schema.IncidentCandidate) error {
	f.candidates = append(f.candidates, c)
	return nil
}

func (f *fakeStore) ListCandidates(_ context.Context, limit int) ([]schema.IncidentCandidate, error) {
	if limit <= 0 || limit > len(f.candidates) {
		limit = len(f.candidates)
	}
	out := make([]schema.IncidentCandidate, limit)
	copy(out, f.candidates[len(f.candidates)-limit:])
	return out, nil
}

func (f *fakeStore) Status(_ context.Context) (schema.GraphStatus, error) {
	return schema.GraphStatus{
		Backend:        "fake",
		Connected:      true,
		NodeCount:      len(f.nodes) + len(f.components),
		EdgeCount:      len(f.edges),
		SignalCount:    len(f.signals),
		CandidateCount: len(f.candidates),
	}, nil
}

func (f *fakeStore) Close() error { return nil }
