package schema

import "time"

// GraphNode is one entity in the dependency graph. IDs use a stable
// namespaced format (comp:*, doc:*, issue:*, pr:*, api:*, svc:*) shared
// across the signal, evidence and graph layers.
type GraphNode struct {
	ID   string   `json:"id"`
	Kind NodeKind `json:"kind"`
	Name string   `json:"name"`
	Team string   `json:"team,omitempty"`
}

// GraphEdge is one directed relationship in the dependency graph.
type GraphEdge struct {
	FromID string   `json:"from_id"`
	ToID   string   `json:"to_id"`
	Kind   EdgeKind `json:"kind"`
}

// Neighborhood lists the entities directly attached to a component.
type Neighborhood struct {
	ComponentID    string   `json:"component_id"`
	DocIDs         []string `json:"doc_ids"`
	IssueIDs       []string `json:"issue_ids"`
	PRIDs          []string `json:"pr_ids"`
	SlackThreadIDs []string `json:"slack_thread_ids"`
	APIEndpointIDs []string `json:"api_endpoint_ids"`
}

// APIImpact lists the entities reachable from an API endpoint.
type APIImpact struct {
	APIID      string   `json:"api_id"`
	ServiceIDs []string `json:"service_ids"`
	DocIDs     []string `json:"doc_ids"`
	IssueIDs   []string `json:"issue_ids"`
	PRIDs      []string `json:"pr_ids"`
}

// ImpactNode is one entity reached by the dependency impact walker,
// annotated with the hop count at which it was first discovered.
type ImpactNode struct {
	ID   string   `json:"id"`
	Kind NodeKind `json:"kind"`
	Name string   `json:"name,omitempty"`
	Hop  int      `json:"hop"`
}

// DependencyImpact is the blast radius computed for one root component.
// Nodes are deduplicated by ID: an entity reachable via two paths appears
// once, at its shallowest hop. A degraded result carries Reason and no
// nodes; a cancelled walk carries whatever was computed so far with Partial
// set.
type DependencyImpact struct {
	RootID               string       `json:"root_id"`
	MaxDepth             int          `json:"max_depth"`
	Components           []ImpactNode `json:"components"`
	Docs                 []ImpactNode `json:"docs"`
	Services             []ImpactNode `json:"services"`
	APIs                 []ImpactNode `json:"apis"`
	Edges                []GraphEdge  `json:"edges"`
	AffectedDocCount     int          `json:"affected_doc_count"`
	AffectedServiceCount int          `json:"affected_service_count"`
	Partial              bool         `json:"partial,omitempty"`
	Reason               string       `json:"reason,omitempty"`
}

// GraphStatus reports connectivity and volume information for the graph store.
type GraphStatus struct {
	Backend        string    `json:"backend"`
	Connected      bool      `json:"connected"`
	NodeCount      int       `json:"node_count"`
	EdgeCount      int       `json:"edge_count"`
	SignalCount    int       `json:"signal_count"`
	CandidateCount int       `json:"candidate_count"`
	LastSignalTime time.Time `json:"last_signal_time,omitzero"`
}

// RunRecord tracks one scoring run, for auditability of snapshots.
type RunRecord struct {
	RunID      int64          `json:"run_id"`
	StartTime  time.Time      `json:"start_time"`
	EndTime    *time.Time     `json:"end_time,omitempty"`
	Components int            `json:"components"`
	Params     map[string]any `json:"params,omitempty"`
}
