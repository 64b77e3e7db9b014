package graphstore

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/crtscope/crtscope/schema"
)

// Topology is the declarative description of the dependency graph, loaded
// from a YAML file. It seeds components, auxiliary nodes and edges; signals
// arrive separately through ingestion.
type Topology struct {
	Components []TopologyComponent `yaml:"components"`
	Nodes      []TopologyNode      `yaml:"nodes"`
	Edges      []TopologyEdge      `yaml:"edges"`
}

// TopologyComponent declares one scored component.
type TopologyComponent struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Team string `yaml:"team"`
}

// TopologyNode declares one non-component graph node (doc, service, api).
type TopologyNode struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
	Team string `yaml:"team"`
}

// TopologyEdge declares one directed relationship.
type TopologyEdge struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Kind string `yaml:"kind"`
}

// LoadTopology reads and validates a topology YAML file.
func LoadTopology(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file %q: %w", path, err)
	}

	var topo Topology
	if err := yaml.Unmarshal(data, &topo); err != nil {
		return nil, fmt.Errorf("failed to parse topology file %q: %w", path, err)
	}
	if err := topo.Validate(); err != nil {
		return nil, fmt.Errorf("invalid topology in %q: %w", path, err)
	}
	return &topo, nil
}

// Validate checks IDs, kinds and edge endpoints.
func (t *Topology) Validate() error {
	known := map[string]struct{}{}
	for i, c := range t.Components {
		if c.ID == "" {
			return fmt.Errorf("component %d has no id", i)
		}
		known[schema.ComponentID(c.ID)] = struct{}{}
	}
	for i, n := range t.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node %d has no id", i)
		}
		if kind := schema.NodeKindForID(n.ID); n.Kind != "" && n.Kind != string(kind) {
			return fmt.Errorf("node %s declares kind %q but its id prefix implies %q", n.ID, n.Kind, kind)
		}
		known[n.ID] = struct{}{}
	}
	for i, e := range t.Edges {
		if e.From == "" || e.To == "" {
			return fmt.Errorf("edge %d is missing an endpoint", i)
		}
		if _, ok := schema.ValidEdgeKinds[schema.EdgeKind(e.Kind)]; !ok {
			return fmt.Errorf("edge %d has unknown kind %q", i, e.Kind)
		}
	}
	return nil
}

// Apply upserts the topology into the graph store. Applying the same file
// twice is a no-op thanks to merge-by-ID semantics.
func (t *Topology) Apply(ctx context.Context, store *Store) error {
	for _, c := range t.Components {
		component := schema.Component{ID: schema.ComponentID(c.ID), Name: c.Name, Team: c.Team}
		if component.Name == "" {
			component.Name = c.ID
		}
		if err := store.UpsertComponent(ctx, component); err != nil {
			return err
		}
	}
	for _, n := range t.Nodes {
		node := schema.GraphNode{ID: n.ID, Kind: schema.NodeKindForID(n.ID), Name: n.Name, Team: n.Team}
		if err := store.UpsertNode(ctx, node); err != nil {
			return err
		}
	}
	for _, e := range t.Edges {
		edge := schema.GraphEdge{
			FromID: namespaceEndpoint(e.From),
			ToID:   namespaceEndpoint(e.To),
			Kind:   schema.EdgeKind(e.Kind),
		}
		if err := store.UpsertEdge(ctx, edge); err != nil {
			return err
		}
	}
	return nil
}

// namespaceEndpoint moves a bare edge endpoint into the comp: namespace;
// doc:/svc:/api: prefixed IDs pass through unchanged.
func namespaceEndpoint(id string) string {
	if schema.NodeKindForID(id) == schema.ComponentNode {
		return schema.ComponentID(id)
	}
	return id
}
