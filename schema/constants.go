// Package schema has configs, models and shared constants for all parts of crtscope.
package schema

// Custom string types for type safety.
type (
	// Source identifies the origin of an activity signal. It is a closed
	// set: adding a source means adding a constant here plus an aggregator,
	// not dispatching on free-form strings.
	Source string

	// EdgeKind represents the relationship type of a graph edge.
	EdgeKind string

	// NodeKind represents the entity type of a graph node.
	NodeKind string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for the graph store.
	DatabaseBackend string
)

// All signal sources supported.
const (
	GitSource     Source = "git"
	SlackSource   Source = "slack"
	SupportSource Source = "support"
	DocSource     Source = "doc"
)

// AllSources returns every supported source in stable order.
var AllSources = []Source{GitSource, SlackSource, SupportSource, DocSource}

// ValidSources lists all valid sources.
var ValidSources = map[Source]struct{}{
	GitSource:     {},
	SlackSource:   {},
	SupportSource: {},
	DocSource:     {},
}

// All edge kinds traversed by the dependency impact walker.
const (
	DependsOnEdge EdgeKind = "depends_on" // component -> component
	DocumentsEdge EdgeKind = "documents"  // doc -> component
	ExposesEdge   EdgeKind = "exposes"    // component -> api
	ServesEdge    EdgeKind = "serves"     // component -> service
)

// ValidEdgeKinds lists all valid edge kinds.
var ValidEdgeKinds = map[EdgeKind]struct{}{
	DependsOnEdge: {},
	DocumentsEdge: {},
	ExposesEdge:   {},
	ServesEdge:    {},
}

// All node kinds stored in the graph.
const (
	ComponentNode NodeKind = "component"
	DocNode       NodeKind = "doc"
	ServiceNode   NodeKind = "service"
	APINode       NodeKind = "api"
	IssueNode     NodeKind = "issue"
	PRNode        NodeKind = "pr"
	ThreadNode    NodeKind = "thread"
)

// All output modes supported.
const (
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	CSVOut     OutputMode = "csv"
	ParquetOut OutputMode = "parquet"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut:    {},
	JSONOut:    {},
	CSVOut:     {},
	ParquetOut: {},
}

// All graph store backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// ValidDatabaseBackends lists all valid graph store backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// Default half-lives in hours for signal decay, per source. Slack chatter
// goes stale fast; doc issues linger.
var DefaultHalfLifeHours = map[Source]float64{
	GitSource:     72,
	SlackSource:   24,
	SupportSource: 48,
	DocSource:     168,
}

// DefaultSourceWeights returns the default severity weight map. Weights sum
// to 1 across all sources; the composer renormalizes over active sources at
// scoring time.
func DefaultSourceWeights() map[Source]float64 {
	return map[Source]float64{
		GitSource:     0.35,
		SlackSource:   0.30,
		SupportSource: 0.20,
		DocSource:     0.15,
	}
}

// Default thresholds for incident candidate promotion.
const (
	DefaultIncidentThreshold        = 6.0  // CRT severity, 0-10 scale
	DefaultDissatisfactionThreshold = 70.0 // dissatisfaction, 0-100 scale
	DefaultDriftMatchThreshold      = 0.75 // passage similarity cutoff
	DefaultImpactMaxDepth           = 2    // dependency walk hops
)
