// Package graphstore persists the dependency graph, normalized signals and
// incident candidate snapshots across SQLite, MySQL and PostgreSQL backends.
package graphstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
)

// Table names for graph storage.
const (
	nodesTable            = "crtscope_nodes"
	edgesTable            = "crtscope_edges"
	signalsTable          = "crtscope_signals"
	signalComponentsTable = "crtscope_signal_components"
	runsTable             = "crtscope_runs"
	candidatesTable       = "crtscope_candidates"
)

// Store implements the GraphStore contract over a SQL database.
type Store struct {
	db         *sql.DB
	backend    schema.DatabaseBackend
	driverName string
	connStr    string
}

var _ contract.GraphStore = &Store{} // Compile-time check

// New initializes a graph store for the given backend. The NoneBackend
// returns a no-op store whose writes succeed silently and whose reads come
// back empty, for runs that only need in-memory scoring.
func New(backend schema.DatabaseBackend, connStr string) (*Store, error) {
	var db *sql.DB
	var err error
	var driverName string

	switch backend {
	case schema.SQLiteBackend:
		driverName = "sqlite"
		dbPath := connStr
		if dbPath == "" {
			dbPath = contract.GetGraphDBFilePath()
		}
		db, err = sql.Open(driverName, dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite graph store at %q: %w. Check that the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		driverName = "mysql"
		db, err = sql.Open(driverName, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open MySQL graph store: %w. Check connection string format: user:password@tcp(host:port)/dbname", err)
		}

	case schema.PostgreSQLBackend:
		driverName = "pgx"
		db, err = sql.Open(driverName, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL graph store: %w. Check connection string format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}

	case schema.NoneBackend:
		return &Store{backend: backend, connStr: connStr}, nil

	default:
		return nil, fmt.Errorf("unsupported graph backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w. Check that the server is running and connection parameters are valid", backend, err)
	}

	if err := createGraphTables(db, backend); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, backend: backend, driverName: driverName, connStr: connStr}, nil
}

// createGraphTables creates the graph schema if it does not exist yet.
func createGraphTables(db *sql.DB, backend schema.DatabaseBackend) error {
	for _, query := range createTableQueries(backend) {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create graph tables: %w", err)
		}
	}
	return nil
}

func createTableQueries(backend schema.DatabaseBackend) []string {
	// Key columns are VARCHAR(255) so MySQL can index them; timestamps are
	// unix nanos so range scans behave the same on every backend.
	keyType := "TEXT"
	payloadType := "TEXT"
	autoPK := "INTEGER PRIMARY KEY AUTOINCREMENT"
	switch backend {
	case schema.MySQLBackend:
		keyType = "VARCHAR(255)"
		payloadType = "MEDIUMTEXT"
		autoPK = "BIGINT AUTO_INCREMENT PRIMARY KEY"
	case schema.PostgreSQLBackend:
		autoPK = "BIGSERIAL PRIMARY KEY"
	}

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			node_id %s PRIMARY KEY,
			kind %s NOT NULL,
			name %s,
			team %s
		);`, quoteTableName(nodesTable, backend), keyType, keyType, keyType, keyType),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			from_id %s NOT NULL,
			to_id %s NOT NULL,
			kind %s NOT NULL,
			PRIMARY KEY (from_id, to_id, kind)
		);`, quoteTableName(edgesTable, backend), keyType, keyType, keyType),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			signal_id %s PRIMARY KEY,
			source %s NOT NULL,
			ts_unix BIGINT NOT NULL,
			payload %s NOT NULL
		);`, quoteTableName(signalsTable, backend), keyType, keyType, payloadType),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			signal_id %s NOT NULL,
			component_id %s NOT NULL,
			PRIMARY KEY (signal_id, component_id)
		);`, quoteTableName(signalComponentsTable, backend), keyType, keyType),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id %s,
			start_unix BIGINT NOT NULL,
			end_unix BIGINT,
			components INT,
			params %s
		);`, quoteTableName(runsTable, backend), autoPK, payloadType),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			snapshot_id %s PRIMARY KEY,
			component_id %s NOT NULL,
			created_unix BIGINT NOT NULL,
			payload %s NOT NULL
		);`, quoteTableName(candidatesTable, backend), keyType, keyType, payloadType),
	}
}

// quoteTableName quotes a table identifier for the backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	if backend == schema.MySQLBackend {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

// bind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) bind(query string) string {
	if s.backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) table(name string) string {
	return quoteTableName(name, s.backend)
}

func (s *Store) disabled() bool {
	return s.backend == schema.NoneBackend || s.db == nil
}

// upsert builds the backend-specific merge-by-key statement.
func (s *Store) upsert(table string, columns []string, keyColumns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	nonKeys := make([]string, 0, len(columns))
	for _, col := range columns {
		isKey := false
		for _, key := range keyColumns {
			if col == key {
				isKey = true
				break
			}
		}
		if !isKey {
			nonKeys = append(nonKeys, col)
		}
	}

	switch s.backend {
	case schema.MySQLBackend:
		assignments := make([]string, len(nonKeys))
		for i, col := range nonKeys {
			assignments[i] = fmt.Sprintf("%s = new.%s", col, col)
		}
		if len(assignments) == 0 {
			// Pure-key rows degrade to a no-op update on conflict.
			assignments = []string{fmt.Sprintf("%s = new.%s", keyColumns[0], keyColumns[0])}
		}
		return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) AS new ON DUPLICATE KEY UPDATE %s`,
			s.table(table), strings.Join(columns, ", "), placeholders, strings.Join(assignments, ", "))

	default: // SQLite and PostgreSQL share ON CONFLICT
		if len(nonKeys) == 0 {
			return s.bind(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING`,
				s.table(table), strings.Join(columns, ", "), placeholders, strings.Join(keyColumns, ", ")))
		}
		assignments := make([]string, len(nonKeys))
		for i, col := range nonKeys {
			assignments[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
		}
		return s.bind(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s`,
			s.table(table), strings.Join(columns, ", "), placeholders, strings.Join(keyColumns, ", "), strings.Join(assignments, ", ")))
	}
}

// UpsertComponent merges a component node by ID.
func (s *Store) UpsertComponent(ctx context.Context, c schema.Component) error {
	return s.UpsertNode(ctx, schema.GraphNode{
		ID:   c.ID,
		Kind: schema.ComponentNode,
		Name: c.Name,
		Team: c.Team,
	})
}

// UpsertNode merges an arbitrary graph node by ID.
func (s *Store) UpsertNode(ctx context.Context, n schema.GraphNode) error {
	if s.disabled() {
		return nil
	}
	query := s.upsert(nodesTable, []string{"node_id", "kind", "name", "team"}, []string{"node_id"})
	_, err := s.db.ExecContext(ctx, query, n.ID, string(n.Kind), n.Name, n.Team)
	if err != nil {
		return fmt.Errorf("failed to upsert node %s: %w", n.ID, err)
	}
	return nil
}

// UpsertEdge merges a directed edge by (from, to, kind).
func (s *Store) UpsertEdge(ctx context.Context, e schema.GraphEdge) error {
	if s.disabled() {
		return nil
	}
	query := s.upsert(edgesTable, []string{"from_id", "to_id", "kind"}, []string{"from_id", "to_id", "kind"})
	_, err := s.db.ExecContext(ctx, query, e.FromID, e.ToID, string(e.Kind))
	if err != nil {
		return fmt.Errorf("failed to upsert edge %s->%s: %w", e.FromID, e.ToID, err)
	}
	return nil
}

// UpsertSignal merges a normalized signal by ID and links it to its
// components. Re-ingesting the same signal overwrites, never duplicates.
func (s *Store) UpsertSignal(ctx context.Context, sig schema.ActivitySignal) error {
	if s.disabled() {
		return nil
	}
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal signal %s: %w", sig.ID, err)
	}

	query := s.upsert(signalsTable, []string{"signal_id", "source", "ts_unix", "payload"}, []string{"signal_id"})
	if _, err := s.db.ExecContext(ctx, query, sig.ID, string(sig.Source), sig.Timestamp.UnixNano(), string(payload)); err != nil {
		return fmt.Errorf("failed to upsert signal %s: %w", sig.ID, err)
	}

	linkQuery := s.upsert(signalComponentsTable, []string{"signal_id", "component_id"}, []string{"signal_id", "component_id"})
	for _, componentID := range sig.ComponentIDs {
		if _, err := s.db.ExecContext(ctx, linkQuery, sig.ID, componentID); err != nil {
			return fmt.Errorf("failed to link signal %s to %s: %w", sig.ID, componentID, err)
		}
	}
	return nil
}

// GetComponent returns the component node for a comp: ID.
func (s *Store) GetComponent(ctx context.Context, componentID string) (schema.Component, error) {
	if s.disabled() {
		return schema.Component{}, fmt.Errorf("graph store is disabled (backend none)")
	}
	query := s.bind(fmt.Sprintf(`SELECT node_id, name, team FROM %s WHERE node_id = ? AND kind = ?`, s.table(nodesTable)))
	row := s.db.QueryRowContext(ctx, query, componentID, string(schema.ComponentNode))

	var c schema.Component
	var name, team sql.NullString
	if err := row.Scan(&c.ID, &name, &team); err != nil {
		return schema.Component{}, fmt.Errorf("component %s: %w", componentID, err)
	}
	c.Name = name.String
	c.Team = team.String
	return c, nil
}

// ListComponents returns all component nodes ordered by ID.
func (s *Store) ListComponents(ctx context.Context) ([]schema.Component, error) {
	if s.disabled() {
		return nil, nil
	}
	query := s.bind(fmt.Sprintf(`SELECT node_id, name, team FROM %s WHERE kind = ? ORDER BY node_id`, s.table(nodesTable)))
	rows, err := s.db.QueryContext(ctx, query, string(schema.ComponentNode))
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var components []schema.Component
	for rows.Next() {
		var c schema.Component
		var name, team sql.NullString
		if err := rows.Scan(&c.ID, &name, &team); err != nil {
			return nil, err
		}
		c.Name = name.String
		c.Team = team.String
		components = append(components, c)
	}
	return components, rows.Err()
}

// SignalsForComponent returns all signals linked to a component with
// timestamp >= since, for one optional source ("" means all sources).
func (s *Store) SignalsForComponent(ctx context.Context, componentID string, source schema.Source, since time.Time) ([]schema.ActivitySignal, error) {
	if s.disabled() {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT sig.payload FROM %s sig
		JOIN %s link ON link.signal_id = sig.signal_id
		WHERE link.component_id = ? AND sig.ts_unix >= ?`,
		s.table(signalsTable), s.table(signalComponentsTable))
	args := []any{componentID, since.UnixNano()}
	if source != "" {
		query += " AND sig.source = ?"
		args = append(args, string(source))
	}
	query += " ORDER BY sig.ts_unix"

	rows, err := s.db.QueryContext(ctx, s.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals for %s: %w", componentID, err)
	}
	defer func() { _ = rows.Close() }()

	var signals []schema.ActivitySignal
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var sig schema.ActivitySignal
		if err := json.Unmarshal([]byte(payload), &sig); err != nil {
			return nil, fmt.Errorf("corrupt signal payload: %w", err)
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// Neighborhood returns the entities directly attached to a component,
// bucketed by their ID namespace.
func (s *Store) Neighborhood(ctx context.Context, componentID string) (schema.Neighborhood, error) {
	nb := schema.Neighborhood{ComponentID: componentID}
	if s.disabled() {
		return nb, nil
	}
	query := s.bind(fmt.Sprintf(`SELECT from_id, to_id FROM %s WHERE from_id = ? OR to_id = ?`, s.table(edgesTable)))
	rows, err := s.db.QueryContext(ctx, query, componentID, componentID)
	if err != nil {
		return nb, fmt.Errorf("failed to query neighborhood for %s: %w", componentID, err)
	}
	defer func() { _ = rows.Close() }()

	seen := map[string]struct{}{}
	for rows.Next() {
		var fromID, toID string
		if err := rows.Scan(&fromID, &toID); err != nil {
			return nb, err
		}
		other := toID
		if other == componentID {
			other = fromID
		}
		if _, dup := seen[other]; dup {
			continue
		}
		seen[other] = struct{}{}

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
	return nb, rows.Err()
}

// APIImpact returns the entities reachable from an API endpoint.
func (s *Store) APIImpact(ctx context.Context, apiID string) (schema.APIImpact, error) {
	impact := schema.APIImpact{APIID: apiID}
	if s.disabled() {
		return impact, nil
	}
	query := s.bind(fmt.Sprintf(`SELECT from_id, to_id FROM %s WHERE from_id = ? OR to_id = ?`, s.table(edgesTable)))
	rows, err := s.db.QueryContext(ctx, query, apiID, apiID)
	if err != nil {
		return impact, fmt.Errorf("failed to query API impact for %s: %w", apiID, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var fromID, toID string
		if err := rows.Scan(&fromID, &toID); err != nil {
			return impact, err
		}
		other := toID
		if other == apiID {
			other = fromID
		}
		switch schema.NodeKindForID(other) {
		case schema.ServiceNode:
			impact.ServiceIDs = append(impact.ServiceIDs, other)
		case schema.DocNode:
			impact.DocIDs = append(impact.DocIDs, other)
		case schema.IssueNode:
			impact.IssueIDs = append(impact.IssueIDs, other)
		case schema.PRNode:
			impact.PRIDs = append(impact.PRIDs, other)
		}
	}
	return impact, rows.Err()
}

// EdgesFrom returns all outgoing edges of a node, for BFS traversal.
func (s *Store) EdgesFrom(ctx context.Context, nodeID string) ([]schema.GraphEdge, error) {
	if s.disabled() {
		return nil, nil
	}
	query := s.bind(fmt.Sprintf(`SELECT from_id, to_id, kind FROM %s WHERE from_id = ? ORDER BY to_id`, s.table(edgesTable)))
	rows, err := s.db.QueryContext(ctx, query, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges from %s: %w", nodeID, err)
	}
	defer func() { _ = rows.Close() }()

	var edges []schema.GraphEdge
	for rows.Next() {
		var e schema.GraphEdge
		var kind string
		if err := rows.Scan(&e.FromID, &e.ToID, &kind); err != nil {
			return nil, err
		}
		e.Kind = schema.EdgeKind(kind)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// GetNode returns a node by ID. An unknown ID yields a bare node with its
// kind inferred from the ID namespace, not an error.
func (s *Store) GetNode(ctx context.Context, nodeID string) (schema.GraphNode, error) {
	fallback := schema.GraphNode{ID: nodeID, Kind: schema.NodeKindForID(nodeID)}
	if s.disabled() {
		return fallback, nil
	}
	query := s.bind(fmt.Sprintf(`SELECT node_id, kind, name, team FROM %s WHERE node_id = ?`, s.table(nodesTable)))
	row := s.db.QueryRowContext(ctx, query, nodeID)

	var n schema.GraphNode
	var kind string
	var name, team sql.NullString
	if err := row.Scan(&n.ID, &kind, &name, &team); err != nil {
		if err == sql.ErrNoRows {
			return fallback, nil
		}
		return fallback, err
	}
	n.Kind = schema.NodeKind(kind)
	n.Name = name.String
	n.Team = team.String
	return n, nil
}

// BeginRun records the start of a scoring run and returns its ID.
func (s *Store) BeginRun(ctx context.Context, start time.Time, params map[string]any) (int64, error) {
	if s.disabled() {
		return 0, nil
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal run params: %w", err)
	}

	var runID int64
	switch s.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_unix, params) VALUES ($1, $2) RETURNING run_id`, s.table(runsTable))
		err = s.db.QueryRowContext(ctx, query, start.UnixNano(), string(paramsJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_unix, params) VALUES (?, ?)`, s.table(runsTable))
		var result sql.Result
		result, err = s.db.ExecContext(ctx, query, start.UnixNano(), string(paramsJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// EndRun records the completion of a scoring run.
func (s *Store) EndRun(ctx context.Context, runID int64, end time.Time, components int) error {
	if s.disabled() {
		return nil
	}
	query := s.bind(fmt.Sprintf(`UPDATE %s SET end_unix = ?, components = ? WHERE run_id = ?`, s.table(runsTable)))
	if _, err := s.db.ExecContext(ctx, query, end.UnixNano(), components, runID); err != nil {
		return fmt.Errorf("failed to end run %d: %w", runID, err)
	}
	return nil
}

// SaveCandidate appends an immutable incident candidate snapshot. Snapshots
// are insert-only; the engine never updates or deletes them.
func (s *Store) SaveCandidate(ctx context.Context, c schema.IncidentCandidate) error {
	if s.disabled() {
		return nil
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate %s: %w", c.SnapshotID, err)
	}
	query := s.bind(fmt.Sprintf(`INSERT INTO %s (snapshot_id, component_id, created_unix, payload) VALUES (?, ?, ?, ?)`,
		s.table(candidatesTable)))
	if _, err := s.db.ExecContext(ctx, query, c.SnapshotID, c.ComponentID, c.CreatedAt.UnixNano(), string(payload)); err != nil {
		return fmt.Errorf("failed to save candidate %s: %w", c.SnapshotID, err)
	}
	return nil
}

// ListCandidates returns the most recent candidate snapshots, newest first.
func (s *Store) ListCandidates(ctx context.Context, limit int) ([]schema.IncidentCandidate, error) {
	if s.disabled() {
		return nil, nil
	}
	if limit <= 0 {
		limit = contract.DefaultResultLimit
	}
	query := s.bind(fmt.Sprintf(`SELECT payload FROM %s ORDER BY created_unix DESC LIMIT %d`,
		s.table(candidatesTable), limit))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []schema.IncidentCandidate
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var c schema.IncidentCandidate
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, fmt.Errorf("corrupt candidate payload: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// Status returns connectivity and volume information.
func (s *Store) Status(ctx context.Context) (schema.GraphStatus, error) {
	status := schema.GraphStatus{
		Backend:   string(s.backend),
		Connected: s.db != nil,
	}
	if s.disabled() {
		return status, nil
	}

	counts := []struct {
		table string
		dest  *int
	}{
		{nodesTable, &status.NodeCount},
		{edgesTable, &status.EdgeCount},
		{signalsTable, &status.SignalCount},
		{candidatesTable, &status.CandidateCount},
	}
	for _, c := range counts {
		row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table(c.table)))
		if err := row.Scan(c.dest); err != nil {
			return status, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	if status.SignalCount > 0 {
		row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT MAX(ts_unix) FROM %s", s.table(signalsTable)))
		var lastNanos int64
		if err := row.Scan(&lastNanos); err == nil {
			status.LastSignalTime = time.Unix(0, lastNanos).UTC()
		}
	}
	return status, nil
}

// Close closes the underlying DB connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
