package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/threatmap/pkg/debug"
	"github.com/vanderheijden86/threatmap/pkg/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS nodes (
	ord INTEGER PRIMARY KEY,
	id TEXT NOT NULL UNIQUE,
	label TEXT NOT NULL DEFAULT '',
	short_label TEXT,
	category TEXT NOT NULL DEFAULT '',
	pagerank REAL NOT NULL DEFAULT 0,
	betweenness REAL NOT NULL DEFAULT 0,
	in_degree INTEGER NOT NULL DEFAULT 0,
	out_degree INTEGER NOT NULL DEFAULT 0,
	document_count INTEGER NOT NULL DEFAULT 0,
	citation_count INTEGER NOT NULL DEFAULT 0,
	citations TEXT
);
CREATE TABLE IF NOT EXISTS edges (
	ord INTEGER PRIMARY KEY,
	id TEXT NOT NULL,
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	weight REAL NOT NULL DEFAULT 0,
	raw_count INTEGER NOT NULL DEFAULT 0,
	citations TEXT,
	FOREIGN KEY (source) REFERENCES nodes(id),
	FOREIGN KEY (target) REFERENCES nodes(id)
);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source, weight DESC);
`

// SQLiteReader provides read access to a threatmap SQLite database
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -64000",  // 64MB cache
		"PRAGMA mmap_size = 268435456", // 256MB mmap
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("sqlite: %s: %v", pragma, err)
		}
	}

	return &SQLiteReader{db: db, path: source.Path}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load reads every node and edge in insertion order.
func (r *SQLiteReader) Load(ctx context.Context) ([]model.Node, []model.Edge, error) {
	nodes, err := r.loadNodes(ctx)
	if err != nil {
		return nil, nil, err
	}
	edges, err := r.loadEdges(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

func (r *SQLiteReader) loadNodes(ctx context.Context) ([]model.Node, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, label, short_label, category, pagerank, betweenness,
		       in_degree, out_degree, document_count, citation_count, citations
		FROM nodes ORDER BY ord`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []model.Node
	for rows.Next() {
		var n model.Node
		var shortLabel, citations sql.NullString
		var category string
		if err := rows.Scan(
			&n.ID, &n.Label, &shortLabel, &category,
			&n.Metrics.PageRank, &n.Metrics.Betweenness,
			&n.Metrics.InDegree, &n.Metrics.OutDegree,
			&n.DocumentCount, &n.CitationCount, &citations,
		); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.Category = model.Category(category)
		if shortLabel.Valid {
			n.ShortLabel = shortLabel.String
		}
		if citations.Valid && citations.String != "" && citations.String != "null" {
			if err := json.Unmarshal([]byte(citations.String), &n.Citations); err != nil {
				debug.Warn("sqlite: node %s: bad citations: %v", n.ID, err)
			}
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}
	return nodes, nil
}

func (r *SQLiteReader) loadEdges(ctx context.Context) ([]model.Edge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, target, weight, raw_count, citations
		FROM edges ORDER BY ord`)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var edges []model.Edge
	for rows.Next() {
		var e model.Edge
		var citations sql.NullString
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &e.Weight, &e.RawCount, &citations); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		if citations.Valid && citations.String != "" && citations.String != "null" {
			if err := json.Unmarshal([]byte(citations.String), &e.Citations); err != nil {
				debug.Warn("sqlite: edge %s: bad citations: %v", e.ID, err)
			}
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}
	return edges, nil
}

// WriteSQLite writes ds to a fresh database at path, replacing any file
// already there. Rows keep dataset order.
func WriteSQLite(ctx context.Context, path string, ds *model.Dataset) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	nodeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (id, label, short_label, category, pagerank, betweenness,
			in_degree, out_degree, document_count, citation_count, citations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare node insert: %w", err)
	}
	defer nodeStmt.Close()

	for _, n := range ds.Nodes {
		citations, err := marshalOrNull(n.Citations, len(n.Citations))
		if err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
		var shortLabel any
		if n.ShortLabel != "" {
			shortLabel = n.ShortLabel
		}
		if _, err := nodeStmt.ExecContext(ctx,
			n.ID, n.Label, shortLabel, string(n.Category),
			n.Metrics.PageRank, n.Metrics.Betweenness,
			n.Metrics.InDegree, n.Metrics.OutDegree,
			n.DocumentCount, n.CitationCount, citations,
		); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (id, source, target, weight, raw_count, citations)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()

	for _, e := range ds.Edges {
		citations, err := marshalOrNull(e.Citations, len(e.Citations))
		if err != nil {
			return fmt.Errorf("edge %s: %w", e.ID, err)
		}
		if _, err := edgeStmt.ExecContext(ctx,
			e.ID, e.Source, e.Target, e.Weight, e.RawCount, citations,
		); err != nil {
			return fmt.Errorf("insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func marshalOrNull(v any, n int) (any, error) {
	if n == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal citations: %w", err)
	}
	return string(b), nil
}
