package snapshot

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ohler55/ojg/oj"
	_ "modernc.org/sqlite"

	"github.com/Harshit-Dhanwalkar/NexusView/internal/graph"
	"github.com/Harshit-Dhanwalkar/NexusView/internal/scan"
)

// ViewData is a persisted view: the node arena in index order plus the edge
// list. It carries values only; consumers rebuild live views from the facts.
type ViewData struct {
	Nodes []graph.Node
	Edges []graph.Edge
}

// Snapshot is everything Load reads back from a snapshot database.
type Snapshot struct {
	Root    string
	Created time.Time
	Facts   *scan.Facts
	Views   map[string]ViewData
}

// Load reads a snapshot written by Export.
func Load(dbPath string) (*Snapshot, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	snap := &Snapshot{
		Facts: scan.NewFacts(),
		Views: make(map[string]ViewData),
	}

	if err := loadMeta(db, snap); err != nil {
		return nil, err
	}
	if err := loadFiles(db, snap.Facts); err != nil {
		return nil, err
	}
	if err := loadTags(db, snap.Facts); err != nil {
		return nil, err
	}
	if err := loadViews(db, snap.Views); err != nil {
		return nil, err
	}
	return snap, nil
}

func loadMeta(db *sql.DB, snap *Snapshot) error {
	rows, err := db.Query("SELECT key, value FROM meta")
	if err != nil {
		return fmt.Errorf("query meta: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan meta row: %w", err)
		}
		switch key {
		case "root":
			snap.Root = value
		case "created_at":
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return fmt.Errorf("parse created_at: %w", err)
			}
			snap.Created = t
		}
	}
	return rows.Err()
}

func loadFiles(db *sql.DB, facts *scan.Facts) error {
	// rowid order restores image traversal order.
	rows, err := db.Query("SELECT path, is_image, refs FROM files ORDER BY rowid")
	if err != nil {
		return fmt.Errorf("query files: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var (
			path    string
			isImage int
			raw     sql.NullString
		)
		if err := rows.Scan(&path, &isImage, &raw); err != nil {
			return fmt.Errorf("scan file row: %w", err)
		}

		var refs []string
		if raw.Valid {
			if err := oj.Unmarshal([]byte(raw.String), &refs); err != nil {
				return fmt.Errorf("parse refs for %s: %w", path, err)
			}
		}
		facts.Files[path] = refs
		if isImage == 1 {
			facts.Images = append(facts.Images, path)
		}
	}
	return rows.Err()
}

func loadTags(db *sql.DB, facts *scan.Facts) error {
	// rowid order restores per-file tag occurrence order.
	rows, err := db.Query("SELECT path, tag FROM tags ORDER BY rowid")
	if err != nil {
		return fmt.Errorf("query tags: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var path, tag string
		if err := rows.Scan(&path, &tag); err != nil {
			return fmt.Errorf("scan tag row: %w", err)
		}
		facts.Tags[path] = append(facts.Tags[path], tag)
	}
	return rows.Err()
}

func loadViews(db *sql.DB, views map[string]ViewData) error {
	rows, err := db.Query("SELECT name, kind, value FROM views ORDER BY name, idx")
	if err != nil {
		return fmt.Errorf("query views: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var (
			name  string
			kind  int
			value string
		)
		if err := rows.Scan(&name, &kind, &value); err != nil {
			return fmt.Errorf("scan view row: %w", err)
		}
		v := views[name]
		v.Nodes = append(v.Nodes, graph.Node{Kind: graph.NodeKind(kind), Name: value})
		views[name] = v
	}
	if err := rows.Err(); err != nil {
		return err
	}

	edges, err := db.Query("SELECT name, src, dst FROM view_edges ORDER BY rowid")
	if err != nil {
		return fmt.Errorf("query view edges: %w", err)
	}
	defer func() { _ = edges.Close() }() // safe to ignore

	for edges.Next() {
		var (
			name     string
			src, dst int
		)
		if err := edges.Scan(&name, &src, &dst); err != nil {
			return fmt.Errorf("scan view edge row: %w", err)
		}
		v := views[name]
		v.Edges = append(v.Edges, graph.Edge{From: src, To: dst})
		views[name] = v
	}
	return edges.Err()
}
