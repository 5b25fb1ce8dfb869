// Package snapshot persists scan facts and built graph views to a SQLite
// file and loads them back. Layout positions are never persisted.
package snapshot

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/ohler55/ojg/oj"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Harshit-Dhanwalkar/NexusView/internal/graph"
	"github.com/Harshit-Dhanwalkar/NexusView/internal/scan"
)

// View names used by Export.
const (
	ViewReference = "reference"
	ViewTag       = "tag"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	path     TEXT PRIMARY KEY,
	is_image INTEGER NOT NULL,
	refs     JSON
);

CREATE TABLE IF NOT EXISTS tags (
	path TEXT NOT NULL,
	tag  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS views (
	name  TEXT NOT NULL,
	kind  INTEGER NOT NULL,
	value TEXT NOT NULL,
	idx   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS view_edges (
	name TEXT NOT NULL,
	src  INTEGER NOT NULL,
	dst  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Writer performs a bulk snapshot write: prepared statements inside a
// transaction, committed in batches. Not safe for concurrent use.
type Writer struct {
	db        *sql.DB
	tx        *sql.Tx
	stmtFile  *sql.Stmt
	stmtTag   *sql.Stmt
	stmtNode  *sql.Stmt
	stmtEdge  *sql.Stmt
	stmtMeta  *sql.Stmt
	batchSize int
	count     int
}

// NewWriter opens (or creates) the snapshot database and prepares the bulk
// insert transaction.
func NewWriter(dbPath string) (*Writer, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Bulk insert tuning; durability does not matter for a fresh snapshot.
	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	// A snapshot write starts clean; re-exporting replaces, never appends.
	if _, err := db.Exec(`
		DELETE FROM files;
		DELETE FROM tags;
		DELETE FROM views;
		DELETE FROM view_edges;
		DELETE FROM meta;
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clear snapshot: %w", err)
	}

	w := &Writer{db: db, batchSize: 10000}
	if err := w.beginTx(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) beginTx() error {
	var err error
	w.tx, err = w.db.Begin()
	if err != nil {
		return err
	}

	prepare := func(q string) *sql.Stmt {
		if err != nil {
			return nil
		}
		var stmt *sql.Stmt
		stmt, err = w.tx.Prepare(q)
		return stmt
	}

	w.stmtFile = prepare(`INSERT OR REPLACE INTO files (path, is_image, refs) VALUES (?, ?, ?)`)
	w.stmtTag = prepare(`INSERT INTO tags (path, tag) VALUES (?, ?)`)
	w.stmtNode = prepare(`INSERT INTO views (name, kind, value, idx) VALUES (?, ?, ?, ?)`)
	w.stmtEdge = prepare(`INSERT INTO view_edges (name, src, dst) VALUES (?, ?, ?)`)
	w.stmtMeta = prepare(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`)
	return err
}

func (w *Writer) commitTx() error {
	for _, stmt := range []*sql.Stmt{w.stmtFile, w.stmtTag, w.stmtNode, w.stmtEdge, w.stmtMeta} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	return w.tx.Commit()
}

// bump counts one insert and cycles the transaction at the batch boundary.
func (w *Writer) bump() error {
	w.count++
	if w.count < w.batchSize {
		return nil
	}
	w.count = 0
	if err := w.commitTx(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return w.beginTx()
}

// WriteFacts writes every file, image and tag occurrence. Images go first in
// traversal order so their rowids preserve it; text files follow sorted.
func (w *Writer) WriteFacts(f *scan.Facts) error {
	for _, path := range f.Images {
		if err := w.insertFile(path, true, nil); err != nil {
			return err
		}
	}

	paths := make([]string, 0, len(f.Files))
	for path := range f.Files {
		if !f.IsImage(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	for _, path := range paths {
		if err := w.insertFile(path, false, f.Files[path]); err != nil {
			return err
		}
	}

	tagged := make([]string, 0, len(f.Tags))
	for path := range f.Tags {
		tagged = append(tagged, path)
	}
	sort.Strings(tagged)
	for _, path := range tagged {
		for _, tag := range f.Tags[path] {
			if _, err := w.stmtTag.Exec(path, tag); err != nil {
				return fmt.Errorf("insert tag %s %s: %w", path, tag, err)
			}
			if err := w.bump(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Writer) insertFile(path string, isImage bool, refs []string) error {
	var refsJSON any
	if len(refs) > 0 {
		data, err := oj.Marshal(refs)
		if err != nil {
			return fmt.Errorf("encode refs for %s: %w", path, err)
		}
		refsJSON = string(data)
	}
	img := 0
	if isImage {
		img = 1
	}
	if _, err := w.stmtFile.Exec(path, img, refsJSON); err != nil {
		return fmt.Errorf("insert file %s: %w", path, err)
	}
	return w.bump()
}

// WriteView writes a built view's node arena and edge list under a name.
func (w *Writer) WriteView(name string, v *graph.View) error {
	for i, n := range v.Nodes {
		if _, err := w.stmtNode.Exec(name, int(n.Kind), n.Name, i); err != nil {
			return fmt.Errorf("insert view node %s[%d]: %w", name, i, err)
		}
		if err := w.bump(); err != nil {
			return err
		}
	}
	for _, e := range v.Edges {
		if _, err := w.stmtEdge.Exec(name, e.From, e.To); err != nil {
			return fmt.Errorf("insert view edge %s %d->%d: %w", name, e.From, e.To, err)
		}
		if err := w.bump(); err != nil {
			return err
		}
	}
	return nil
}

// PutMeta stores one metadata key.
func (w *Writer) PutMeta(key, value string) error {
	if _, err := w.stmtMeta.Exec(key, value); err != nil {
		return fmt.Errorf("insert meta %s: %w", key, err)
	}
	return w.bump()
}

// Close commits the remaining batch, creates lookup indices and closes the
// database.
func (w *Writer) Close() error {
	if err := w.commitTx(); err != nil {
		_ = w.db.Close()
		return err
	}

	// Indices after the bulk load.
	if _, err := w.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tags_path ON tags(path);
		CREATE INDEX IF NOT EXISTS idx_views_name ON views(name, idx);
	`); err != nil {
		_ = w.db.Close()
		return fmt.Errorf("create indices: %w", err)
	}
	return w.db.Close()
}

// Export snapshots the facts plus both built views into dbPath.
func Export(dbPath, root string, facts *scan.Facts, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	w, err := NewWriter(dbPath)
	if err != nil {
		return err
	}

	if err := w.WriteFacts(facts); err != nil {
		_ = w.db.Close()
		return err
	}
	if err := w.WriteView(ViewReference, graph.BuildReference(facts)); err != nil {
		_ = w.db.Close()
		return err
	}
	if err := w.WriteView(ViewTag, graph.BuildTag(facts, graph.DefaultTagOptions())); err != nil {
		_ = w.db.Close()
		return err
	}

	st := facts.Stats()
	metas := [][2]string{
		{"root", root},
		{"created_at", time.Now().UTC().Format(time.RFC3339)},
		{"files", fmt.Sprint(st.Files)},
		{"images", fmt.Sprint(st.Images)},
		{"references", fmt.Sprint(st.References)},
		{"distinct_tags", fmt.Sprint(st.DistinctTags)},
	}
	for _, kv := range metas {
		if err := w.PutMeta(kv[0], kv[1]); err != nil {
			_ = w.db.Close()
			return err
		}
	}

	if err := w.Close(); err != nil {
		return err
	}
	logger.Info("Snapshot written",
		zap.String("path", dbPath),
		zap.Int("files", st.Files),
		zap.Int("images", st.Images),
	)
	return nil
}
