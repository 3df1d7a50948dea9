package featurecache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS feature_vectors (
	content_hash TEXT NOT NULL,
	signature    TEXT NOT NULL,
	source_path  TEXT NOT NULL,
	vector_json  TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	PRIMARY KEY (content_hash, signature)
)`

// Cache stores extracted feature vectors keyed by file content hash and
// extractor signature, so unchanged files are not re-analysed and a change
// of analysis parameters never serves stale vectors.
type Cache struct {
	db     *sql.DB
	path   string
	logger logging.Logger
}

// Open creates or opens the cache database at path
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create feature cache schema: %w", err)
	}

	return &Cache{
		db:   db,
		path: path,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_cache",
			"path":      path,
		}),
	}, nil
}

// Close closes the underlying database connection
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached vector for hash under signature
func (c *Cache) Get(ctx context.Context, hash, signature string) ([]float64, bool, error) {
	var raw string
	err := c.db.QueryRowContext(ctx,
		`SELECT vector_json FROM feature_vectors WHERE content_hash = ? AND signature = ?`,
		hash, signature,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query feature cache: %w", err)
	}

	var vector []float64
	if err := json.Unmarshal([]byte(raw), &vector); err != nil {
		return nil, false, fmt.Errorf("decode cached vector for %s: %w", hash, err)
	}
	return vector, true, nil
}

// Put stores vector for hash under signature, replacing any previous entry
func (c *Cache) Put(ctx context.Context, hash, signature, sourcePath string, vector []float64) error {
	raw, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("encode vector for %s: %w", sourcePath, err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO feature_vectors (content_hash, signature, source_path, vector_json, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (content_hash, signature) DO UPDATE SET
			source_path = excluded.source_path,
			vector_json = excluded.vector_json,
			created_at = excluded.created_at`,
		hash, signature, sourcePath, string(raw), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store cached vector for %s: %w", sourcePath, err)
	}
	return nil
}

// Len returns the number of cached vectors for signature
func (c *Cache) Len(ctx context.Context, signature string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feature_vectors WHERE signature = ?`, signature,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count cached vectors: %w", err)
	}
	return n, nil
}

// Prune removes vectors computed under any signature other than keep
func (c *Cache) Prune(ctx context.Context, keep string) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM feature_vectors WHERE signature <> ?`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune feature cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune feature cache: %w", err)
	}
	if n > 0 {
		c.logger.Debug("Pruned stale feature vectors", logging.Fields{
			"function": "Prune",
			"removed":  n,
		})
	}
	return n, nil
}
