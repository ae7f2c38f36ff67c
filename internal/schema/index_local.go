package schema

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/duplocloud/dcaf-sub001/internal/config"
	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// local index embedding dimensionality. Changing this invalidates stored
// vectors, so bump only together with a re-index.
const localIndexDims = 256

// LocalIndex is a persistent vector index backed by SQLite in a local
// directory. Elements and their feature-hash embeddings live in one table;
// search is brute-force cosine over all rows, which is fine for schema
// collections (hundreds of elements, not millions).
type LocalIndex struct {
	mu         sync.RWMutex
	db         *sql.DB
	vectorizer *hashingVectorizer
	logger     *slog.Logger
	closed     bool
}

// NewLocalIndex opens (creating if needed) the index under the configured
// persistence directory.
func NewLocalIndex(cfg config.IndexConfig, logger *slog.Logger) (*LocalIndex, error) {
	if cfg.Path == "" {
		return nil, types.NewError(types.INDEX_INVALID_CONFIG, "index path is required")
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, types.WrapError(types.INDEX_INVALID_CONFIG, "failed to create index directory", err)
	}

	dbPath := filepath.Join(cfg.Path, cfg.Collection+".db")
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, types.WrapError(types.INDEX_UNAVAILABLE, "failed to open index database", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, types.WrapError(types.INDEX_UNAVAILABLE, "failed to ping index database", err)
	}

	idx := &LocalIndex{
		db:         db,
		vectorizer: newHashingVectorizer(localIndexDims),
		logger:     logger,
	}
	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (l *LocalIndex) initSchema() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS elements (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			label TEXT,
			relationship_type TEXT,
			start_label TEXT,
			end_label TEXT,
			properties TEXT,
			description TEXT,
			embedding TEXT NOT NULL
		)`)
	if err != nil {
		return types.WrapError(types.INDEX_UNAVAILABLE, "failed to initialize index schema", err)
	}
	return nil
}

// Upsert stores elements with embeddings derived from their description and
// display name. Used by ingestion tooling; Search never writes.
func (l *LocalIndex) Upsert(ctx context.Context, elements []Element) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return types.NewError(types.INDEX_UNAVAILABLE, "index is closed")
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return types.WrapError(types.INDEX_UNAVAILABLE, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO elements (id, kind, label, relationship_type, start_label, end_label, properties, description, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind=excluded.kind, label=excluded.label,
			relationship_type=excluded.relationship_type,
			start_label=excluded.start_label, end_label=excluded.end_label,
			properties=excluded.properties, description=excluded.description,
			embedding=excluded.embedding`)
	if err != nil {
		return types.WrapError(types.INDEX_UNAVAILABLE, "failed to prepare upsert", err)
	}
	defer stmt.Close()

	for _, elem := range elements {
		props, err := json.Marshal(elem.Properties)
		if err != nil {
			return types.WrapError(types.INDEX_SEARCH_FAILED, "failed to encode properties", err)
		}
		embedding := l.vectorizer.Embed(embeddingText(elem))
		embJSON, err := json.Marshal(embedding)
		if err != nil {
			return types.WrapError(types.INDEX_SEARCH_FAILED, "failed to encode embedding", err)
		}

		if _, err := stmt.ExecContext(ctx,
			elem.Key(), string(elem.Kind), elem.Label, elem.RelationshipType,
			elem.StartLabel, elem.EndLabel, string(props), elem.Description, string(embJSON),
		); err != nil {
			return types.WrapError(types.INDEX_UNAVAILABLE, "failed to upsert element", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.WrapError(types.INDEX_UNAVAILABLE, "failed to commit upsert", err)
	}
	return nil
}

// embeddingText is the text an element is indexed under.
func embeddingText(elem Element) string {
	parts := []string{elem.DisplayName(), elem.Description}
	for name := range elem.Properties {
		parts = append(parts, name)
	}
	text := ""
	for _, p := range parts {
		if p != "" {
			text += p + " "
		}
	}
	return text
}

// Search embeds the query and ranks all stored elements by cosine similarity.
func (l *LocalIndex) Search(ctx context.Context, query string, topK int) ([]Element, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, types.NewError(types.INDEX_UNAVAILABLE, "index is closed")
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, kind, label, relationship_type, start_label, end_label, properties, description, embedding
		FROM elements`)
	if err != nil {
		return nil, types.WrapRetryableError(types.INDEX_UNAVAILABLE, "failed to read index", err)
	}
	defer rows.Close()

	queryVec := l.vectorizer.Embed(query)

	var scored []Element
	for rows.Next() {
		var elem Element
		var kind, props, embJSON string
		if err := rows.Scan(&elem.ID, &kind, &elem.Label, &elem.RelationshipType,
			&elem.StartLabel, &elem.EndLabel, &props, &elem.Description, &embJSON); err != nil {
			return nil, types.WrapError(types.INDEX_SEARCH_FAILED, "failed to scan element", err)
		}
		elem.Kind = ElementKind(kind)

		if props != "" && props != "null" {
			if err := json.Unmarshal([]byte(props), &elem.Properties); err != nil {
				l.logger.Warn("skipping element with malformed properties", "id", elem.ID, "error", err)
				continue
			}
		}

		var embedding []float64
		if err := json.Unmarshal([]byte(embJSON), &embedding); err != nil {
			l.logger.Warn("skipping element with malformed embedding", "id", elem.ID, "error", err)
			continue
		}

		elem.Similarity = clampScore(cosineSimilarity(queryVec, embedding))
		scored = append(scored, elem)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapRetryableError(types.INDEX_UNAVAILABLE, "failed to iterate index", err)
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// Health pings the underlying database. An open but empty index reports
// degraded: searches will run yet return nothing until elements are loaded.
func (l *LocalIndex) Health(ctx context.Context) types.HealthStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return types.Unhealthy("index is closed")
	}
	var count int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM elements`).Scan(&count); err != nil {
		return types.Unhealthy(fmt.Sprintf("index database unreachable: %v", err))
	}
	if count == 0 {
		return types.Degraded("local index has no elements loaded")
	}
	return types.Healthy(fmt.Sprintf("local index open, %d elements", count))
}

// Close closes the underlying database.
func (l *LocalIndex) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}
