// Package store provides the local sqlite-backed search backends: a vector
// store ranking JSON-serialized embeddings by cosine similarity and a
// structured store evaluating filter predicates against document payloads.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/foyzulkarim/codiesvibe-search/internal/embedding"
	"github.com/foyzulkarim/codiesvibe-search/internal/executor"
	"github.com/foyzulkarim/codiesvibe-search/internal/filter"
	"github.com/foyzulkarim/codiesvibe-search/internal/logging"
)

// =============================================================================
// LOCAL STORE
// =============================================================================

// LocalStore backs both search sources with a single sqlite database.
// Embeddings are stored as JSON arrays and ranked in process; document
// payloads are stored as JSON and filtered in process. This keeps operator
// semantics exact and portable at directory-sized corpora.
type LocalStore struct {
	mu       sync.RWMutex
	db       *sql.DB
	embedder embedding.Engine
}

// ToolDocument is one tool to index: its structured payload plus the text
// to embed per vector collection.
type ToolDocument struct {
	ID      string
	Payload map[string]interface{}
	Texts   map[string]string
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*LocalStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	logging.Store("opened local store at %s", path)
	return &LocalStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		payload    TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, id)
	);
	CREATE TABLE IF NOT EXISTS vectors (
		collection      TEXT NOT NULL,
		doc_id          TEXT NOT NULL,
		embedding_field TEXT NOT NULL,
		embedding       TEXT NOT NULL,
		PRIMARY KEY (collection, doc_id)
	);
	CREATE INDEX IF NOT EXISTS idx_vectors_doc ON vectors(doc_id, embedding_field);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// SetEmbeddingEngine configures the engine used during indexing. Must be
// called before IndexTool.
func (s *LocalStore) SetEmbeddingEngine(engine embedding.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embedder = engine
}

// Close releases the database handle.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// IndexTool stores a tool's payload and one embedding per vector collection
// named in doc.Texts. Re-indexing an id replaces prior rows.
func (s *LocalStore) IndexTool(ctx context.Context, structuredCollection string, embeddingFields map[string]string, doc ToolDocument) error {
	timer := logging.StartTimer(logging.CategoryStore, "IndexTool")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embedder == nil && len(doc.Texts) > 0 {
		return fmt.Errorf("no embedding engine configured")
	}

	payloadJSON, err := json.Marshal(doc.Payload)
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO documents (collection, id, payload) VALUES (?, ?, ?)",
		structuredCollection, doc.ID, string(payloadJSON),
	); err != nil {
		return fmt.Errorf("failed to store document %s: %w", doc.ID, err)
	}

	for collection, text := range doc.Texts {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("failed to embed %s/%s: %w", doc.ID, collection, err)
		}
		embeddingJSON, err := json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("failed to serialize embedding: %w", err)
		}
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO vectors (collection, doc_id, embedding_field, embedding) VALUES (?, ?, ?, ?)",
			collection, doc.ID, embeddingFields[collection], string(embeddingJSON),
		); err != nil {
			return fmt.Errorf("failed to store vector %s/%s: %w", doc.ID, collection, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	logging.StoreDebug("indexed tool %s (%d vectors)", doc.ID, len(doc.Texts))
	return nil
}

// Search ranks a collection's stored embeddings against the query vector by
// cosine similarity and returns the top K with their document payloads.
func (s *LocalStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]executor.Hit, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Search")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 {
		topK = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT v.doc_id, v.embedding, COALESCE(d.payload, '')
		 FROM vectors v LEFT JOIN documents d ON d.id = v.doc_id
		 WHERE v.collection = ?`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	defer rows.Close()

	var hits []executor.Hit
	for rows.Next() {
		var id, embeddingJSON, payloadJSON string
		if err := rows.Scan(&id, &embeddingJSON, &payloadJSON); err != nil {
			continue
		}

		var stored []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &stored); err != nil {
			continue
		}
		similarity, err := embedding.CosineSimilarity(vector, stored)
		if err != nil {
			continue
		}

		hit := executor.Hit{ID: id, Score: similarity}
		if payloadJSON != "" {
			json.Unmarshal([]byte(payloadJSON), &hit.Payload)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	logging.StoreDebug("vector search on %s returned %d hits", collection, len(hits))
	return hits, nil
}

// Query evaluates predicates against every document in a collection and
// returns up to limit matches in id order.
func (s *LocalStore) Query(ctx context.Context, collection string, filters []filter.Predicate, limit int) ([]executor.Document, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Query")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, payload FROM documents WHERE collection = ? ORDER BY id",
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("structured query failed: %w", err)
	}
	defer rows.Close()

	var docs []executor.Document
	for rows.Next() {
		var id, payloadJSON string
		if err := rows.Scan(&id, &payloadJSON); err != nil {
			continue
		}
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			continue
		}
		if !MatchesAll(payload, filters) {
			continue
		}
		docs = append(docs, executor.Document{ID: id, Payload: payload})
		if len(docs) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logging.StoreDebug("structured query on %s matched %d documents", collection, len(docs))
	return docs, nil
}

// ToolVector returns a tool's stored embedding for the given field.
func (s *LocalStore) ToolVector(ctx context.Context, toolID, embeddingField string) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var embeddingJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT embedding FROM vectors WHERE doc_id = ? AND embedding_field = ? LIMIT 1",
		toolID, embeddingField,
	).Scan(&embeddingJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s/%s", executor.ErrVectorNotFound, toolID, embeddingField)
	}
	if err != nil {
		return nil, err
	}

	var vec []float32
	if err := json.Unmarshal([]byte(embeddingJSON), &vec); err != nil {
		return nil, fmt.Errorf("corrupt embedding for %s: %w", toolID, err)
	}
	return vec, nil
}

// Stats returns row counts for diagnostics.
func (s *LocalStore) Stats() (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})
	var documents, vectors int64
	s.db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&documents)
	s.db.QueryRow("SELECT COUNT(*) FROM vectors").Scan(&vectors)
	stats["documents"] = documents
	stats["vectors"] = vectors
	return stats, nil
}
