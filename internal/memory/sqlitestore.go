package memory

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL,
	content TEXT NOT NULL,
	embedding BLOB NOT NULL,
	metadata TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS memories_agent_id_idx ON memories(agent_id);
`

// SQLiteStore is a Store backed by a local modernc.org/sqlite database,
// storing each memory's embedding as a little-endian float32 BLOB and
// computing cosine similarity in Go after a full-table scan per search —
// the same brute-force approach as LocalStore, traded for sqlite's
// transactional writes and indexed agent_id lookups instead of a single
// JSON file.
//
// Grounded on the teacher pack's modernc.org/sqlite usage
// (jaakkos-stringwork/internal/knowledge/store.go's database/sql-plus-
// blank-import convention) and on the float32-BLOB encoding used by
// theRebelliousNerd-codenerd/internal/store/vec_compat.go's
// vector_distance_cos implementation.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a memory database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, &model.IOError{Path: filepath.Dir(dbPath), Cause: err}
	}
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, &model.MemoryError{Cause: err}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, &model.MemoryError{Cause: err}
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

func (s *SQLiteStore) Store(ctx context.Context, m model.Memory) error {
	meta, err := json.Marshal(m.Metadata)
	if err != nil {
		return &model.MemoryError{Cause: err}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (id, agent_id, content, embedding, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			agent_id = excluded.agent_id,
			content = excluded.content,
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			created_at = excluded.created_at`,
		m.ID, m.AgentID, m.Content, encodeEmbedding(m.Embedding), string(meta), m.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return &model.MemoryError{Cause: err}
	}
	return nil
}

func (s *SQLiteStore) scanRows(rows *sql.Rows) ([]model.Memory, error) {
	defer rows.Close()
	var out []model.Memory
	for rows.Next() {
		var m model.Memory
		var embedding []byte
		var meta sql.NullString
		var createdAt string
		if err := rows.Scan(&m.ID, &m.AgentID, &m.Content, &embedding, &meta, &createdAt); err != nil {
			return nil, &model.MemoryError{Cause: err}
		}
		m.Embedding = decodeEmbedding(embedding)
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &m.Metadata); err != nil {
				return nil, &model.MemoryError{Cause: err}
			}
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			m.CreatedAt = t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Search(ctx context.Context, queryEmbedding []float32, agentID string, limit int) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, agent_id, content, embedding, metadata, created_at FROM memories WHERE agent_id = ?`, agentID)
	if err != nil {
		return nil, &model.MemoryError{Cause: err}
	}
	all, err := s.scanRows(rows)
	if err != nil {
		return nil, err
	}
	return rankAndTruncate(scoreAll(all, queryEmbedding), limit), nil
}

func (s *SQLiteStore) SearchAll(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, agent_id, content, embedding, metadata, created_at FROM memories`)
	if err != nil {
		return nil, &model.MemoryError{Cause: err}
	}
	all, err := s.scanRows(rows)
	if err != nil {
		return nil, err
	}
	return rankAndTruncate(scoreAll(all, queryEmbedding), limit), nil
}

func scoreAll(memories []model.Memory, query []float32) []SearchResult {
	results := make([]SearchResult, len(memories))
	for i, m := range memories {
		results[i] = SearchResult{Memory: m, Score: CosineSimilarity(query, m.Embedding)}
	}
	return results
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id); err != nil {
		return &model.MemoryError{Cause: err}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, agent_id, content, embedding, metadata, created_at FROM memories WHERE id = ?`, id)
	if err != nil {
		return nil, &model.MemoryError{Cause: err}
	}
	all, err := s.scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return &all[0], nil
}

func (s *SQLiteStore) List(ctx context.Context, agentID string, limit int) ([]model.Memory, error) {
	query := `SELECT id, agent_id, content, embedding, metadata, created_at FROM memories WHERE agent_id = ? ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, &model.MemoryError{Cause: err}
	}
	return s.scanRows(rows)
}

func (s *SQLiteStore) Count(ctx context.Context, agentID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE agent_id = ?`, agentID).Scan(&n); err != nil {
		return 0, &model.MemoryError{Cause: err}
	}
	return n, nil
}

func (s *SQLiteStore) ClearAgent(ctx context.Context, agentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE agent_id = ?`, agentID); err != nil {
		return &model.MemoryError{Cause: err}
	}
	return nil
}
