package kb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Answer tiers, in lookup priority order. Admin edits are curated
// replies and always outrank the bulk knowledge base.
const (
	TierAdminEdits = "admin-edits"
	TierPriorityQA = "priority-qa"
	TierKB         = "kb"
)

// Chunk is one stored knowledge entry with its retrieval score.
type Chunk struct {
	ID         string
	Tier       string
	Title      string
	SourceURL  string
	Text       string
	Embedding  []float32
	Metadata   map[string]any
	Similarity float64
}

// Correction is an operator-curated answer stored in the admin-edits
// tier. The question is embedded so future lookups can match it.
type Correction struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Editor    string    `json:"editor"`
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SearchTier returns the closest chunks of one tier by cosine
// similarity, best first.
func (s *Store) SearchTier(ctx context.Context, tier string, embedding []float32, limit int) ([]Chunk, error) {
	if tier == "" {
		return nil, errors.New("tier is required")
	}
	if len(embedding) == 0 {
		return nil, errors.New("embedding is required")
	}
	if limit <= 0 {
		limit = 3
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id,
			tier,
			title,
			source_url,
			chunk_text,
			metadata,
			1 - (embedding <=> $2) AS similarity
		FROM rlchat.rlchat_kb
		WHERE tier = $1
		ORDER BY embedding <=> $2
		LIMIT $3
	`, tier, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("search tier %s: %w", tier, err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var chunk Chunk
		var metadataBytes []byte
		if err := rows.Scan(
			&chunk.ID,
			&chunk.Tier,
			&chunk.Title,
			&chunk.SourceURL,
			&chunk.Text,
			&metadataBytes,
			&chunk.Similarity,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if len(metadataBytes) > 0 {
			if err := json.Unmarshal(metadataBytes, &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	return chunks, nil
}

// UpsertCorrection stores a curated answer in the admin-edits tier.
// The chunk text is the answer; the embedded question lives in the
// metadata for auditability.
func (s *Store) UpsertCorrection(ctx context.Context, correction Correction, embedding []float32) error {
	if correction.ID == "" {
		return errors.New("correction id is required")
	}
	if correction.Question == "" || correction.Answer == "" {
		return errors.New("question and answer are required")
	}
	if len(embedding) == 0 {
		return errors.New("embedding is required")
	}

	metadata, err := json.Marshal(map[string]any{
		"question":  correction.Question,
		"editor":    correction.Editor,
		"sessionId": correction.SessionID,
		"createdAt": correction.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO rlchat.rlchat_kb (id, tier, title, source_url, chunk_text, metadata, embedding, created_at)
		VALUES ($1, $2, $3, '', $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			chunk_text = EXCLUDED.chunk_text,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding
	`, correction.ID, TierAdminEdits, correction.Question, correction.Answer,
		metadata, pgvector.NewVector(embedding), correction.CreatedAt); err != nil {
		return fmt.Errorf("upsert correction: %w", err)
	}

	return nil
}

// ListCorrections returns recent admin-edits entries, newest first.
func (s *Store) ListCorrections(ctx context.Context, limit int) ([]Correction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, chunk_text, metadata, created_at
		FROM rlchat.rlchat_kb
		WHERE tier = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, TierAdminEdits, limit)
	if err != nil {
		return nil, fmt.Errorf("list corrections: %w", err)
	}
	defer rows.Close()

	var corrections []Correction
	for rows.Next() {
		var c Correction
		var metadataBytes []byte
		if err := rows.Scan(&c.ID, &c.Question, &c.Answer, &metadataBytes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		if len(metadataBytes) > 0 {
			var metadata map[string]any
			if err := json.Unmarshal(metadataBytes, &metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
			if editor, ok := metadata["editor"].(string); ok {
				c.Editor = editor
			}
			if sessionID, ok := metadata["sessionId"].(string); ok {
				c.SessionID = sessionID
			}
		}
		corrections = append(corrections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate corrections: %w", err)
	}

	return corrections, nil
}
