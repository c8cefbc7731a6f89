package kb

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureEmbeddingDimensions checks whether the embedding vector column
// matches the target dimension count. When they differ it truncates
// stale data, alters the column type, and rebuilds the HNSW index.
// Returns true when a migration was performed.
func EnsureEmbeddingDimensions(ctx context.Context, db *sql.DB, target int) (bool, error) {
	if target <= 0 {
		return false, fmt.Errorf("invalid embedding dimensions: %d", target)
	}

	// pgvector stores the dimension count in atttypmod for vector(N) columns.
	var current int
	err := db.QueryRowContext(ctx, `
		SELECT atttypmod
		FROM pg_attribute
		WHERE attrelid = 'rlchat.rlchat_kb'::regclass
		  AND attname = 'embedding'
	`).Scan(&current)
	if err != nil {
		return false, fmt.Errorf("query current embedding dimensions: %w", err)
	}

	if current == target {
		return false, nil
	}

	// Dimensions changed, meaning old embeddings came from a different
	// model and cannot be meaningfully searched, so truncate first.
	stmts := []string{
		`DROP INDEX IF EXISTS rlchat.rlchat_kb_embedding_idx`,
		`TRUNCATE rlchat.rlchat_kb`,
		fmt.Sprintf(`ALTER TABLE rlchat.rlchat_kb ALTER COLUMN embedding TYPE vector(%d)`, target),
		`CREATE INDEX rlchat_kb_embedding_idx ON rlchat.rlchat_kb USING hnsw (embedding vector_cosine_ops) WITH (m = 24, ef_construction = 256)`,
	}
	for _, stmt := range stmts {
		if _, execErr := db.ExecContext(ctx, stmt); execErr != nil {
			return false, fmt.Errorf("migrate embedding dimensions (%d to %d): %w", current, target, execErr)
		}
	}

	return true, nil
}
