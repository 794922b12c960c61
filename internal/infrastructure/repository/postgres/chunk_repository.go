package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

// ChunkRepository stores the legislation/case-law corpus and serves the
// lexical leg of hybrid search via Postgres full-text search.
type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ChunkRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	parent_id TEXT,
	jurisdiction TEXT NOT NULL,
	citation TEXT NOT NULL,
	source_url TEXT,
	kind TEXT NOT NULL,
	token_count INTEGER NOT NULL DEFAULT 0,
	text TEXT NOT NULL,
	search_tsv TSVECTOR GENERATED ALWAYS AS (
		setweight(to_tsvector('english', citation), 'A') ||
		setweight(to_tsvector('english', text), 'B')
	) STORED,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_search_tsv ON chunks USING GIN (search_tsv);
CREATE INDEX IF NOT EXISTS idx_chunks_jurisdiction ON chunks(jurisdiction);
CREATE INDEX IF NOT EXISTS idx_chunks_parent_id ON chunks(parent_id) WHERE parent_id IS NOT NULL;
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// UpsertChunks loads or refreshes corpus chunks in one transaction. Used by
// the ingestion tooling, not by the query path.
func (r *ChunkRepository) UpsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, chunk := range chunks {
		if err := chunk.Validate(); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO chunks (id, parent_id, jurisdiction, citation, source_url, kind, token_count, text, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
	parent_id = EXCLUDED.parent_id,
	jurisdiction = EXCLUDED.jurisdiction,
	citation = EXCLUDED.citation,
	source_url = EXCLUDED.source_url,
	kind = EXCLUDED.kind,
	token_count = EXCLUDED.token_count,
	text = EXCLUDED.text,
	updated_at = EXCLUDED.updated_at
`,
			chunk.ID, nullableText(chunk.ParentID), chunk.Jurisdiction, chunk.Citation,
			nullableText(chunk.SourceURL), string(chunk.Kind), chunk.TokenCount, chunk.Text, now,
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}

// SearchLexical ranks child chunks against the query with ts_rank_cd.
// Only child chunks are searched; parents are resolved separately for
// context windows.
func (r *ChunkRepository) SearchLexical(ctx context.Context, query, jurisdiction string, limit int) ([]domain.ScoredHit, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, parent_id, jurisdiction, citation, source_url, kind, token_count, text,
	ts_rank_cd(search_tsv, websearch_to_tsquery('english', $1)) AS rank
FROM chunks
WHERE jurisdiction = $2
	AND kind = $3
	AND search_tsv @@ websearch_to_tsquery('english', $1)
ORDER BY rank DESC, id ASC
LIMIT $4
`, query, jurisdiction, string(domain.ChunkKindChild), limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrAdapterUnavailable, "lexical search", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var hits []domain.ScoredHit
	for rows.Next() {
		var (
			chunk     domain.Chunk
			parentID  sql.NullString
			sourceURL sql.NullString
			kind      string
			score     float64
		)
		err := rows.Scan(
			&chunk.ID, &parentID, &chunk.Jurisdiction, &chunk.Citation,
			&sourceURL, &kind, &chunk.TokenCount, &chunk.Text, &score,
		)
		if err != nil {
			return nil, fmt.Errorf("scan lexical hit: %w", err)
		}
		chunk.ParentID = parentID.String
		chunk.SourceURL = sourceURL.String
		chunk.Kind = domain.ChunkKind(kind)
		hits = append(hits, domain.ScoredHit{
			Chunk:  chunk,
			Source: domain.HitSourceLexical,
			Score:  score,
			Rank:   len(hits) + 1,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrAdapterUnavailable, "lexical search", err)
	}
	return hits, nil
}

// GetParentText loads the full text of a parent chunk by ID.
func (r *ChunkRepository) GetParentText(ctx context.Context, parentID string) (string, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT text
FROM chunks
WHERE id = $1 AND kind = $2
`, parentID, string(domain.ChunkKindParent))

	var text string
	if err := row.Scan(&text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("parent chunk not found: %s", parentID)
		}
		return "", fmt.Errorf("load parent chunk %s: %w", parentID, err)
	}
	return text, nil
}

func nullableText(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
