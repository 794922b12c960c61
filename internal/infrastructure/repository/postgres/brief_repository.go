package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

// BriefRepository persists escalation briefs consumed from the queue so the
// lawyer-matching side has a durable record independent of broker retention.
type BriefRepository struct {
	db *sql.DB
}

func NewBriefRepository(db *sql.DB) *BriefRepository {
	return &BriefRepository{db: db}
}

func (r *BriefRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082102)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS escalation_briefs (
	brief_id TEXT PRIMARY KEY,
	generated_at TIMESTAMPTZ NOT NULL,
	urgency_level TEXT NOT NULL,
	payload JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_escalation_briefs_generated_at ON escalation_briefs(generated_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Save stores one brief. Re-deliveries of an already stored brief are
// ignored, which keeps the queue consumer idempotent.
func (r *BriefRepository) Save(ctx context.Context, brief *domain.EscalationBrief) error {
	if brief == nil || brief.BriefID == "" {
		return fmt.Errorf("brief has no id")
	}
	payload, err := json.Marshal(brief)
	if err != nil {
		return fmt.Errorf("marshal brief %s: %w", brief.BriefID, err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO escalation_briefs (brief_id, generated_at, urgency_level, payload)
VALUES ($1,$2,$3,$4)
ON CONFLICT (brief_id) DO NOTHING
`, brief.BriefID, brief.GeneratedAt, brief.UrgencyLevel, payload)
	if err != nil {
		return fmt.Errorf("insert brief %s: %w", brief.BriefID, err)
	}
	return nil
}
