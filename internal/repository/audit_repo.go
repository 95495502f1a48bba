package repository

import (
	"context"

	"telegram_rps/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository records the action trail for finished sessions.
type AuditRepository struct {
	db *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// RecordAction inserts one audit row for an inbound action event.
func (r *AuditRepository) RecordAction(ctx context.Context, ev domain.ActionEvent, accepted bool, detail string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO game_action_audit (session_id, actor_id, kind, accepted, detail)
		VALUES ($1, $2, $3, $4, $5)
	`, ev.SessionID, ev.ActorID, ev.Kind, accepted, detail)
	return err
}

// GetBySession returns the audit trail for one session, oldest first.
func (r *AuditRepository) GetBySession(ctx context.Context, sessionID int64, limit int) ([]*domain.AuditEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, actor_id, kind, accepted, detail, created_at
		FROM game_action_audit
		WHERE session_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.ActorID, &e.Kind, &e.Accepted, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &e)
	}
	return res, rows.Err()
}
