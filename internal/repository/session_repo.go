package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"telegram_rps/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles game session database operations
type SessionRepository struct {
	db *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, upstream_game_id, chat_id, initiator_id, opponent_id, claimed_by, status, game_state, created_at, updated_at`

// ClaimPending atomically claims a pending session for workerID. The
// conditional UPDATE is the cross-worker exclusion point: concurrent claims
// on the same row are serialized by Postgres and only one matches the
// pending_pickup predicate. Returns (nil, nil) when another worker won or
// the row no longer qualifies; that is a normal outcome, not an error.
func (r *SessionRepository) ClaimPending(ctx context.Context, upstreamGameID, workerID string) (*domain.Session, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE game_sessions
		SET status = $1, claimed_by = $2, updated_at = now()
		WHERE upstream_game_id = $3 AND status = $4
		RETURNING `+sessionColumns,
		domain.StatusInProgress, workerID, upstreamGameID, domain.StatusPendingPickup,
	)

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return s, nil
}

// Finalize writes the terminal snapshot: status, any opponent fixed during
// play, and the final state blob. The row is the sole source of truth for
// settlement, so callers treat a failure here as critical. Only an
// in_progress row can be finalized; a second attempt affects zero rows and
// reports an error.
func (r *SessionRepository) Finalize(ctx context.Context, snapshot *domain.Session) error {
	stateJSON, err := json.Marshal(snapshot.State)
	if err != nil {
		return fmt.Errorf("marshal game state: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE game_sessions
		SET status = $1, opponent_id = $2, game_state = $3, updated_at = now()
		WHERE id = $4 AND status = $5
	`, snapshot.Status, snapshot.OpponentID, stateJSON, snapshot.ID, domain.StatusInProgress)
	if err != nil {
		return fmt.Errorf("finalize session %d: %w", snapshot.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finalize session %d: no in_progress row", snapshot.ID)
	}
	return nil
}

// GetByID loads a session row.
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*domain.Session, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id = $1`, id)
	return scanSession(row)
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		s         domain.Session
		stateJSON []byte
	)
	if err := row.Scan(
		&s.ID,
		&s.UpstreamGameID,
		&s.ChatID,
		&s.InitiatorID,
		&s.OpponentID,
		&s.ClaimedBy,
		&s.Status,
		&stateJSON,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(stateJSON) > 0 {
		if err := json.Unmarshal(stateJSON, &s.State); err != nil {
			return nil, fmt.Errorf("unmarshal game state: %w", err)
		}
	}
	return &s, nil
}
