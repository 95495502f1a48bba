package domain

import "time"

// AuditEntry - одна запись журнала действий
type AuditEntry struct {
	ID        int64      `db:"id" json:"id"`
	SessionID int64      `db:"session_id" json:"session_id"`
	ActorID   int64      `db:"actor_id" json:"actor_id"`
	Kind      ActionKind `db:"kind" json:"kind"`
	Accepted  bool       `db:"accepted" json:"accepted"`
	Detail    *string    `db:"detail" json:"detail,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
