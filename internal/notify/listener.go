package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"telegram_rps/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Channel is the Postgres notification channel the matchmaking service
// publishes pickup announcements on.
const Channel = "game_pickup"

type pickupPayload struct {
	UpstreamGameID string `json:"upstream_game_id"`
}

// Handler receives the upstream game id from each pickup announcement.
type Handler func(ctx context.Context, upstreamGameID string) error

// Listener holds one dedicated connection on LISTEN game_pickup and
// forwards payloads to the handler.
type Listener struct {
	pool    *pgxpool.Pool
	handler Handler
	log     *slog.Logger
}

func NewListener(pool *pgxpool.Pool, handler Handler) *Listener {
	return &Listener{
		pool:    pool,
		handler: handler,
		log:     logger.With("component", "notify"),
	}
}

// Run listens until ctx is cancelled. A dropped connection is re-acquired
// with a short backoff; announcements sent while disconnected are lost,
// which is safe because the pending row stays claimable and another worker
// or a later announcement picks it up.
func (l *Listener) Run(ctx context.Context) {
	for {
		if err := l.listen(ctx); err != nil {
			if ctx.Err() != nil {
				l.log.Info("listener stopped")
				return
			}
			l.log.Error("listen connection lost, reconnecting", "error", err)
		}

		select {
		case <-ctx.Done():
			l.log.Info("listener stopped")
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return err
	}
	l.log.Info("listening for pickup announcements", "channel", Channel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var p pickupPayload
		if err := json.Unmarshal([]byte(n.Payload), &p); err != nil || p.UpstreamGameID == "" {
			l.log.Warn("dropping malformed pickup payload", "payload", n.Payload)
			continue
		}

		if err := l.handler(ctx, p.UpstreamGameID); err != nil {
			l.log.Error("pickup handler failed", "upstream_game_id", p.UpstreamGameID, "error", err)
		}
	}
}
