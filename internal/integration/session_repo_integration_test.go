package integration

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"telegram_rps/internal/db"
	"telegram_rps/internal/domain"
	"telegram_rps/internal/notify"
	"telegram_rps/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func insertPending(t *testing.T, pool *pgxpool.Pool, upstreamID string) int64 {
	t.Helper()

	var id int64
	err := pool.QueryRow(context.Background(), `
		INSERT INTO game_sessions (upstream_game_id, chat_id, initiator_id, game_state)
		VALUES ($1, 10, 100, '{"initiator_name":"alice"}')
		RETURNING id
	`, upstreamID).Scan(&id)
	if err != nil {
		t.Fatalf("insert pending session: %v", err)
	}
	return id
}

func TestSessionRepositoryClaimAndFinalize(t *testing.T) {
	pool := testPool(t)
	repo := repository.NewSessionRepository(pool)
	ctx := context.Background()

	upstreamID := uuid.NewString()
	id := insertPending(t, pool, upstreamID)

	s, err := repo.ClaimPending(ctx, upstreamID, "worker-A")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if s == nil {
		t.Fatalf("expected claim to succeed")
	}
	if s.ID != id || s.Status != domain.StatusInProgress {
		t.Fatalf("claimed row = %+v", s)
	}
	if s.ClaimedBy == nil || *s.ClaimedBy != "worker-A" {
		t.Fatalf("claimed_by = %v; want worker-A", s.ClaimedBy)
	}

	// re-claim of an in_progress row is a silent non-claim
	again, err := repo.ClaimPending(ctx, upstreamID, "worker-B")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if again != nil {
		t.Fatalf("second claim must not succeed, got %+v", again)
	}

	opp := int64(200)
	s.OpponentID = &opp
	s.Status = domain.StatusCompletedP1Win
	s.State.Status = domain.GameDone
	if err := repo.Finalize(ctx, s); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// second finalize has no in_progress row left
	if err := repo.Finalize(ctx, s); err == nil {
		t.Fatalf("expected second finalize to fail")
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusCompletedP1Win {
		t.Fatalf("status = %s; want completed_p1_win", got.Status)
	}
	if got.OpponentID == nil || *got.OpponentID != opp {
		t.Fatalf("opponent_id = %v; want %d", got.OpponentID, opp)
	}
	if got.State.Status != domain.GameDone {
		t.Fatalf("state blob not persisted: %+v", got.State)
	}
}

func TestSessionRepositoryConcurrentClaims(t *testing.T) {
	pool := testPool(t)
	repo := repository.NewSessionRepository(pool)

	upstreamID := uuid.NewString()
	insertPending(t, pool, upstreamID)

	const workers = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s, err := repo.ClaimPending(context.Background(), upstreamID, uuid.NewString())
			if err != nil {
				t.Errorf("claim %d: %v", n, err)
				return
			}
			if s != nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("exactly one concurrent claim must win, got %d", wins)
	}
}

func TestPickupNotificationDelivered(t *testing.T) {
	pool := testPool(t)

	received := make(chan string, 1)
	listener := notify.NewListener(pool, func(ctx context.Context, upstreamGameID string) error {
		select {
		case received <- upstreamGameID:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go listener.Run(ctx)

	// give the LISTEN a moment to attach before triggering the insert
	time.Sleep(300 * time.Millisecond)

	upstreamID := uuid.NewString()
	insertPending(t, pool, upstreamID)

	select {
	case got := <-received:
		if got != upstreamID {
			t.Fatalf("received %q; want %q", got, upstreamID)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("pickup notification never delivered")
	}
}

func TestAuditRepositoryRoundTrip(t *testing.T) {
	pool := testPool(t)
	repo := repository.NewAuditRepository(pool)
	ctx := context.Background()

	upstreamID := uuid.NewString()
	sessionID := insertPending(t, pool, upstreamID)

	ev := domain.ActionEvent{
		Kind:      domain.ActionSubmitPvPChoice,
		SessionID: sessionID,
		ActorID:   100,
		Choice:    domain.ChoiceRock,
	}
	if err := repo.RecordAction(ctx, ev, true, ""); err != nil {
		t.Fatalf("record accepted: %v", err)
	}
	if err := repo.RecordAction(ctx, ev, false, "duplicate choice"); err != nil {
		t.Fatalf("record rejected: %v", err)
	}

	entries, err := repo.GetBySession(ctx, sessionID, 10)
	if err != nil {
		t.Fatalf("get trail: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit rows, got %d", len(entries))
	}
	if !entries[0].Accepted || entries[1].Accepted {
		t.Fatalf("audit flags wrong: %+v", entries)
	}
}
