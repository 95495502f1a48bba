package coord

import (
	"context"
	"log/slog"
	"time"

	"telegram_rps/internal/domain"
	"telegram_rps/internal/game"
	"telegram_rps/internal/logger"
	"telegram_rps/internal/metrics"
	"telegram_rps/internal/ratelimit"
)

// SessionStore is the slice of the session repository the coordinator needs.
type SessionStore interface {
	// ClaimPending returns (nil, nil) when the row was not claimable.
	ClaimPending(ctx context.Context, upstreamGameID, workerID string) (*domain.Session, error)
	// Finalize writes the terminal snapshot: status, opponent and state blob.
	Finalize(ctx context.Context, snapshot *domain.Session) error
}

// Transport sends and edits the interactive chat messages for a session.
// Every call is fire-and-forget from the state machine's point of view:
// errors are logged and counted, never retried, and never block a
// transition.
type Transport interface {
	ShowOffer(ctx context.Context, s *domain.Session) (domain.MessageRef, error)
	ShowDirectChallenge(ctx context.Context, s *domain.Session) (domain.MessageRef, error)
	ShowChoicePrompt(ctx context.Context, s *domain.Session) error
	ShowChoiceLocked(ctx context.Context, s *domain.Session, actorName string) error
	ShowResult(ctx context.Context, s *domain.Session, description string) error
}

// AuditLog records the inbound action trail. Optional.
type AuditLog interface {
	RecordAction(ctx context.Context, ev domain.ActionEvent, accepted bool, detail string) error
}

// Config собирает зависимости координатора.
type Config struct {
	WorkerID  string
	Store     SessionStore
	Transport Transport
	Audit     AuditLog           // nil отключает журнал
	Limiter   *ratelimit.Limiter // nil отключает лимит

	OfferTimeout  time.Duration
	ChoiceTimeout time.Duration

	// BotChoice draws the counterpart choice in pvb mode. Defaults to
	// game.RandomChoice; tests inject a fixed one.
	BotChoice func() domain.Choice
}

// Coordinator owns every session this worker claimed. All mutation happens
// on the single Run goroutine: pickup notifications, action events and
// timer expiries are funneled through one event channel and handled one at
// a time, so no lock guards the session table and two events can never
// interleave on one session.
type Coordinator struct {
	workerID  string
	store     SessionStore
	transport Transport
	audit     AuditLog
	limiter   *ratelimit.Limiter

	offerTimeout  time.Duration
	choiceTimeout time.Duration
	botChoice     func() domain.Choice

	events chan event
	done   chan struct{}

	// session table, keyed by session id; the database row, never this
	// map, is authoritative
	sessions map[int64]*activeSession

	log *slog.Logger
}

type activeSession struct {
	s     *domain.Session
	timer *time.Timer
}

// event is the closed set of things the Run loop reacts to.
type event struct {
	claim  *claimEvent
	action *actionRequest
	expiry *expiryEvent
}

type claimEvent struct {
	upstreamGameID string
}

type actionRequest struct {
	ev    domain.ActionEvent
	reply chan error
}

type expiryEvent struct {
	sessionID int64
	state     domain.GameStatus
}

// New creates a coordinator. Run must be started before events are fed in.
func New(cfg Config) *Coordinator {
	if cfg.OfferTimeout <= 0 {
		cfg.OfferTimeout = 60 * time.Second
	}
	if cfg.ChoiceTimeout <= 0 {
		cfg.ChoiceTimeout = 20 * time.Second
	}
	if cfg.BotChoice == nil {
		cfg.BotChoice = game.RandomChoice
	}

	return &Coordinator{
		workerID:      cfg.WorkerID,
		store:         cfg.Store,
		transport:     cfg.Transport,
		audit:         cfg.Audit,
		limiter:       cfg.Limiter,
		offerTimeout:  cfg.OfferTimeout,
		choiceTimeout: cfg.ChoiceTimeout,
		botChoice:     cfg.BotChoice,
		events:        make(chan event, 128),
		done:          make(chan struct{}),
		sessions:      make(map[int64]*activeSession),
		log:           logger.With("component", "coordinator"),
	}
}

// SetTransport wires the chat transport. The bot and the coordinator
// reference each other, so one side is attached after construction. Must be
// called before Run.
func (c *Coordinator) SetTransport(t Transport) {
	c.transport = t
}

// Run processes events until ctx is cancelled. Exactly one Run goroutine
// may exist per Coordinator.
func (c *Coordinator) Run(ctx context.Context) {
	c.log.Info("coordinator started", "worker_id", c.workerID)

	for {
		select {
		case <-ctx.Done():
			close(c.done)
			c.log.Info("coordinator stopped", "active_sessions", len(c.sessions))
			return

		case e := <-c.events:
			switch {
			case e.claim != nil:
				c.handleClaim(ctx, e.claim.upstreamGameID)
			case e.action != nil:
				e.action.reply <- c.handleAction(ctx, e.action.ev)
			case e.expiry != nil:
				c.handleExpiry(ctx, *e.expiry)
			}
		}
	}
}

// NotifyPickup enqueues a pickup announcement from the notification channel.
func (c *Coordinator) NotifyPickup(ctx context.Context, upstreamGameID string) error {
	select {
	case c.events <- event{claim: &claimEvent{upstreamGameID: upstreamGameID}}:
		return nil
	case <-c.done:
		return ErrShuttingDown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do submits an action event and waits for the router's verdict. The
// returned error is one of the rejection sentinels or nil on acceptance.
func (c *Coordinator) Do(ctx context.Context, ev domain.ActionEvent) error {
	req := &actionRequest{ev: ev, reply: make(chan error, 1)}

	select {
	case c.events <- event{action: req}:
	case <-c.done:
		return ErrShuttingDown
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleClaim attempts the exclusive claim and, on success, enters the
// state machine at offer or direct_challenge mode.
func (c *Coordinator) handleClaim(ctx context.Context, upstreamGameID string) {
	s, err := c.store.ClaimPending(ctx, upstreamGameID, c.workerID)
	if err != nil {
		c.log.Error("claim transaction failed", "upstream_game_id", upstreamGameID, "error", err)
		return
	}
	if s == nil {
		// another worker won, or the row no longer qualifies
		metrics.ClaimsLost.Inc()
		c.log.Debug("claim lost", "upstream_game_id", upstreamGameID)
		return
	}

	metrics.ClaimsWon.Inc()

	var (
		ref     domain.MessageRef
		sendErr error
	)
	if s.OpponentID == nil {
		s.State.Mode = domain.ModeOffer
		s.State.Status = domain.GameAwaitingOfferResponse
		ref, sendErr = c.transport.ShowOffer(ctx, s)
	} else {
		s.State.Mode = domain.ModeDirectChallenge
		s.State.Status = domain.GameAwaitingDirectResponse
		ref, sendErr = c.transport.ShowDirectChallenge(ctx, s)
	}
	if sendErr != nil {
		metrics.TransportErrors.Inc()
		c.log.Error("failed to send game message", "session_id", s.ID, "error", sendErr)
	} else {
		s.State.Message = ref
	}

	as := &activeSession{s: s}
	c.sessions[s.ID] = as
	c.arm(as, c.offerTimeout)

	c.log.Info("session claimed",
		"session_id", s.ID,
		"upstream_game_id", upstreamGameID,
		"mode", s.State.Mode,
	)
}

// arm schedules the single-shot deadline for the session's current waiting
// state, replacing any previous timer. The expiry carries the state tag it
// was armed for; handleExpiry rechecks it, so a timer that fires after a
// best-effort Stop lost the race is a no-op.
func (c *Coordinator) arm(as *activeSession, d time.Duration) {
	c.disarm(as)

	e := expiryEvent{sessionID: as.s.ID, state: as.s.State.Status}

	as.timer = time.AfterFunc(d, func() {
		select {
		case c.events <- event{expiry: &e}:
		case <-c.done:
		}
	})
}

func (c *Coordinator) disarm(as *activeSession) {
	if as.timer != nil {
		as.timer.Stop()
		as.timer = nil
	}
}

// handleExpiry forces the mode-appropriate terminal transition, unless the
// session advanced or was evicted while the timer was in flight.
func (c *Coordinator) handleExpiry(ctx context.Context, e expiryEvent) {
	as, ok := c.sessions[e.sessionID]
	if !ok {
		return
	}
	if as.s.State.Status != e.state {
		return
	}

	metrics.Timeouts.WithLabelValues(string(e.state)).Inc()
	c.log.Info("session timed out", "session_id", e.sessionID, "state", e.state)

	switch e.state {
	case domain.GameAwaitingOfferResponse, domain.GameAwaitingDirectResponse:
		c.finalize(ctx, as, domain.StatusCompletedTimeout, "nobody answered in time")

	case domain.GameAwaitingPlayerChoice:
		// default loss for the absent player
		c.finalize(ctx, as, domain.StatusCompletedBotWin, "no choice submitted in time")

	case domain.GameAwaitingBothChoices:
		// push regardless of how many choices were locked in: a lone
		// submitter gains nothing from the other's silence
		c.finalize(ctx, as, domain.StatusCompletedPush, "time ran out, game is a push")
	}
}

// finalize commits the terminal status and evicts the session. Eviction is
// unconditional: a failed write is critical (the row is the settlement
// source of truth) but the in-memory table must never hold a completed
// session.
func (c *Coordinator) finalize(ctx context.Context, as *activeSession, status domain.SessionStatus, description string) {
	c.disarm(as)

	as.s.State.Status = domain.GameDone
	as.s.Status = status

	if err := c.store.Finalize(ctx, as.s); err != nil {
		metrics.FinalizeFailures.Inc()
		c.log.Error("CRITICAL: finalize write failed, settlement row not updated",
			"session_id", as.s.ID,
			"status", status,
			"error", err,
		)
	} else {
		metrics.SessionsFinalized.WithLabelValues(string(status)).Inc()
	}

	if err := c.transport.ShowResult(ctx, as.s, description); err != nil {
		metrics.TransportErrors.Inc()
		c.log.Error("failed to show result", "session_id", as.s.ID, "error", err)
	}

	delete(c.sessions, as.s.ID)

	c.log.Info("session finalized", "session_id", as.s.ID, "status", status)
}

func (c *Coordinator) recordAudit(ev domain.ActionEvent, accepted bool, detail string) {
	if c.audit == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.audit.RecordAction(ctx, ev, accepted, detail); err != nil {
			c.log.Warn("audit write failed", "session_id", ev.SessionID, "error", err)
		}
	}()
}
