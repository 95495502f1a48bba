package coord

import (
	"context"
	"errors"

	"telegram_rps/internal/domain"
	"telegram_rps/internal/game"
	"telegram_rps/internal/metrics"
)

// handleAction validates an inbound action event and forwards it to the
// transition for the session's current waiting state. Rejections return a
// sentinel without any mutation. Accepted actions follow the disarm timer →
// mutate state → maybe re-arm ordering inside the transition functions.
func (c *Coordinator) handleAction(ctx context.Context, ev domain.ActionEvent) error {
	as, ok := c.sessions[ev.SessionID]
	if !ok {
		metrics.ActionsRejected.WithLabelValues("not_active").Inc()
		c.recordAudit(ev, false, "session not active")
		return ErrSessionNotActive
	}

	if !c.limiter.Allow(ctx, ev.ActorID) {
		metrics.ActionsRejected.WithLabelValues("rate_limited").Inc()
		return ErrRateLimited
	}

	var err error
	switch as.s.State.Status {
	case domain.GameAwaitingOfferResponse:
		err = c.applyOfferAction(ctx, as, ev)
	case domain.GameAwaitingDirectResponse:
		err = c.applyDirectAction(ctx, as, ev)
	case domain.GameAwaitingPlayerChoice:
		err = c.applyPvBAction(ctx, as, ev)
	case domain.GameAwaitingBothChoices:
		err = c.applyPvPAction(ctx, as, ev)
	default:
		err = ErrSessionNotActive
	}

	switch {
	case err == nil:
		c.recordAudit(ev, true, "")
	case errors.Is(err, ErrNotAllowed):
		metrics.ActionsRejected.WithLabelValues("unauthorized").Inc()
		c.recordAudit(ev, false, "unauthorized")
	case errors.Is(err, ErrAlreadyChosen):
		// acknowledged so the UI can respond, but not an error condition
		metrics.ActionsRejected.WithLabelValues("duplicate").Inc()
		c.recordAudit(ev, false, "duplicate choice")
	}

	return err
}

// Offer mode: awaiting_offer_response. Only the initiator may cancel or
// accept the bot; any other actor who accepts becomes the fixed opponent.
func (c *Coordinator) applyOfferAction(ctx context.Context, as *activeSession, ev domain.ActionEvent) error {
	switch ev.Kind {
	case domain.ActionCancelOffer:
		if ev.ActorID != as.s.InitiatorID {
			return ErrNotAllowed
		}
		c.finalize(ctx, as, domain.StatusCompletedCancelled, "offer cancelled")
		return nil

	case domain.ActionAcceptBot:
		if ev.ActorID != as.s.InitiatorID {
			return ErrNotAllowed
		}
		c.disarm(as)
		as.s.State.Mode = domain.ModePvB
		as.s.State.Status = domain.GameAwaitingPlayerChoice
		c.promptChoices(ctx, as)
		c.arm(as, c.choiceTimeout)
		return nil

	case domain.ActionAcceptOffer:
		if ev.ActorID == as.s.InitiatorID {
			return ErrNotAllowed
		}
		c.disarm(as)
		opponentID := ev.ActorID
		as.s.OpponentID = &opponentID
		as.s.State.OpponentName = ev.ActorName
		as.s.State.Mode = domain.ModePvP
		as.s.State.Status = domain.GameAwaitingBothChoices
		c.promptChoices(ctx, as)
		c.arm(as, c.choiceTimeout)
		return nil
	}

	return ErrNotAllowed
}

// Direct-challenge mode: awaiting_direct_response. Only the designated
// opponent may answer.
func (c *Coordinator) applyDirectAction(ctx context.Context, as *activeSession, ev domain.ActionEvent) error {
	if as.s.OpponentID == nil || ev.ActorID != *as.s.OpponentID {
		return ErrNotAllowed
	}

	switch ev.Kind {
	case domain.ActionAcceptDirect:
		c.disarm(as)
		if as.s.State.OpponentName == "" {
			as.s.State.OpponentName = ev.ActorName
		}
		as.s.State.Mode = domain.ModePvP
		as.s.State.Status = domain.GameAwaitingBothChoices
		c.promptChoices(ctx, as)
		c.arm(as, c.choiceTimeout)
		return nil

	case domain.ActionDeclineDirect:
		c.finalize(ctx, as, domain.StatusCompletedCancelled, "challenge declined")
		return nil
	}

	return ErrNotAllowed
}

// PvB mode: awaiting_player_choice. Only the initiator submits; the bot
// counterpart is drawn on submission and the session resolves immediately.
func (c *Coordinator) applyPvBAction(ctx context.Context, as *activeSession, ev domain.ActionEvent) error {
	if ev.Kind != domain.ActionSubmitPvBChoice {
		return ErrNotAllowed
	}
	if ev.ActorID != as.s.InitiatorID {
		return ErrNotAllowed
	}
	if !ev.Choice.Valid() {
		return c.failClosed(ctx, as, "pvb choice outside closed set", ev.Choice)
	}

	c.disarm(as)

	choice := ev.Choice
	botChoice := c.botChoice()
	as.s.State.InitiatorChoice = &choice
	as.s.State.OpponentChoice = &botChoice

	out, err := game.Resolve(choice, botChoice)
	if err != nil {
		return c.failClosed(ctx, as, "resolver rejected pvb pair", botChoice)
	}

	c.finalize(ctx, as, pvbStatus(out.Verdict), out.Description)
	return nil
}

// PvP mode: awaiting_both_choices. Each player locks exactly one choice;
// the first lock-in is acknowledged without a session-wide transition and
// never revealed to the other player.
func (c *Coordinator) applyPvPAction(ctx context.Context, as *activeSession, ev domain.ActionEvent) error {
	if ev.Kind != domain.ActionSubmitPvPChoice {
		return ErrNotAllowed
	}

	var slot **domain.Choice
	switch {
	case ev.ActorID == as.s.InitiatorID:
		slot = &as.s.State.InitiatorChoice
	case as.s.OpponentID != nil && ev.ActorID == *as.s.OpponentID:
		slot = &as.s.State.OpponentChoice
	default:
		return ErrNotAllowed
	}

	if *slot != nil {
		return ErrAlreadyChosen
	}
	if !ev.Choice.Valid() {
		return c.failClosed(ctx, as, "pvp choice outside closed set", ev.Choice)
	}

	c.disarm(as)

	choice := ev.Choice
	*slot = &choice

	if as.s.State.InitiatorChoice == nil || as.s.State.OpponentChoice == nil {
		// first lock-in: re-arm so the waiting state keeps a deadline
		if err := c.transport.ShowChoiceLocked(ctx, as.s, ev.ActorName); err != nil {
			metrics.TransportErrors.Inc()
			c.log.Error("failed to show lock-in", "session_id", as.s.ID, "error", err)
		}
		c.arm(as, c.choiceTimeout)
		return nil
	}

	out, err := game.Resolve(*as.s.State.InitiatorChoice, *as.s.State.OpponentChoice)
	if err != nil {
		return c.failClosed(ctx, as, "resolver rejected pvp pair", ev.Choice)
	}

	c.finalize(ctx, as, pvpStatus(out.Verdict), out.Description)
	return nil
}

func (c *Coordinator) promptChoices(ctx context.Context, as *activeSession) {
	if err := c.transport.ShowChoicePrompt(ctx, as.s); err != nil {
		metrics.TransportErrors.Inc()
		c.log.Error("failed to show choice prompt", "session_id", as.s.ID, "error", err)
	}
}

// failClosed handles the unreachable invalid-choice branch: the session
// fails closed instead of crashing the worker or propagating garbage into
// the resolver.
func (c *Coordinator) failClosed(ctx context.Context, as *activeSession, reason string, choice domain.Choice) error {
	c.log.Error("internal error: "+reason,
		"session_id", as.s.ID,
		"choice", string(choice),
	)
	c.finalize(ctx, as, domain.StatusCompletedCancelled, "internal error, game voided")
	return nil
}

func pvbStatus(v game.Verdict) domain.SessionStatus {
	switch v {
	case game.VerdictWinInitiator:
		return domain.StatusCompletedP1Win
	case game.VerdictWinOpponent:
		return domain.StatusCompletedBotWin
	}
	return domain.StatusCompletedPush
}

func pvpStatus(v game.Verdict) domain.SessionStatus {
	switch v {
	case game.VerdictWinInitiator:
		return domain.StatusCompletedP1Win
	case game.VerdictWinOpponent:
		return domain.StatusCompletedP2Win
	}
	return domain.StatusCompletedPush
}
