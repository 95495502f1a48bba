package game

import (
	"errors"
	"fmt"
	"math/rand"

	"telegram_rps/internal/domain"
)

// Verdict classifies a resolved choice pair.
type Verdict string

const (
	VerdictDraw         Verdict = "draw"
	VerdictWinInitiator Verdict = "win_initiator"
	VerdictWinOpponent  Verdict = "win_opponent"
)

// ErrInvalidChoice is returned for a value outside the closed choice set.
// Unreachable through the action vocabulary; callers fail the session closed
// instead of crashing.
var ErrInvalidChoice = errors.New("invalid choice value")

// Outcome is the resolver's result for one finished pair of choices.
type Outcome struct {
	Verdict     Verdict
	Description string
	Initiator   domain.Choice
	Opponent    domain.Choice
}

// Resolve compares two choices over the fixed cyclic beats relation:
// rock beats scissors, scissors beats paper, paper beats rock.
func Resolve(initiator, opponent domain.Choice) (*Outcome, error) {
	if !initiator.Valid() || !opponent.Valid() {
		return nil, fmt.Errorf("%w: %q vs %q", ErrInvalidChoice, initiator, opponent)
	}

	out := &Outcome{
		Initiator: initiator,
		Opponent:  opponent,
	}

	if initiator == opponent {
		out.Verdict = VerdictDraw
		out.Description = fmt.Sprintf("both picked %s", initiator)
		return out, nil
	}

	if beats(initiator, opponent) {
		out.Verdict = VerdictWinInitiator
		out.Description = fmt.Sprintf("%s beats %s", initiator, opponent)
	} else {
		out.Verdict = VerdictWinOpponent
		out.Description = fmt.Sprintf("%s beats %s", opponent, initiator)
	}
	return out, nil
}

func beats(a, b domain.Choice) bool {
	switch a {
	case domain.ChoiceRock:
		return b == domain.ChoiceScissors
	case domain.ChoicePaper:
		return b == domain.ChoiceRock
	case domain.ChoiceScissors:
		return b == domain.ChoicePaper
	}
	return false
}

// RandomChoice draws a uniform bot choice.
func RandomChoice() domain.Choice {
	choices := [3]domain.Choice{domain.ChoiceRock, domain.ChoicePaper, domain.ChoiceScissors}
	return choices[rand.Intn(len(choices))]
}
