package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"telegram_rps/internal/domain"
)

// Callback data format: rps:<tag>:<session_id>[:<choice>]. The tag set is
// closed; anything unrecognized fails closed.

var errBadCallback = errors.New("unrecognized callback data")

const callbackPrefix = "rps"

const (
	tagCancel        = "cancel"
	tagAcceptBot     = "bot"
	tagAcceptOffer   = "accept"
	tagAcceptDirect  = "accept_direct"
	tagDeclineDirect = "decline_direct"
	tagPickBot       = "pick_bot"
	tagPickPvP       = "pick"
)

func encodeCallback(tag string, sessionID int64) string {
	return fmt.Sprintf("%s:%s:%d", callbackPrefix, tag, sessionID)
}

func encodeChoiceCallback(tag string, sessionID int64, choice domain.Choice) string {
	return fmt.Sprintf("%s:%s:%d:%s", callbackPrefix, tag, sessionID, choice)
}

// decodeCallback turns callback data into an action event. Actor fields are
// filled by the caller from the callback query itself.
func decodeCallback(data string) (domain.ActionEvent, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 3 || parts[0] != callbackPrefix {
		return domain.ActionEvent{}, errBadCallback
	}

	sessionID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || sessionID <= 0 {
		return domain.ActionEvent{}, errBadCallback
	}

	ev := domain.ActionEvent{SessionID: sessionID}

	switch parts[1] {
	case tagCancel:
		ev.Kind = domain.ActionCancelOffer
	case tagAcceptBot:
		ev.Kind = domain.ActionAcceptBot
	case tagAcceptOffer:
		ev.Kind = domain.ActionAcceptOffer
	case tagAcceptDirect:
		ev.Kind = domain.ActionAcceptDirect
	case tagDeclineDirect:
		ev.Kind = domain.ActionDeclineDirect
	case tagPickBot:
		ev.Kind = domain.ActionSubmitPvBChoice
	case tagPickPvP:
		ev.Kind = domain.ActionSubmitPvPChoice
	default:
		return domain.ActionEvent{}, errBadCallback
	}

	if ev.Kind.HasChoice() {
		if len(parts) != 4 {
			return domain.ActionEvent{}, errBadCallback
		}
		choice := domain.Choice(parts[3])
		if !choice.Valid() {
			return domain.ActionEvent{}, errBadCallback
		}
		ev.Choice = choice
	} else if len(parts) != 3 {
		return domain.ActionEvent{}, errBadCallback
	}

	return ev, nil
}
