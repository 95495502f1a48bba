package domain

// ActionKind - закрытый набор действий игроков
type ActionKind string

const (
	ActionCancelOffer     ActionKind = "cancel_offer"
	ActionAcceptBot       ActionKind = "accept_bot"
	ActionAcceptOffer     ActionKind = "accept_pvp_offer"
	ActionAcceptDirect    ActionKind = "accept_direct"
	ActionDeclineDirect   ActionKind = "decline_direct"
	ActionSubmitPvBChoice ActionKind = "submit_pvb_choice"
	ActionSubmitPvPChoice ActionKind = "submit_pvp_choice"
)

// ActionEvent - структурированное событие от транспорта
type ActionEvent struct {
	Kind      ActionKind `json:"kind"`
	SessionID int64      `json:"session_id"`
	ActorID   int64      `json:"actor_id"`
	ActorName string     `json:"actor_name,omitempty"`
	Choice    Choice     `json:"choice,omitempty"`
}

// HasChoice reports whether the action kind carries a choice payload.
func (k ActionKind) HasChoice() bool {
	return k == ActionSubmitPvBChoice || k == ActionSubmitPvPChoice
}
