package domain

import "time"

// SessionStatus - статус сессии в БД (authoritative для settlement)
type SessionStatus string

const (
	StatusPendingPickup SessionStatus = "pending_pickup"
	StatusInProgress    SessionStatus = "in_progress"

	StatusCompletedP1Win     SessionStatus = "completed_p1_win"
	StatusCompletedP2Win     SessionStatus = "completed_p2_win"
	StatusCompletedBotWin    SessionStatus = "completed_bot_win"
	StatusCompletedPush      SessionStatus = "completed_push"
	StatusCompletedCancelled SessionStatus = "completed_cancelled"
	StatusCompletedTimeout   SessionStatus = "completed_timeout"
)

// Terminal reports whether no further transition can happen from s.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusCompletedP1Win, StatusCompletedP2Win, StatusCompletedBotWin,
		StatusCompletedPush, StatusCompletedCancelled, StatusCompletedTimeout:
		return true
	}
	return false
}

// Mode - форма игры
type Mode string

const (
	ModeOffer           Mode = "offer"
	ModeDirectChallenge Mode = "direct_challenge"
	ModePvB             Mode = "pvb"
	ModePvP             Mode = "pvp"
)

// GameStatus - ожидающее под-состояние внутри режима
type GameStatus string

const (
	GameAwaitingOfferResponse  GameStatus = "awaiting_offer_response"
	GameAwaitingDirectResponse GameStatus = "awaiting_direct_response"
	GameAwaitingPlayerChoice   GameStatus = "awaiting_player_choice"
	GameAwaitingBothChoices    GameStatus = "awaiting_both_choices"
	GameDone                   GameStatus = "done"
)

// Choice - выбор игрока
type Choice string

const (
	ChoiceRock     Choice = "rock"
	ChoicePaper    Choice = "paper"
	ChoiceScissors Choice = "scissors"
)

// Valid reports whether c belongs to the closed choice set.
func (c Choice) Valid() bool {
	return c == ChoiceRock || c == ChoicePaper || c == ChoiceScissors
}

// MessageRef points at the interactive chat message being edited for a session.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// GameState - сериализуемый blob с in-memory состоянием игры.
// Choice fields are immutable once set; only pvp uses both.
type GameState struct {
	Mode            Mode       `json:"mode"`
	Status          GameStatus `json:"status"`
	InitiatorName   string     `json:"initiator_name"`
	OpponentName    string     `json:"opponent_name,omitempty"`
	Message         MessageRef `json:"message"`
	InitiatorChoice *Choice    `json:"initiator_choice,omitempty"`
	OpponentChoice  *Choice    `json:"opponent_choice,omitempty"`
}

// Session - одна игровая сессия (строка в game_sessions + in-memory копия)
type Session struct {
	ID             int64         `db:"id" json:"id"`
	UpstreamGameID string        `db:"upstream_game_id" json:"upstream_game_id"`
	ChatID         int64         `db:"chat_id" json:"chat_id"`
	InitiatorID    int64         `db:"initiator_id" json:"initiator_id"`
	OpponentID     *int64        `db:"opponent_id" json:"opponent_id,omitempty"`
	ClaimedBy      *string       `db:"claimed_by" json:"claimed_by,omitempty"`
	Status         SessionStatus `db:"status" json:"status"`
	State          GameState     `db:"game_state" json:"game_state"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}
