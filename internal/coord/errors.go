package coord

import "errors"

// Rejection reasons surfaced to the player through the transport. None of
// these mutate session state.
var (
	// ErrSessionNotActive - сессия не найдена в памяти этого воркера
	ErrSessionNotActive = errors.New("game is no longer active")
	// ErrNotAllowed - актор не авторизован для действия в текущем состоянии
	ErrNotAllowed = errors.New("action not allowed for this player")
	// ErrAlreadyChosen - повторная попытка выбора; подтверждается, но игнорируется
	ErrAlreadyChosen = errors.New("already chosen")
	// ErrRateLimited - превышен лимит действий
	ErrRateLimited = errors.New("too many actions, slow down")
	// ErrShuttingDown - воркер останавливается
	ErrShuttingDown = errors.New("worker is shutting down")
)
