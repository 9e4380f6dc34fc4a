package apperror

import "errors"

var (
	ErrInvalidMove       = errors.New("invalid move")
	ErrNotYourTurn       = errors.New("it's not your turn")
	ErrGameNotActive     = errors.New("game is not active")
	ErrGameReset         = errors.New("game was reset while the ai move was pending")
	ErrOracleUnavailable = errors.New("move oracle unavailable")
	ErrGameNotFound      = errors.New("game not found")
	ErrPlayerNotFound    = errors.New("player not found")
)
