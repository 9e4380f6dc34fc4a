package entity

import "time"

// MatchRecord is the persisted summary of a finished game.
type MatchRecord struct {
	GameID        string    `json:"game_id"`
	PlayerID      string    `json:"player_id"`
	Winner        Mark      `json:"winner,omitempty"`
	Status        string    `json:"status"`
	MoveCount     int       `json:"move_count"`
	OracleMoves   int       `json:"oracle_moves"`
	FallbackMoves int       `json:"fallback_moves"`
	Board         Board     `json:"board"`
	FinishedAt    time.Time `json:"finished_at"`
}

func NewMatchRecord(game *Game, finishedAt time.Time) *MatchRecord {
	return &MatchRecord{
		GameID:        game.ID,
		PlayerID:      game.PlayerID,
		Winner:        game.Outcome.Winner,
		Status:        game.Outcome.Status,
		MoveCount:     game.MoveCount,
		OracleMoves:   game.OracleMoves,
		FallbackMoves: game.FallbackMoves,
		Board:         game.Board,
		FinishedAt:    finishedAt,
	}
}
