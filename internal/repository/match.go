package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-oracle/internal/entity"
)

const defaultHistoryLimit = 20

type MatchRepository interface {
	Save(ctx context.Context, match *entity.MatchRecord) error
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]*entity.MatchRecord, error)
}

type matchRepository struct {
	conn *sql.DB
}

func NewMatchRepository(conn *sql.DB) MatchRepository {
	return &matchRepository{
		conn: conn,
	}
}

func (that *matchRepository) Save(ctx context.Context, match *entity.MatchRecord) error {
	query := `INSERT OR REPLACE INTO matches
		(game_id, player_id, status, winner, move_count, oracle_moves, fallback_moves, board, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	board, err := json.Marshal(match.Board)
	if err != nil {
		return fmt.Errorf("can't marshal board: %w", err)
	}

	_, err = that.conn.ExecContext(ctx, query,
		match.GameID,
		match.PlayerID,
		match.Status,
		string(match.Winner),
		match.MoveCount,
		match.OracleMoves,
		match.FallbackMoves,
		string(board),
		match.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("can't save match: %w", err)
	}

	return nil
}

// ListByPlayer returns the player's matches, newest first.
func (that *matchRepository) ListByPlayer(ctx context.Context, playerID string, limit int) ([]*entity.MatchRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := `SELECT game_id, player_id, status, winner, move_count, oracle_moves, fallback_moves, board, finished_at
		FROM matches WHERE player_id = ? ORDER BY finished_at DESC LIMIT ?`

	rows, err := that.conn.QueryContext(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("can't list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*entity.MatchRecord, 0, limit)
	for rows.Next() {
		var (
			match      entity.MatchRecord
			winner     string
			board      string
			finishedAt int64
		)

		err = rows.Scan(
			&match.GameID,
			&match.PlayerID,
			&match.Status,
			&winner,
			&match.MoveCount,
			&match.OracleMoves,
			&match.FallbackMoves,
			&board,
			&finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("can't scan match: %w", err)
		}

		if err = json.Unmarshal([]byte(board), &match.Board); err != nil {
			return nil, fmt.Errorf("can't unmarshal board: %w", err)
		}

		match.Winner = entity.Mark(winner)
		match.FinishedAt = time.UnixMilli(finishedAt).UTC()
		matches = append(matches, &match)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't iterate matches: %w", err)
	}

	return matches, nil
}
