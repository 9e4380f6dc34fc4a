package entity

import (
	"errors"
	"fmt"
)

// Mark is the content of a board cell.
type Mark string

const (
	PlayerX Mark = "X"
	PlayerO Mark = "O"

	EmptyCell Mark = ""
)

// Phase is the engine state of a game.
type Phase string

const (
	PhaseAwaitingPlayerMove Phase = "awaiting_player_move"
	PhaseAwaitingAIMove     Phase = "awaiting_ai_move"
	PhaseAIMovePending      Phase = "ai_move_pending"
	PhaseGameOver           Phase = "game_over"
)

const (
	StatusInProgress = "in_progress"
	StatusWin        = "win"
	StatusDraw       = "draw"
)

const (
	SourceOracle   = "oracle"
	SourceFallback = "fallback"
)

const BoardSize = 3

var (
	ErrInvalidCell = errors.New("invalid cell")

	// WinCombos lists the rows, columns, main diagonal and anti-diagonal, in that order.
	WinCombos = [][3]int{
		{0, 1, 2},
		{3, 4, 5},
		{6, 7, 8},
		{0, 3, 6},
		{1, 4, 7},
		{2, 5, 8},
		{0, 4, 8},
		{2, 4, 6},
	}

	Corners = []Cell{{0, 0}, {0, 2}, {2, 0}, {2, 2}}
	Center  = Cell{1, 1}
)

// Cell is a (row, col) coordinate on the board.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func CellFromIndex(index int) Cell {
	return Cell{Row: index / BoardSize, Col: index % BoardSize}
}

func (that Cell) InRange() bool {
	return that.Row >= 0 && that.Row < BoardSize && that.Col >= 0 && that.Col < BoardSize
}

func (that Cell) Index() int {
	return that.Row*BoardSize + that.Col
}

func (that Cell) String() string {
	return fmt.Sprintf("(%d,%d)", that.Row, that.Col)
}

// Board is stored row-major.
type Board [9]Mark

func (that *Board) At(cell Cell) Mark {
	return that[cell.Index()]
}

func (that *Board) IsEmptyAt(cell Cell) bool {
	return cell.InRange() && that[cell.Index()] == EmptyCell
}

func (that *Board) IsFull() bool {
	for _, mark := range that {
		if mark == EmptyCell {
			return false
		}
	}

	return true
}

func (that *Board) Count(mark Mark) int {
	count := 0
	for _, cell := range that {
		if cell == mark {
			count++
		}
	}

	return count
}

// EmptyCells returns the empty cells in row-major order.
func (that *Board) EmptyCells() []Cell {
	cells := make([]Cell, 0, len(that))
	for i, mark := range that {
		if mark == EmptyCell {
			cells = append(cells, CellFromIndex(i))
		}
	}

	return cells
}

// Outcome is derived from the board after each move.
type Outcome struct {
	Status      string `json:"status"`
	Winner      Mark   `json:"winner,omitempty"`
	WinningLine []Cell `json:"winning_line,omitempty"`
}

func (that Outcome) IsFinished() bool {
	return that.Status == StatusWin || that.Status == StatusDraw
}

// AIMove is the last move chosen for the automated player.
type AIMove struct {
	Cell   Cell   `json:"cell"`
	Source string `json:"source"`
}

// Game is a snapshot of a single match.
type Game struct {
	ID        string  `json:"id"`
	PlayerID  string  `json:"player_id,omitempty"`
	Board     Board   `json:"board"`
	Phase     Phase   `json:"phase"`
	Turn      Mark    `json:"player_turn"`
	Outcome   Outcome `json:"outcome"`
	MoveCount int     `json:"move_count"`
	LastAI    *AIMove `json:"last_ai_move,omitempty"`

	OracleMoves   int `json:"oracle_moves"`
	FallbackMoves int `json:"fallback_moves"`
}

func NewGame(id, playerID string) *Game {
	return &Game{
		ID:       id,
		PlayerID: playerID,
		Phase:    PhaseAwaitingPlayerMove,
		Turn:     PlayerX,
		Outcome:  Outcome{Status: StatusInProgress},
	}
}

// MoveNumber is the human-facing round number, starting at 1.
func (that *Game) MoveNumber() int {
	return that.MoveCount/2 + 1
}

func (that *Game) IsFinished() bool {
	return that.Phase == PhaseGameOver
}

// Clone returns a deep copy safe to hand to callers.
func (that *Game) Clone() *Game {
	clone := *that
	if that.Outcome.WinningLine != nil {
		clone.Outcome.WinningLine = append([]Cell(nil), that.Outcome.WinningLine...)
	}
	if that.LastAI != nil {
		lastAI := *that.LastAI
		clone.LastAI = &lastAI
	}

	return &clone
}
