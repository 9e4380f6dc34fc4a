package tictactoe

import "github.com/rocketscienceinc/tictactoe-oracle/internal/entity"

// EvaluateOutcome checks whether mark owns a full line, then whether the board is full.
// Lines are checked in the order of entity.WinCombos.
func EvaluateOutcome(board entity.Board, mark entity.Mark) entity.Outcome {
	if mark != entity.EmptyCell {
		for _, combo := range entity.WinCombos {
			if board[combo[0]] == mark && board[combo[1]] == mark && board[combo[2]] == mark {
				return entity.Outcome{
					Status: entity.StatusWin,
					Winner: mark,
					WinningLine: []entity.Cell{
						entity.CellFromIndex(combo[0]),
						entity.CellFromIndex(combo[1]),
						entity.CellFromIndex(combo[2]),
					},
				}
			}
		}
	}

	if board.IsFull() {
		return entity.Outcome{Status: entity.StatusDraw}
	}

	return entity.Outcome{Status: entity.StatusInProgress}
}

// findWinningCell returns the first empty cell, row-major, that completes a line for mark.
func findWinningCell(board entity.Board, mark entity.Mark) (entity.Cell, bool) {
	for _, cell := range board.EmptyCells() {
		board[cell.Index()] = mark
		outcome := EvaluateOutcome(board, mark)
		board[cell.Index()] = entity.EmptyCell

		if outcome.Status == entity.StatusWin {
			return cell, true
		}
	}

	return entity.Cell{}, false
}
