package tictactoe

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/tictactoe-oracle/internal/entity"
)

var ErrUnparsableMove = errors.New("oracle reply has no row,col pair")

const movePromptTemplate = `You are an expert Tic Tac Toe AI player (O) facing a human opponent (X).
Current board state (move %d):
%s

Analyze the board carefully and make the optimal move following these priorities:
1. Win immediately if possible
2. Block opponent's winning move
3. Create a fork (multiple winning possibilities)
4. Block opponent's potential fork
5. Take center if available (position 1,1)
6. Take opposite corner if opponent has a corner
7. Take empty corner
8. Take empty side

Additional strategic considerations:
- If it's early game (moves 1-2), prioritize corner control
- In mid-game (moves 3-5), look for fork opportunities
- In late game (moves 6+), focus on forcing moves
- Consider setting up multi-line threats
- Watch for opponent's trap setups

Game state analysis:
- Winning lines available: %s
- Open corners: %s
- Center status: %s

Respond ONLY with move coordinates (row,col). Example: "1,1" for center.`

var (
	// integers only: a pair touching a decimal point or another digit is not a move
	movePattern = regexp.MustCompile(`(?:^|[^\d.])(-?\d+)\s*,\s*(-?\d+)(?:[^\d.]|\.(?:\D|$)|$)`)

	lineNames = []string{
		"row 0", "row 1", "row 2",
		"column 0", "column 1", "column 2",
		"main diagonal", "anti-diagonal",
	}
)

// BuildMovePrompt renders the oracle request for the O player. Output depends only on its inputs.
func BuildMovePrompt(board entity.Board, moveCount int) string {
	center := "taken"
	if board.IsEmptyAt(entity.Center) {
		center = "open"
	}

	return fmt.Sprintf(movePromptTemplate,
		moveCount/2+1,
		RenderBoard(board),
		describeNearWins(board),
		describeOpenCorners(board),
		center,
	)
}

// RenderBoard draws the board as three rows separated by divider lines.
func RenderBoard(board entity.Board) string {
	var sb strings.Builder

	for row := range entity.BoardSize {
		for col := range entity.BoardSize {
			mark := board.At(entity.Cell{Row: row, Col: col})
			if mark == entity.EmptyCell {
				sb.WriteString(".")
			} else {
				sb.WriteString(string(mark))
			}
			if col < entity.BoardSize-1 {
				sb.WriteString("|")
			}
		}
		if row < entity.BoardSize-1 {
			sb.WriteString("\n-+-+-\n")
		}
	}

	return sb.String()
}

// describeNearWins lists lines holding two marks of one player and one empty cell.
func describeNearWins(board entity.Board) string {
	var lines []string

	for i, combo := range entity.WinCombos {
		counts := map[entity.Mark]int{}
		for _, index := range combo {
			counts[board[index]]++
		}

		if counts[entity.EmptyCell] != 1 {
			continue
		}

		switch {
		case counts[entity.PlayerO] == 2:
			lines = append(lines, lineNames[i])
		case counts[entity.PlayerX] == 2:
			lines = append(lines, "opponent "+lineNames[i])
		}
	}

	if len(lines) == 0 {
		return "none"
	}

	return strings.Join(lines, ", ")
}

func describeOpenCorners(board entity.Board) string {
	corners := make([]string, 0, len(entity.Corners))
	for _, corner := range entity.Corners {
		if board.IsEmptyAt(corner) {
			corners = append(corners, corner.String())
		}
	}

	if len(corners) == 0 {
		return "none"
	}

	return strings.Join(corners, ", ")
}

// ParseMove extracts the first "row,col" pair from a free-text reply.
// Range and occupancy are checked by the caller.
func ParseMove(reply string) (entity.Cell, error) {
	match := movePattern.FindStringSubmatch(reply)
	if match == nil {
		return entity.Cell{}, fmt.Errorf("%w: %q", ErrUnparsableMove, reply)
	}

	row, err := strconv.Atoi(match[1])
	if err != nil {
		return entity.Cell{}, fmt.Errorf("failed to parse row: %w", err)
	}

	col, err := strconv.Atoi(match[2])
	if err != nil {
		return entity.Cell{}, fmt.Errorf("failed to parse col: %w", err)
	}

	return entity.Cell{Row: row, Col: col}, nil
}
