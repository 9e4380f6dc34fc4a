package tictactoe

import (
	"errors"
	"math/rand"
	"time"

	"github.com/rocketscienceinc/tictactoe-oracle/internal/entity"
)

var ErrNoAvailableMoves = errors.New("no available moves")

// Strategist is the rule-based move policy used whenever the oracle gives no usable answer.
type Strategist struct {
	rnd *rand.Rand
}

func NewStrategist(seed int64) *Strategist {
	return &Strategist{
		rnd: rand.New(rand.NewSource(seed)), //nolint: gosec // corner choice only
	}
}

func NewRandomStrategist() *Strategist {
	return NewStrategist(time.Now().UnixNano())
}

// ChooseMove picks a cell for mark, first applicable rule wins:
// win, block, center, random open corner, first open cell.
func (that *Strategist) ChooseMove(board entity.Board, mark entity.Mark) (entity.Cell, error) {
	if cell, ok := findWinningCell(board, mark); ok {
		return cell, nil
	}

	if cell, ok := findWinningCell(board, opponent(mark)); ok {
		return cell, nil
	}

	if board.IsEmptyAt(entity.Center) {
		return entity.Center, nil
	}

	openCorners := make([]entity.Cell, 0, len(entity.Corners))
	for _, corner := range entity.Corners {
		if board.IsEmptyAt(corner) {
			openCorners = append(openCorners, corner)
		}
	}

	if len(openCorners) > 0 {
		return openCorners[that.rnd.Intn(len(openCorners))], nil
	}

	emptyCells := board.EmptyCells()
	if len(emptyCells) == 0 {
		return entity.Cell{}, ErrNoAvailableMoves
	}

	return emptyCells[0], nil
}

func opponent(mark entity.Mark) entity.Mark {
	if mark == entity.PlayerX {
		return entity.PlayerO
	}
	return entity.PlayerX
}
