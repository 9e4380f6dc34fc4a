package tictactoe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-oracle/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-oracle/internal/entity"
)

const defaultOracleTimeout = 10 * time.Second

// Oracle suggests a move for a prompt. Its replies are advisory and always validated.
type Oracle interface {
	SuggestMove(ctx context.Context, prompt string) (string, error)
}

type Option func(*Engine)

func WithOracle(oracle Oracle) Option {
	return func(that *Engine) {
		that.oracle = oracle
	}
}

func WithOracleTimeout(timeout time.Duration) Option {
	return func(that *Engine) {
		if timeout > 0 {
			that.oracleTimeout = timeout
		}
	}
}

func WithStrategist(strategist *Strategist) Option {
	return func(that *Engine) {
		that.strategist = strategist
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(that *Engine) {
		that.logger = logger
	}
}

// Engine owns a single game. The human plays X, the engine plays O.
type Engine struct {
	mu         sync.Mutex
	game       *entity.Game
	generation uint64

	oracle        Oracle
	oracleTimeout time.Duration
	strategist    *Strategist
	logger        *slog.Logger
}

// AIMoveResult is returned once the automated move has been applied.
type AIMoveResult struct {
	Move entity.AIMove
	Game *entity.Game
}

func NewEngine(gameID, playerID string, opts ...Option) *Engine {
	return Restore(entity.NewGame(gameID, playerID), opts...)
}

// Restore rebuilds an engine around a stored snapshot.
// A snapshot saved while the oracle was pending resumes as awaiting the AI move.
func Restore(game *entity.Game, opts ...Option) *Engine {
	engine := &Engine{
		game:          game.Clone(),
		oracleTimeout: defaultOracleTimeout,
	}

	for _, opt := range opts {
		opt(engine)
	}

	if engine.strategist == nil {
		engine.strategist = NewRandomStrategist()
	}

	if engine.logger == nil {
		engine.logger = slog.New(slog.DiscardHandler)
	}

	engine.logger = engine.logger.With("component", "engine", "gameID", game.ID)

	if engine.game.Phase == entity.PhaseAIMovePending {
		engine.game.Phase = entity.PhaseAwaitingAIMove
	}

	return engine
}

func (that *Engine) Snapshot() *entity.Game {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.game.Clone()
}

// Reset clears the board. Any AI move in flight is abandoned.
func (that *Engine) Reset() *entity.Game {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.game = entity.NewGame(that.game.ID, that.game.PlayerID)
	that.generation++

	return that.game.Clone()
}

// ApplyHumanMove places X at (row, col).
func (that *Engine) ApplyHumanMove(row, col int) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.game.IsFinished() {
		return that.game.Clone(), apperror.ErrGameNotActive
	}

	if that.game.Phase != entity.PhaseAwaitingPlayerMove {
		return that.game.Clone(), fmt.Errorf("%w: %w", apperror.ErrInvalidMove, apperror.ErrNotYourTurn)
	}

	cell := entity.Cell{Row: row, Col: col}
	if err := validateMove(&that.game.Board, cell); err != nil {
		return that.game.Clone(), err
	}

	that.applyMove(cell, entity.PlayerX)

	return that.game.Clone(), nil
}

// RequestAIMove selects and applies an O move. The oracle is consulted without holding
// the lock; meanwhile the game stays in PhaseAIMovePending and refuses human moves.
func (that *Engine) RequestAIMove(ctx context.Context) (*AIMoveResult, error) {
	that.mu.Lock()

	if that.game.IsFinished() {
		that.mu.Unlock()
		return nil, apperror.ErrGameNotActive
	}

	if that.game.Phase != entity.PhaseAwaitingAIMove {
		that.mu.Unlock()
		return nil, apperror.ErrNotYourTurn
	}

	that.game.Phase = entity.PhaseAIMovePending
	board := that.game.Board
	moveCount := that.game.MoveCount
	generation := that.generation

	that.mu.Unlock()

	move, err := that.selectMove(ctx, board, moveCount)

	that.mu.Lock()
	defer that.mu.Unlock()

	if generation != that.generation {
		return nil, apperror.ErrGameReset
	}

	if err != nil {
		that.game.Phase = entity.PhaseAwaitingAIMove
		return nil, fmt.Errorf("failed to select ai move: %w", err)
	}

	that.applyMove(move.Cell, entity.PlayerO)

	that.game.LastAI = &move
	if move.Source == entity.SourceOracle {
		that.game.OracleMoves++
	} else {
		that.game.FallbackMoves++
	}

	return &AIMoveResult{Move: move, Game: that.game.Clone()}, nil
}

func (that *Engine) selectMove(ctx context.Context, board entity.Board, moveCount int) (entity.AIMove, error) {
	if cell, ok := that.askOracle(ctx, board, moveCount); ok {
		return entity.AIMove{Cell: cell, Source: entity.SourceOracle}, nil
	}

	cell, err := that.strategist.ChooseMove(board, entity.PlayerO)
	if err != nil {
		return entity.AIMove{}, err
	}

	return entity.AIMove{Cell: cell, Source: entity.SourceFallback}, nil
}

// askOracle never returns an error: every failure means "use the fallback".
func (that *Engine) askOracle(ctx context.Context, board entity.Board, moveCount int) (entity.Cell, bool) {
	if that.oracle == nil {
		return entity.Cell{}, false
	}

	log := that.logger.With("method", "askOracle")

	ctx, cancel := context.WithTimeout(ctx, that.oracleTimeout)
	defer cancel()

	reply, err := that.oracle.SuggestMove(ctx, BuildMovePrompt(board, moveCount))
	if err != nil {
		log.Warn("oracle request failed, using fallback", "error", err)
		return entity.Cell{}, false
	}

	cell, err := ParseMove(reply)
	if err != nil {
		log.Warn("oracle reply rejected, using fallback", "error", err)
		return entity.Cell{}, false
	}

	if err = validateMove(&board, cell); err != nil {
		log.Warn("oracle move rejected, using fallback", "cell", cell.String(), "error", err)
		return entity.Cell{}, false
	}

	log.Debug("oracle move accepted", "cell", cell.String())

	return cell, true
}

// applyMove must be called with the lock held and a validated cell.
func (that *Engine) applyMove(cell entity.Cell, mark entity.Mark) {
	that.game.Board[cell.Index()] = mark
	that.game.MoveCount++
	that.game.Outcome = EvaluateOutcome(that.game.Board, mark)

	if that.game.Outcome.IsFinished() {
		that.game.Phase = entity.PhaseGameOver
		that.game.Turn = entity.EmptyCell
		return
	}

	that.game.Turn = opponent(mark)
	if mark == entity.PlayerX {
		that.game.Phase = entity.PhaseAwaitingAIMove
	} else {
		that.game.Phase = entity.PhaseAwaitingPlayerMove
	}
}

// validateMove - checks that the cell is on the board and empty.
func validateMove(board *entity.Board, cell entity.Cell) error {
	if !cell.InRange() {
		return fmt.Errorf("%w: %w %s", apperror.ErrInvalidMove, entity.ErrInvalidCell, cell)
	}

	if !board.IsEmptyAt(cell) {
		return fmt.Errorf("%w: cell %s is already occupied", apperror.ErrInvalidMove, cell)
	}

	return nil
}
