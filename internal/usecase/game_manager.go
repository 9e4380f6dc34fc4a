package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-oracle/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-oracle/internal/entity"
	"github.com/rocketscienceinc/tictactoe-oracle/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-oracle/internal/tictactoe"
)

type playerRepo interface {
	CreateOrUpdate(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
}

type gameRepo interface {
	CreateOrUpdate(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	DeleteByID(ctx context.Context, id string) error
}

type matchRepo interface {
	Save(ctx context.Context, match *entity.MatchRecord) error
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]*entity.MatchRecord, error)
}

// EngineFactory builds an engine around a new or stored game.
type EngineFactory func(game *entity.Game) *tictactoe.Engine

// TurnResult carries the state after the human move and after the AI reply.
type TurnResult struct {
	Human  *entity.Game   `json:"human"`
	AIMove *entity.AIMove `json:"ai_move,omitempty"`
	Game   *entity.Game   `json:"game"`
}

type GameManager struct {
	logger     *slog.Logger
	playerRepo playerRepo
	gameRepo   gameRepo
	matchRepo  matchRepo
	newEngine  EngineFactory
	now        func() time.Time

	enginesMutex sync.RWMutex
	engines      map[string]*tictactoe.Engine
}

func NewGameManager(logger *slog.Logger, playerRepo playerRepo, gameRepo gameRepo, matchRepo matchRepo, newEngine EngineFactory) *GameManager {
	if newEngine == nil {
		newEngine = func(game *entity.Game) *tictactoe.Engine {
			return tictactoe.Restore(game, tictactoe.WithLogger(logger))
		}
	}

	return &GameManager{
		logger: logger.With("component", "gameManager"),

		playerRepo: playerRepo,
		gameRepo:   gameRepo,
		matchRepo:  matchRepo,
		newEngine:  newEngine,
		now:        time.Now,

		engines: make(map[string]*tictactoe.Engine),
	}
}

func (that *GameManager) GetOrCreatePlayer(ctx context.Context, id string) (*entity.Player, error) {
	if id == "" {
		player, err := that.createPlayer(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create new player: %w", err)
		}

		return player, nil
	}

	player, err := that.playerRepo.GetByID(ctx, id)
	if errors.Is(err, apperror.ErrPlayerNotFound) {
		player = &entity.Player{ID: id}
		if err = that.updatePlayer(ctx, player); err != nil {
			return nil, fmt.Errorf("failed to register player: %w", err)
		}

		return player, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	return player, nil
}

// GetOrCreateGame returns the player's game in progress, or starts a new one.
func (that *GameManager) GetOrCreateGame(ctx context.Context, playerID string) (*entity.Game, error) {
	player, err := that.getPlayerByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed get player by id: %w", err)
	}

	if player.GameID != "" {
		engine, err := that.engineFor(ctx, player.GameID)
		switch {
		case err == nil:
			game, err := that.resumeAIMove(ctx, engine)
			if err != nil {
				return nil, fmt.Errorf("failed get game: %w", err)
			}

			if !game.IsFinished() {
				return game, nil
			}
		case !errors.Is(err, apperror.ErrGameNotFound):
			return nil, fmt.Errorf("failed get game: %w", err)
		}
	}

	game, err := that.createGame(ctx, player)
	if err != nil {
		return nil, fmt.Errorf("failed create game: %w", err)
	}

	return game, nil
}

// GetGame returns the snapshot of the player's current or last finished game.
func (that *GameManager) GetGame(ctx context.Context, playerID string) (*entity.Game, error) {
	player, err := that.getPlayerByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed get player by id: %w", err)
	}

	if player.GameID == "" {
		return nil, apperror.ErrGameNotFound
	}

	engine, err := that.engineFor(ctx, player.GameID)
	if err != nil {
		return nil, fmt.Errorf("failed get game: %w", err)
	}

	game, err := that.resumeAIMove(ctx, engine)
	if err != nil {
		return nil, fmt.Errorf("failed get game: %w", err)
	}

	return game, nil
}

// MakeTurn applies the human move at (row, col) and, unless that ended the game, the AI reply.
func (that *GameManager) MakeTurn(ctx context.Context, playerID string, row, col int) (*TurnResult, error) {
	log := that.logger.With("method", "MakeTurn", "playerID", playerID)

	player, err := that.getPlayerByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed get player by id: %w", err)
	}

	if player.GameID == "" {
		return nil, apperror.ErrGameNotFound
	}

	engine, err := that.engineFor(ctx, player.GameID)
	if err != nil {
		return nil, fmt.Errorf("failed get game: %w", err)
	}

	if _, err = that.resumeAIMove(ctx, engine); err != nil {
		return nil, fmt.Errorf("failed get game: %w", err)
	}

	human, err := engine.ApplyHumanMove(row, col)
	if err != nil {
		return nil, fmt.Errorf("failed make turn: %w", err)
	}

	result := &TurnResult{Human: human, Game: human}

	if !human.IsFinished() {
		// the AI move is still made; its snapshot is written below
		if err = that.updateGame(ctx, human); err != nil {
			log.Warn("failed to store human move", "error", err)
		}

		aiResult, err := engine.RequestAIMove(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed ai turn: %w", err)
		}

		result.AIMove = &aiResult.Move
		result.Game = aiResult.Game

		log.Info("ai moved", "cell", aiResult.Move.Cell.String(), "source", aiResult.Move.Source)
	}

	if err = that.updateGame(ctx, result.Game); err != nil {
		return nil, fmt.Errorf("failed update game: %w", err)
	}

	if result.Game.IsFinished() {
		that.recordMatch(ctx, result.Game)
	}

	return result, nil
}

// ResetGame restarts the player's game. A finished game is replaced by a new one.
func (that *GameManager) ResetGame(ctx context.Context, playerID string) (*entity.Game, error) {
	player, err := that.getPlayerByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed get player by id: %w", err)
	}

	if player.GameID == "" {
		return that.createGame(ctx, player)
	}

	engine, err := that.engineFor(ctx, player.GameID)
	if errors.Is(err, apperror.ErrGameNotFound) {
		return that.createGame(ctx, player)
	}

	if err != nil {
		return nil, fmt.Errorf("failed get game: %w", err)
	}

	if engine.Snapshot().IsFinished() {
		that.dropEngine(player.GameID)
		return that.createGame(ctx, player)
	}

	game := engine.Reset()
	if err = that.updateGame(ctx, game); err != nil {
		return nil, fmt.Errorf("failed update game: %w", err)
	}

	return game, nil
}

func (that *GameManager) History(ctx context.Context, playerID string, limit int) ([]*entity.MatchRecord, error) {
	matches, err := that.matchRepo.ListByPlayer(ctx, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	return matches, nil
}

func (that *GameManager) createGame(ctx context.Context, player *entity.Player) (*entity.Game, error) {
	if player.GameID != "" {
		that.deleteGame(ctx, player.GameID)
	}

	gameID := pkg.GenerateGameID()
	engine := that.newEngine(entity.NewGame(gameID, player.ID))
	game := engine.Snapshot()

	if err := that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	player.GameID = gameID
	if err := that.updatePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("failed update player: %w", err)
	}

	that.enginesMutex.Lock()
	that.engines[gameID] = engine
	that.enginesMutex.Unlock()

	return game, nil
}

// engineFor returns the live engine for a game, restoring it from storage when needed.
func (that *GameManager) engineFor(ctx context.Context, gameID string) (*tictactoe.Engine, error) {
	that.enginesMutex.RLock()
	engine, ok := that.engines[gameID]
	that.enginesMutex.RUnlock()

	if ok {
		return engine, nil
	}

	game, err := that.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	that.enginesMutex.Lock()
	defer that.enginesMutex.Unlock()

	if engine, ok = that.engines[gameID]; ok {
		return engine, nil
	}

	engine = that.newEngine(game)
	that.engines[gameID] = engine

	return engine, nil
}

// resumeAIMove completes an AI move left waiting by a failed write or a restart.
func (that *GameManager) resumeAIMove(ctx context.Context, engine *tictactoe.Engine) (*entity.Game, error) {
	game := engine.Snapshot()
	if game.Phase != entity.PhaseAwaitingAIMove {
		return game, nil
	}

	log := that.logger.With("method", "resumeAIMove", "gameID", game.ID)

	aiResult, err := engine.RequestAIMove(ctx)
	switch {
	case errors.Is(err, apperror.ErrNotYourTurn), errors.Is(err, apperror.ErrGameReset):
		// another request already owns the move
		return engine.Snapshot(), nil
	case err != nil:
		return nil, fmt.Errorf("failed ai turn: %w", err)
	}

	log.Info("resumed ai move", "cell", aiResult.Move.Cell.String(), "source", aiResult.Move.Source)

	if err = that.updateGame(ctx, aiResult.Game); err != nil {
		log.Warn("failed to store resumed move", "error", err)
	}

	if aiResult.Game.IsFinished() {
		that.recordMatch(ctx, aiResult.Game)
	}

	return aiResult.Game, nil
}

func (that *GameManager) dropEngine(gameID string) {
	that.enginesMutex.Lock()
	delete(that.engines, gameID)
	that.enginesMutex.Unlock()
}

// recordMatch stores the finished game in the history; failures are only logged.
func (that *GameManager) recordMatch(ctx context.Context, game *entity.Game) {
	log := that.logger.With("method", "recordMatch", "gameID", game.ID)

	if err := that.matchRepo.Save(ctx, entity.NewMatchRecord(game, that.now())); err != nil {
		log.Error("failed to save match", "error", err)
		return
	}

	log.Info("game finished", "status", game.Outcome.Status, "winner", game.Outcome.Winner)
}

func (that *GameManager) updateGame(ctx context.Context, game *entity.Game) error {
	if err := that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	return nil
}

func (that *GameManager) deleteGame(ctx context.Context, gameID string) {
	log := that.logger.With("method", "deleteGame", "gameID", gameID)

	that.dropEngine(gameID)

	if err := that.gameRepo.DeleteByID(ctx, gameID); err != nil && !errors.Is(err, apperror.ErrGameNotFound) {
		log.Error("failed to delete game", "error", err)
	}
}

func (that *GameManager) createPlayer(ctx context.Context) (*entity.Player, error) {
	player := &entity.Player{
		ID: pkg.GenerateNewSessionID(),
	}

	if err := that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	return player, nil
}

func (that *GameManager) getPlayerByID(ctx context.Context, id string) (*entity.Player, error) {
	player, err := that.playerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return player, nil
}

func (that *GameManager) updatePlayer(ctx context.Context, player *entity.Player) error {
	if err := that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}

	return nil
}
