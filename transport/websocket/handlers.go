package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-oracle/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-oracle/internal/entity"
)

func (that *Server) handleConnect(ctx context.Context, msg *Message, conn *connection) error {
	log := that.logger.With("method", "handleConnect")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return conn.sendError(msg.Action, "malformed payload")
	}

	player, err := that.games.GetOrCreatePlayer(ctx, playerIDFrom(payloadReq, conn))
	if err != nil {
		log.Error("failed to create or get player", "error", err)
		return conn.sendError(msg.Action, "failed to create a new player")
	}

	payloadResp := Payload{Player: player}

	if player.GameID != "" {
		game, err := that.games.GetGame(ctx, player.ID)
		switch {
		case err == nil:
			payloadResp.Game = game
		case !errors.Is(err, apperror.ErrGameNotFound):
			log.Error("failed to get game", "gameID", player.GameID, "error", err)
		}
	}

	if err = conn.sendMessage(msg.Action, payloadResp); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	log.Info("successfully connected player", "playerID", player.ID)

	return nil
}

func (that *Server) handleNewGame(ctx context.Context, msg *Message, conn *connection) error {
	log := that.logger.With("method", "handleNewGame")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return conn.sendError(msg.Action, "malformed payload")
	}

	playerID := playerIDFrom(payloadReq, conn)

	game, err := that.games.GetOrCreateGame(ctx, playerID)
	if err != nil {
		log.Error("failed to create or get game", "playerID", playerID, "error", err)
		return conn.sendError(msg.Action, clientError(err, "failed to create a new game"))
	}

	return that.sendGame(conn, msg.Action, playerID, game)
}

func (that *Server) handleGameTurn(ctx context.Context, msg *Message, conn *connection) error {
	log := that.logger.With("method", "handleGameTurn")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return conn.sendError(msg.Action, "malformed payload")
	}

	if payloadReq.Cell == nil {
		log.Error("Cell is missing in payload")
		return conn.sendError(msg.Action, "Cell is required")
	}

	playerID := playerIDFrom(payloadReq, conn)
	log = log.With("playerID", playerID)

	result, err := that.games.MakeTurn(ctx, playerID, payloadReq.Cell.Row, payloadReq.Cell.Col)
	if err != nil {
		log.Warn("failed to make turn", "error", err)
		return conn.sendError(msg.Action, clientError(err, "failed to make turn"))
	}

	payloadResp := Payload{
		Player: &entity.Player{ID: playerID, GameID: result.Game.ID},
		Game:   result.Game,
		AIMove: result.AIMove,
	}

	if err = conn.sendMessage(msg.Action, payloadResp); err != nil {
		return fmt.Errorf("failed to send game update: %w", err)
	}

	log.Info("Player made a turn", "gameID", result.Game.ID, "phase", result.Game.Phase)

	return nil
}

func (that *Server) handleGameReset(ctx context.Context, msg *Message, conn *connection) error {
	log := that.logger.With("method", "handleGameReset")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return conn.sendError(msg.Action, "malformed payload")
	}

	playerID := playerIDFrom(payloadReq, conn)

	game, err := that.games.ResetGame(ctx, playerID)
	if err != nil {
		log.Error("failed to reset game", "playerID", playerID, "error", err)
		return conn.sendError(msg.Action, clientError(err, "failed to reset game"))
	}

	return that.sendGame(conn, msg.Action, playerID, game)
}

func (that *Server) handleGameState(ctx context.Context, msg *Message, conn *connection) error {
	payloadReq, err := decodePayload(msg)
	if err != nil {
		return conn.sendError(msg.Action, "malformed payload")
	}

	playerID := playerIDFrom(payloadReq, conn)

	game, err := that.games.GetGame(ctx, playerID)
	if err != nil {
		return conn.sendError(msg.Action, clientError(err, "failed to get the game"))
	}

	return that.sendGame(conn, msg.Action, playerID, game)
}

func (that *Server) sendGame(conn *connection, action, playerID string, game *entity.Game) error {
	payloadResp := Payload{
		Player: &entity.Player{ID: playerID, GameID: game.ID},
		Game:   game,
	}

	if err := conn.sendMessage(action, payloadResp); err != nil {
		return fmt.Errorf("failed to send game: %w", err)
	}

	return nil
}

func playerIDFrom(payload Payload, conn *connection) string {
	if payload.Player != nil && payload.Player.ID != "" {
		return payload.Player.ID
	}

	return conn.sessionID
}

// clientError returns the error text for domain errors and fallback for everything else.
func clientError(err error, fallback string) string {
	for _, known := range []error{
		apperror.ErrInvalidMove,
		apperror.ErrGameNotActive,
		apperror.ErrGameReset,
		apperror.ErrGameNotFound,
		apperror.ErrPlayerNotFound,
	} {
		if errors.Is(err, known) {
			return err.Error()
		}
	}

	return fallback
}
