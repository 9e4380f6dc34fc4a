package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-oracle/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-oracle/internal/entity"
	"github.com/rocketscienceinc/tictactoe-oracle/internal/usecase"
)

type mockGameManager struct {
	mock.Mock
}

func (that *mockGameManager) GetOrCreatePlayer(ctx context.Context, id string) (*entity.Player, error) {
	args := that.Called(ctx, id)
	player, _ := args.Get(0).(*entity.Player)
	return player, args.Error(1)
}

func (that *mockGameManager) GetOrCreateGame(ctx context.Context, playerID string) (*entity.Game, error) {
	args := that.Called(ctx, playerID)
	game, _ := args.Get(0).(*entity.Game)
	return game, args.Error(1)
}

func (that *mockGameManager) GetGame(ctx context.Context, playerID string) (*entity.Game, error) {
	args := that.Called(ctx, playerID)
	game, _ := args.Get(0).(*entity.Game)
	return game, args.Error(1)
}

func (that *mockGameManager) MakeTurn(ctx context.Context, playerID string, row, col int) (*usecase.TurnResult, error) {
	args := that.Called(ctx, playerID, row, col)
	result, _ := args.Get(0).(*usecase.TurnResult)
	return result, args.Error(1)
}

func (that *mockGameManager) ResetGame(ctx context.Context, playerID string) (*entity.Game, error) {
	args := that.Called(ctx, playerID)
	game, _ := args.Get(0).(*entity.Game)
	return game, args.Error(1)
}

// dial starts a test server and connects with the given session cookie.
func dial(t *testing.T, games gameManager, session string) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(New(slog.New(slog.DiscardHandler), games).Handler())
	t.Cleanup(server.Close)

	header := http.Header{}
	if session != "" {
		header.Set("Cookie", sessionCookie+"="+session)
	}

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = resp.Body.Close()
		_ = conn.Close()
	})

	return conn
}

func exchange(t *testing.T, conn *websocket.Conn, action string, payload any) (string, Payload) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Message{Action: action, Payload: raw}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))

	var payloadResp Payload
	require.NoError(t, json.Unmarshal(reply.Payload, &payloadResp))

	return reply.Action, payloadResp
}

func newGames(t *testing.T) *mockGameManager {
	t.Helper()

	games := new(mockGameManager)
	t.Cleanup(func() { games.AssertExpectations(t) })

	return games
}

func TestServer_Connect(t *testing.T) {
	t.Run("Uses the session cookie when no player is sent", func(t *testing.T) {
		// Given: A client with a session cookie
		games := newGames(t)
		games.On("GetOrCreatePlayer", mock.Anything, "session-1").Return(&entity.Player{ID: "session-1"}, nil).Once()
		conn := dial(t, games, "session-1")

		// When: Sending connect without a player
		action, payload := exchange(t, conn, "connect", Payload{})

		// Then: The session player is returned without a game
		assert.Equal(t, "connect", action)
		require.NotNil(t, payload.Player)
		assert.Equal(t, "session-1", payload.Player.ID)
		assert.Nil(t, payload.Game)
	})

	t.Run("Returns the current game of a known player", func(t *testing.T) {
		// Given: A player already in a game
		games := newGames(t)
		games.On("GetOrCreatePlayer", mock.Anything, "player-1").
			Return(&entity.Player{ID: "player-1", GameID: "game-1"}, nil).
			Once()
		games.On("GetGame", mock.Anything, "player-1").Return(entity.NewGame("game-1", "player-1"), nil).Once()
		conn := dial(t, games, "")

		// When: Connecting with the player ID
		_, payload := exchange(t, conn, "connect", Payload{Player: &entity.Player{ID: "player-1"}})

		// Then: The game is included in the reply
		require.NotNil(t, payload.Game)
		assert.Equal(t, "game-1", payload.Game.ID)
	})
}

func TestServer_GameTurn(t *testing.T) {
	t.Run("Replies with the game and the AI move", func(t *testing.T) {
		// Given: A game manager answering the move
		games := newGames(t)
		game := entity.NewGame("game-1", "player-1")
		game.Board = entity.Board{entity.PlayerX, "", "", "", entity.PlayerO, "", "", "", ""}
		aiMove := &entity.AIMove{Cell: entity.Center, Source: entity.SourceFallback}
		games.On("MakeTurn", mock.Anything, "player-1", 0, 0).
			Return(&usecase.TurnResult{Game: game, AIMove: aiMove}, nil).
			Once()
		conn := dial(t, games, "")

		// When: Sending a turn
		action, payload := exchange(t, conn, "game:turn", Payload{
			Player: &entity.Player{ID: "player-1"},
			Cell:   &entity.Cell{Row: 0, Col: 0},
		})

		// Then: The reply carries the board and the AI move
		assert.Equal(t, "game:turn", action)
		assert.Empty(t, payload.Error)
		require.NotNil(t, payload.Game)
		assert.Equal(t, game.Board, payload.Game.Board)
		assert.Equal(t, aiMove, payload.AIMove)
	})

	t.Run("Reports an invalid move", func(t *testing.T) {
		// Given: A game manager rejecting the move
		games := newGames(t)
		games.On("MakeTurn", mock.Anything, "player-1", 1, 1).
			Return(nil, apperror.ErrInvalidMove).
			Once()
		conn := dial(t, games, "")

		// When: Sending the move
		_, payload := exchange(t, conn, "game:turn", Payload{
			Player: &entity.Player{ID: "player-1"},
			Cell:   &entity.Cell{Row: 1, Col: 1},
		})

		// Then: The domain error is passed to the client
		assert.Equal(t, apperror.ErrInvalidMove.Error(), payload.Error)
	})

	t.Run("Hides internal errors", func(t *testing.T) {
		// Given: A failing storage behind the game manager
		games := newGames(t)
		games.On("MakeTurn", mock.Anything, "player-1", 1, 1).
			Return(nil, errors.New("redis down")).
			Once()
		conn := dial(t, games, "")

		// When: Sending the move
		_, payload := exchange(t, conn, "game:turn", Payload{
			Player: &entity.Player{ID: "player-1"},
			Cell:   &entity.Cell{Row: 1, Col: 1},
		})

		// Then: A generic message is returned
		assert.Equal(t, "failed to make turn", payload.Error)
	})

	t.Run("Requires a cell", func(t *testing.T) {
		// Given: A connected client
		conn := dial(t, newGames(t), "")

		// When: Sending a turn without a cell
		_, payload := exchange(t, conn, "game:turn", Payload{Player: &entity.Player{ID: "player-1"}})

		// Then: The request is rejected
		assert.Equal(t, "Cell is required", payload.Error)
	})
}

func TestServer_GameLifecycle(t *testing.T) {
	// Given: A game manager for the session player
	games := newGames(t)
	games.On("GetOrCreateGame", mock.Anything, "session-1").Return(entity.NewGame("game-1", "session-1"), nil).Once()
	games.On("ResetGame", mock.Anything, "session-1").Return(entity.NewGame("game-1", "session-1"), nil).Once()
	games.On("GetGame", mock.Anything, "session-1").Return(nil, apperror.ErrGameNotFound).Once()
	conn := dial(t, games, "session-1")

	// When: Starting, resetting and reading the game
	_, created := exchange(t, conn, "game:new", Payload{})
	_, reset := exchange(t, conn, "game:reset", Payload{})
	_, state := exchange(t, conn, "game:state", Payload{})

	// Then: Each action is answered in order
	require.NotNil(t, created.Game)
	assert.Equal(t, "game-1", created.Game.ID)
	assert.Equal(t, "game-1", created.Player.GameID)
	require.NotNil(t, reset.Game)
	assert.Equal(t, entity.PhaseAwaitingPlayerMove, reset.Game.Phase)
	assert.Equal(t, apperror.ErrGameNotFound.Error(), state.Error)
}

func TestServer_UnknownAction(t *testing.T) {
	// Given: A connected client
	conn := dial(t, newGames(t), "")

	// When: Sending an action the server does not know
	action, payload := exchange(t, conn, "game:join", Payload{})

	// Then: An error reply is sent for that action
	assert.Equal(t, "game:join", action)
	assert.Equal(t, "unknown action", payload.Error)
}
