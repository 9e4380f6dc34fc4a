package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/tictactoe-oracle/internal/apperror"
)

type handlers struct {
	logger *slog.Logger
	games  gameManager
}

func newHandlers(logger *slog.Logger, games gameManager) *handlers {
	return &handlers{
		logger: logger.With("component", "rest"),
		games:  games,
	}
}

type playerRequest struct {
	PlayerID string `json:"player_id"`
}

type turnRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
	Row      *int   `json:"row" binding:"required"`
	Col      *int   `json:"col" binding:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (that *handlers) CreatePlayer(c *gin.Context) {
	var req playerRequest
	// an empty body asks for a new player
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	player, err := that.games.GetOrCreatePlayer(c.Request.Context(), req.PlayerID)
	if err != nil {
		that.fail(c, "CreatePlayer", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"player": player})
}

func (that *handlers) NewGame(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PlayerID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "player_id is required"})
		return
	}

	game, err := that.games.GetOrCreateGame(c.Request.Context(), req.PlayerID)
	if err != nil {
		that.fail(c, "NewGame", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": game})
}

func (that *handlers) CurrentGame(c *gin.Context) {
	playerID := c.Query("player_id")
	if playerID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "player_id is required"})
		return
	}

	game, err := that.games.GetGame(c.Request.Context(), playerID)
	if err != nil {
		that.fail(c, "CurrentGame", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": game})
}

func (that *handlers) MakeTurn(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "player_id, row and col are required"})
		return
	}

	result, err := that.games.MakeTurn(c.Request.Context(), req.PlayerID, *req.Row, *req.Col)
	if err != nil {
		that.fail(c, "MakeTurn", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": result.Game, "ai_move": result.AIMove})
}

func (that *handlers) ResetGame(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PlayerID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "player_id is required"})
		return
	}

	game, err := that.games.ResetGame(c.Request.Context(), req.PlayerID)
	if err != nil {
		that.fail(c, "ResetGame", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": game})
}

func (that *handlers) History(c *gin.Context) {
	playerID := c.Query("player_id")
	if playerID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "player_id is required"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive number"})
			return
		}
		limit = parsed
	}

	matches, err := that.games.History(c.Request.Context(), playerID, limit)
	if err != nil {
		that.fail(c, "History", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (that *handlers) fail(c *gin.Context, method string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "method", method, "error", err)
		c.JSON(status, errorResponse{Error: http.StatusText(status)})
		return
	}

	c.JSON(status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrInvalidMove):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrGameNotActive), errors.Is(err, apperror.ErrGameReset):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrGameNotFound), errors.Is(err, apperror.ErrPlayerNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
