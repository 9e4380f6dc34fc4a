package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/tictactoe-oracle/internal/entity"
	"github.com/rocketscienceinc/tictactoe-oracle/internal/usecase"
)

type gameManager interface {
	GetOrCreatePlayer(ctx context.Context, id string) (*entity.Player, error)
	GetOrCreateGame(ctx context.Context, playerID string) (*entity.Game, error)
	GetGame(ctx context.Context, playerID string) (*entity.Game, error)
	MakeTurn(ctx context.Context, playerID string, row, col int) (*usecase.TurnResult, error)
	ResetGame(ctx context.Context, playerID string) (*entity.Game, error)
	History(ctx context.Context, playerID string, limit int) ([]*entity.MatchRecord, error)
}

// NewRouter - builds the REST API over the game manager.
func NewRouter(logger *slog.Logger, games gameManager) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	h := newHandlers(logger, games)

	router.GET("/ping", h.Ping)

	router.POST("/players", h.CreatePlayer)

	router.POST("/games", h.NewGame)
	router.GET("/games/current", h.CurrentGame)
	router.POST("/games/turn", h.MakeTurn)
	router.POST("/games/reset", h.ResetGame)

	router.GET("/history", h.History)

	return router
}

// Start - runs the HTTP server until ctx is canceled.
func Start(ctx context.Context, port string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
