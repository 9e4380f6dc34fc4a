package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-oracle/internal/config"
	"github.com/rocketscienceinc/tictactoe-oracle/internal/entity"
	"github.com/rocketscienceinc/tictactoe-oracle/internal/oracle"
	"github.com/rocketscienceinc/tictactoe-oracle/internal/repository"
	"github.com/rocketscienceinc/tictactoe-oracle/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-oracle/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-oracle/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-oracle/transport/rest"
	"github.com/rocketscienceinc/tictactoe-oracle/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}

	defer func() {
		if err = sqliteStorage.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}()

	if err = sqliteStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite storage: %w", err)
	}

	playerRepo := repository.NewPlayerRepository(redisStorage.Connection)
	gameRepo := repository.NewGameRepository(redisStorage.Connection)
	matchRepo := repository.NewMatchRepository(sqliteStorage.Connection)

	gameManager := usecase.NewGameManager(logger, playerRepo, gameRepo, matchRepo, newEngineFactory(logger, conf))

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(ctx, conf.HTTPPort, rest.NewRouter(logger, gameManager)); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, gameManager)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// newEngineFactory - builds engines with the oracle when it is enabled, fallback-only otherwise.
func newEngineFactory(logger *slog.Logger, conf *config.Config) usecase.EngineFactory {
	opts := []tictactoe.Option{
		tictactoe.WithLogger(logger),
		tictactoe.WithOracleTimeout(conf.Oracle.Timeout),
	}

	if conf.Oracle.Enabled {
		opts = append(opts, tictactoe.WithOracle(oracle.New(logger, oracle.Config{
			APIKey:  conf.Oracle.APIKey,
			Model:   conf.Oracle.Model,
			BaseURL: conf.Oracle.BaseURL,
			Timeout: conf.Oracle.Timeout,
		})))
	} else {
		logger.Info("oracle disabled, using rule-based moves only")
	}

	return func(game *entity.Game) *tictactoe.Engine {
		return tictactoe.Restore(game, opts...)
	}
}
