package storage

import (
	"context"
	"database/sql"
	"fmt"

	// import the SQLite driver to register it with the database/sql package.
	_ "modernc.org/sqlite"
)

type SQLiteStorage struct {
	Connection *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &SQLiteStorage{Connection: conn}, nil
}

// Init creates the match history schema.
func (that *SQLiteStorage) Init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			game_id        TEXT    PRIMARY KEY,
			player_id      TEXT    NOT NULL,
			status         TEXT    NOT NULL,
			winner         TEXT    NOT NULL DEFAULT '',
			move_count     INTEGER NOT NULL,
			oracle_moves   INTEGER NOT NULL DEFAULT 0,
			fallback_moves INTEGER NOT NULL DEFAULT 0,
			board          TEXT    NOT NULL,
			finished_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_player_id ON matches(player_id, finished_at)`,
	}

	for _, query := range statements {
		if _, err := that.Connection.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("can't create table: %w", err)
		}
	}

	return nil
}

func (that *SQLiteStorage) Close() error {
	return that.Connection.Close()
}
