package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/aviroy619/rabbitloader-chat/pkg/logging"
)

// Pool sizing for the knowledge store. Every chat turn issues at most
// three concurrent tier probes plus a health ping, so a small pool is
// plenty.
const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
)

// Connect opens the pgvector-backed Postgres database and verifies it
// is reachable before handing the pool out.
func Connect(url string, logger logging.Logger) (*sql.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	logger.WithFields(logging.Fields{
		"max_open_conns": maxOpenConns,
		"max_idle_conns": maxIdleConns,
	}).Info("Database connected")

	return db, nil
}

// MustConnect is like Connect but exits the process on error.
func MustConnect(url string, logger logging.Logger) *sql.DB {
	db, err := Connect(url, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	return db
}
