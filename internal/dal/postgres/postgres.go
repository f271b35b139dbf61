package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/viper"
)

// Client represents a Postgres client.
type Client struct {
	pool *pgxpool.Pool
}

// Pool returns the underlying connection pool.
func (p *Client) Pool() *pgxpool.Pool {
	return p.pool
}

// Close closes the database connection for graceful shutdown.
func (p *Client) Close() {
	p.pool.Close()
}

func connString() string {
	if dsn := viper.GetString("postgres.dsn"); dsn != "" {
		return dsn
	}

	return fmt.Sprintf(
		"host=%s port=5432 user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("REGGW_PG_HOST"),
		os.Getenv("REGGW_PG_USER"),
		os.Getenv("REGGW_PG_PASSWORD"),
		os.Getenv("REGGW_PG_DB"),
	)
}

// MustNewClient connects to Postgres and applies the submission journal migrations.
func MustNewClient() *Client {
	config, err := pgxpool.ParseConfig(connString())
	if err != nil {
		panic(err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		panic(err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		panic(err)
	}

	// Run migrations using goose with stdlib adapter
	if err := goose.SetDialect("postgres"); err != nil {
		panic(err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := goose.Up(db, viper.GetString("postgres.migrations_path")); err != nil {
		panic(err)
	}
	if err := db.Close(); err != nil {
		slog.Warn("Failed to close migration connection", "error", err)
	}

	slog.Info("Postgres connected")

	return &Client{
		pool: pool,
	}
}
