package postgres

import (
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"invoxtract/internal/config"
)

// NewDB connects to PostgreSQL and applies the pool limits from cfg.
func NewDB(cfg *config.DBConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres.NewDB: connecting to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}
	ConfigurePool(db, cfg)
	log.Printf("postgres.NewDB: connected to %s:%d/%s (max_open=%d max_idle=%d max_lifetime=%s)",
		cfg.Host, cfg.Port, cfg.Name, cfg.MaxOpen, cfg.MaxIdle, cfg.MaxLifetime)
	return db, nil
}

// ConfigurePool sets connection limits. Idle connections never exceed MaxOpen.
func ConfigurePool(db *sqlx.DB, cfg *config.DBConfig) {
	idle := cfg.MaxIdle
	if cfg.MaxOpen > 0 && idle > cfg.MaxOpen {
		idle = cfg.MaxOpen
	}
	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(cfg.MaxLifetime)
}
