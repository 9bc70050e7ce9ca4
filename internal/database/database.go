package database

import (
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/config"
)

// Connect opens the telemetry store. Batch runs hold few connections, so the
// pool stays small.
func Connect() (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect telemetry store: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}
