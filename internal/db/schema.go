package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the base database schema. Columns added after the first release
// live in columnMigrations so that older store files pick them up too.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id          TEXT PRIMARY KEY,
    username    TEXT NOT NULL UNIQUE,
    password    TEXT NOT NULL,
    firstname   TEXT NOT NULL DEFAULT '',
    lastname    TEXT NOT NULL DEFAULT '',
    email       TEXT NOT NULL UNIQUE,
    role        TEXT NOT NULL DEFAULT 'viewer' CHECK (role IN ('admin', 'staff', 'viewer')),
    permissions TEXT NOT NULL DEFAULT '{}',
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS supplies (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL DEFAULT '',
    quantity     INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    unit         TEXT NOT NULL DEFAULT '',
    min_quantity INTEGER NOT NULL DEFAULT 0 CHECK (min_quantity >= 0),
    status       TEXT NOT NULL DEFAULT 'Low',
    location     TEXT NOT NULL DEFAULT '',
    supplier     TEXT NOT NULL DEFAULT '',
    cost         REAL,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_supplies_name ON supplies(name);

CREATE TABLE IF NOT EXISTS supply_histories (
    id                TEXT PRIMARY KEY,
    supply_id         TEXT NOT NULL,
    action            TEXT NOT NULL CHECK (action IN ('Stock In', 'Stock Out', 'Item Updated', 'Delete')),
    quantity          INTEGER NOT NULL DEFAULT 0,
    previous_quantity INTEGER NOT NULL DEFAULT 0,
    new_quantity      INTEGER NOT NULL DEFAULT 0,
    notes             TEXT NOT NULL DEFAULT '',
    user_id           TEXT NOT NULL,
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_supply_histories_supply ON supply_histories(supply_id);
CREATE INDEX IF NOT EXISTS idx_supply_histories_created ON supply_histories(created_at);

CREATE TABLE IF NOT EXISTS password_reset_tokens (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    token      TEXT NOT NULL UNIQUE,
    expires_at DATETIME NOT NULL,
    used       BOOLEAN NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(ctx context.Context, db sqlx.ExecerContext) error {
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
