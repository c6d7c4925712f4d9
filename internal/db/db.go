package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

func init() {
	sqlx.BindDriver(DriverName, sqlx.QUESTION)
}

// Open opens a SQLite database connection and configures pragmas.
//
// The pool is limited to a single connection: the store is a single local
// file and every command is serialized by store.Store anyway, and an
// in-memory database only exists for the lifetime of its connection.
func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName, dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	return db, nil
}

// dsn stores timestamps in SQLite's own text format so date functions such as
// julianday() can compare them.
func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path + "&_time_format=sqlite"
	}
	return path + "?_time_format=sqlite"
}
