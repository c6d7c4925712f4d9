package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// column is an additive schema change: the column is added only when the
// table does not have it yet. Columns are never dropped or renamed.
type column struct {
	table      string
	name       string
	definition string
}

// columnMigrations is applied in order after schema creation. Append new
// columns at the end.
var columnMigrations = []column{
	{"supplies", "subcategory", "TEXT NOT NULL DEFAULT ''"},
	{"supplies", "variation", "TEXT NOT NULL DEFAULT ''"},
	{"supplies", "brand", "TEXT NOT NULL DEFAULT ''"},
	{"supplies", "supplier_name", "TEXT NOT NULL DEFAULT ''"},
	{"supplies", "supplier_contact", "TEXT NOT NULL DEFAULT ''"},
	{"supplies", "supplier_notes", "TEXT NOT NULL DEFAULT ''"},
	{"supplies", "pieces_per_bulk", "INTEGER NOT NULL DEFAULT 12"},
	{"supply_histories", "supply_name", "TEXT NOT NULL DEFAULT ''"},
}

// Migrate creates the schema and adds any missing columns.
func Migrate(ctx context.Context, db sqlx.ExtContext) error {
	if err := EnsureSchema(ctx, db); err != nil {
		return err
	}

	for i, c := range columnMigrations {
		ok, err := HasColumn(ctx, db, c.table, c.name)
		if err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
		if ok {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.name, c.definition)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}

// HasColumn reports whether table has a column called name.
func HasColumn(ctx context.Context, db sqlx.QueryerContext, table, name string) (bool, error) {
	rows, err := db.QueryxContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("reading table info for %s: %w", table, err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		col := map[string]any{}
		if err := rows.MapScan(col); err != nil {
			return false, fmt.Errorf("scanning table info for %s: %w", table, err)
		}
		switch v := col["name"].(type) {
		case string:
			found = found || v == name
		case []byte:
			found = found || string(v) == name
		}
	}
	return found, rows.Err()
}
