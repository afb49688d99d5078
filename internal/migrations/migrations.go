// Package migrations holds the warehouse schema, applied with goose.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var files embed.FS

// Dialect is the goose dialect of the warehouse.
const Dialect = "clickhouse"

// Up applies every pending migration.
func Up(db *sql.DB) error {
	goose.SetBaseFS(files)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(Dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return goose.Up(db, ".")
}

// Status logs the state of every migration.
func Status(db *sql.DB) error {
	goose.SetBaseFS(files)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(Dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return goose.Status(db, ".")
}
