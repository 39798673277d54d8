// ABOUTME: SQLite schema for the snapshot tables
// ABOUTME: One table per entity kind holding the JSON-encoded entity keyed by id
package db

import (
	"database/sql"
)

// tables lists the snapshot tables in load order.
var tables = []string{"contacts", "leads", "campaigns", "documents"}

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id INTEGER PRIMARY KEY,
	data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS leads (
	id INTEGER PRIMARY KEY,
	data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS campaigns (
	id INTEGER PRIMARY KEY,
	data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY,
	data TEXT NOT NULL
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
