package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// Open connects to the database. When a Turso URL is configured the remote
// libsql driver is used; otherwise a local sqlite file (path may be
// ":memory:" in tests).
func Open(tursoURL, tursoToken, path string) (*sqlx.DB, error) {
	var conn *sqlx.DB
	var err error

	if tursoURL != "" {
		dsn := fmt.Sprintf("%s?authToken=%s", tursoURL, tursoToken)
		conn, err = sqlx.Open("libsql", dsn)
	} else {
		if path == "" {
			path = "megasena.db"
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		conn, err = sqlx.Open("sqlite3", path+sep+"_foreign_keys=on")
	}
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	if err := createTables(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

func createTables(conn *sqlx.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'USER',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contests (
		id TEXT PRIMARY KEY,
		number INTEGER NOT NULL UNIQUE,
		prize_value TEXT NOT NULL,
		draw_date DATETIME NOT NULL,
		max_numbers INTEGER NOT NULL DEFAULT 30,
		status TEXT NOT NULL DEFAULT 'OPEN',
		drawn_numbers TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		contest_id TEXT NOT NULL,
		selected_numbers TEXT NOT NULL,
		hits INTEGER,
		created_at DATETIME NOT NULL,
		FOREIGN KEY(user_id) REFERENCES users(id),
		FOREIGN KEY(contest_id) REFERENCES contests(id)
	);

	CREATE INDEX IF NOT EXISTS idx_bets_contest ON bets(contest_id);
	CREATE INDEX IF NOT EXISTS idx_bets_user ON bets(user_id);
	CREATE INDEX IF NOT EXISTS idx_contests_status ON contests(status);
	`

	_, err := conn.Exec(query)
	return err
}
