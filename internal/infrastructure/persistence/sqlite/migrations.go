package sqlite

import "database/sql"

func RunMigrations(db *sql.DB) error {
	stmts := []string{

		`CREATE TABLE IF NOT EXISTS payment_intents (
			id TEXT PRIMARY KEY,
			amount INTEGER NOT NULL,
			currency TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '{}',
			external_order_id TEXT UNIQUE,
			state TEXT NOT NULL,
			external_payment_id TEXT,
			created_at INTEGER NOT NULL,
			resolved_at INTEGER
		);`,

		`CREATE TABLE IF NOT EXISTS outbox_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload BLOB NOT NULL,
			published INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);`,

		`CREATE INDEX IF NOT EXISTS outbox_events_unpublished
			ON outbox_events (published, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
