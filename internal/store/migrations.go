package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Alerts table - one row per dispatched alert
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			category TEXT NOT NULL CHECK(category IN ('shake', 'drowsy', 'generic')),
			message TEXT NOT NULL,
			has_image INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL CHECK(status IN ('sent', 'failed')),
			error TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_category ON alerts(category)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
