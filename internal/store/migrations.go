package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per run of the controller
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			port TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			frames INTEGER NOT NULL DEFAULT 0
		)`,

		// Control events table - the control values produced for each frame
		`CREATE TABLE IF NOT EXISTS control_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			sequence INTEGER NOT NULL,
			offset_ms INTEGER NOT NULL,
			hands INTEGER NOT NULL,
			volume INTEGER NOT NULL CHECK(volume BETWEEN 0 AND 127),
			eq INTEGER NOT NULL CHECK(eq BETWEEN 0 AND 127),
			eq_present INTEGER NOT NULL DEFAULT 0,
			speed INTEGER NOT NULL CHECK(speed BETWEEN 0 AND 127),
			UNIQUE(session_id, sequence)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_control_events_session_id ON control_events(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
