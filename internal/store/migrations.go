package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Datasets table - one row per named training set
		`CREATE TABLE IF NOT EXISTS datasets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			dimensions INTEGER NOT NULL,
			samples INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Dataset samples table - one row per recorded time series,
		// the series itself serialized as JSON
		`CREATE TABLE IF NOT EXISTS dataset_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
			label INTEGER NOT NULL,
			position INTEGER NOT NULL,
			length INTEGER NOT NULL,
			series TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_dataset_samples_dataset_id ON dataset_samples(dataset_id)`,
		`CREATE INDEX IF NOT EXISTS idx_dataset_samples_label ON dataset_samples(dataset_id, label)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
