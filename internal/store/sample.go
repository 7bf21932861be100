package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Sample represents a recorded time series stored in the database.
type Sample struct {
	ID        int64       `json:"id"`
	DatasetID string      `json:"dataset_id"`
	Label     uint64      `json:"label"`
	Position  int         `json:"position"`
	Length    int         `json:"length"`
	Series    [][]float64 `json:"series"`
	CreatedAt time.Time   `json:"created_at"`
}

// SampleInput is one series to insert into a dataset.
type SampleInput struct {
	Label  uint64      `json:"label"`
	Series [][]float64 `json:"series"`
}

// SampleRepository provides CRUD operations for dataset samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create appends samples to a dataset in a single transaction, assigning
// positions after the existing ones. It also updates the sample count on
// the dataset.
func (r *SampleRepository) Create(datasetID string, samples []SampleInput) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var base int
	err = tx.QueryRow(`SELECT samples FROM datasets WHERE id = ?`, datasetID).Scan(&base)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO dataset_samples (dataset_id, label, position, length, series)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, in := range samples {
		data, err := json.Marshal(in.Series)
		if err != nil {
			return fmt.Errorf("marshal series %d: %w", i, err)
		}
		if _, err := stmt.Exec(datasetID, int64(in.Label), base+i, len(in.Series), string(data)); err != nil {
			return err
		}
	}

	// Update sample count on the dataset
	_, err = tx.Exec(`UPDATE datasets SET samples = ?, updated_at = ? WHERE id = ?`,
		base+len(samples), time.Now(), datasetID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ListByDataset retrieves all samples of a dataset in recording order.
func (r *SampleRepository) ListByDataset(datasetID string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, dataset_id, label, position, length, series, created_at
		 FROM dataset_samples
		 WHERE dataset_id = ?
		 ORDER BY position`,
		datasetID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var label int64
		var data string
		if err := rows.Scan(&s.ID, &s.DatasetID, &label, &s.Position, &s.Length, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Label = uint64(label)
		if err := json.Unmarshal([]byte(data), &s.Series); err != nil {
			return nil, fmt.Errorf("unmarshal series of sample %d: %w", s.ID, err)
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// DeleteByDataset removes all samples of a dataset and resets its sample
// count.
func (r *SampleRepository) DeleteByDataset(datasetID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM dataset_samples WHERE dataset_id = ?`, datasetID); err != nil {
		return err
	}

	result, err := tx.Exec(`UPDATE datasets SET samples = 0, updated_at = ? WHERE id = ?`,
		time.Now(), datasetID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}
