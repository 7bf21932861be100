package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Dataset represents a named training set stored in the database. Samples
// holds the denormalized count of recorded series.
type Dataset struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Dimensions int       `json:"dimensions"`
	Samples    int       `json:"samples"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DatasetRepository provides CRUD operations for datasets.
type DatasetRepository struct {
	db *sql.DB
}

// Datasets returns the dataset repository for this store.
func (s *Store) Datasets() *DatasetRepository {
	return &DatasetRepository{db: s.db}
}

// Create inserts a new dataset into the database.
func (r *DatasetRepository) Create(d *Dataset) error {
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO datasets (id, name, dimensions, samples, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Dimensions, d.Samples, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return err
	}

	return nil
}

// GetByID retrieves a dataset by its ID.
func (r *DatasetRepository) GetByID(id string) (*Dataset, error) {
	d := &Dataset{}

	err := r.db.QueryRow(
		`SELECT id, name, dimensions, samples, created_at, updated_at
		 FROM datasets WHERE id = ?`,
		id,
	).Scan(&d.ID, &d.Name, &d.Dimensions, &d.Samples, &d.CreatedAt, &d.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return d, nil
}

// GetByName retrieves a dataset by its name.
func (r *DatasetRepository) GetByName(name string) (*Dataset, error) {
	d := &Dataset{}

	err := r.db.QueryRow(
		`SELECT id, name, dimensions, samples, created_at, updated_at
		 FROM datasets WHERE name = ?`,
		name,
	).Scan(&d.ID, &d.Name, &d.Dimensions, &d.Samples, &d.CreatedAt, &d.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return d, nil
}

// List retrieves all datasets from the database.
func (r *DatasetRepository) List() ([]*Dataset, error) {
	rows, err := r.db.Query(
		`SELECT id, name, dimensions, samples, created_at, updated_at
		 FROM datasets ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []*Dataset
	for rows.Next() {
		d := &Dataset{}
		err := rows.Scan(&d.ID, &d.Name, &d.Dimensions, &d.Samples, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return datasets, nil
}

// Update updates an existing dataset in the database.
func (r *DatasetRepository) Update(d *Dataset) error {
	d.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE datasets SET name = ?, dimensions = ?, samples = ?, updated_at = ?
		 WHERE id = ?`,
		d.Name, d.Dimensions, d.Samples, d.UpdatedAt, d.ID,
	)
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

	return nil
}

// Delete removes a dataset from the database by its ID. Samples cascade.
func (r *DatasetRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM datasets WHERE id = ?`, id)
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

	return nil
}
