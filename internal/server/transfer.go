package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// handleExport handles GET /api/datasets/{id}/export and writes the dataset
// in the portable text format.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Path: /api/datasets/{id}/export
	path := strings.TrimPrefix(r.URL.Path, "/api/datasets/")
	id := strings.TrimSuffix(path, "/export")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	ds, err := app.LoadDataset(s.config.Store, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Dataset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load dataset")
		return
	}

	filename := ds.Name()
	if filename == "" {
		filename = id
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".mudra"))
	if err := ds.Save(w); err != nil {
		// The status line is already out; all we can do is log.
		s.log.Errorf("exporting dataset %s: %v", id, err)
	}
}

// handleImport handles POST /api/datasets/import and creates a stored
// dataset from an uploaded dataset file. An optional name query parameter
// overrides the name recorded in the file.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ds, err := gesture.Load(r.Body)
	if err != nil {
		if errors.Is(err, gesture.ErrInvalidDataFile) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid dataset file")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = ds.Name()
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "Dataset name is required")
		return
	}

	_, err = s.config.Store.Datasets().GetByName(name)
	if err == nil {
		writeError(w, http.StatusConflict, "A dataset with this name already exists")
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to check dataset name")
		return
	}

	meta, err := app.SaveDataset(s.config.Store, uuid.New().String(), name, ds)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save dataset")
		return
	}

	s.log.Infof("imported dataset %q with %d samples", name, meta.Samples)
	writeJSON(w, http.StatusCreated, meta)
}
