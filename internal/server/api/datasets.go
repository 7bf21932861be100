// Package api provides HTTP API handlers for the Mudra gesture recognition system.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/store"
)

// DatasetHandler handles HTTP requests for training dataset resources.
type DatasetHandler struct {
	store *store.Store
}

// NewDatasetHandler creates a new DatasetHandler with the given store.
func NewDatasetHandler(s *store.Store) *DatasetHandler {
	return &DatasetHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *DatasetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Parse the path to determine if this is a collection or item request
	// Expected paths: /api/datasets or /api/datasets/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/datasets")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		// Collection endpoint: /api/datasets
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	// Item endpoint: /api/datasets/{id}
	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type createDatasetRequest struct {
	Name       string `json:"name"`
	Dimensions int    `json:"dimensions"`
}

type updateDatasetRequest struct {
	Name string `json:"name"`
}

type datasetResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Dimensions int    `json:"dimensions"`
	Samples    int    `json:"samples"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type listDatasetsResponse struct {
	Datasets []datasetResponse `json:"datasets"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toResponse converts a store.Dataset to a datasetResponse.
func toResponse(d *store.Dataset) datasetResponse {
	return datasetResponse{
		ID:         d.ID,
		Name:       d.Name,
		Dimensions: d.Dimensions,
		Samples:    d.Samples,
		CreatedAt:  d.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:  d.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/datasets and returns all datasets.
func (h *DatasetHandler) list(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.store.Datasets().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list datasets")
		return
	}

	response := listDatasetsResponse{
		Datasets: make([]datasetResponse, 0, len(datasets)),
	}

	for _, d := range datasets {
		response.Datasets = append(response.Datasets, toResponse(d))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/datasets/{id} and returns a single dataset.
func (h *DatasetHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	dataset, err := h.store.Datasets().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Dataset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get dataset")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(dataset))
}

// create handles POST /api/datasets and creates a new dataset.
func (h *DatasetHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Dimensions < 1 {
		writeError(w, http.StatusBadRequest, "dimensions must be at least 1")
		return
	}

	// Dataset names are unique; report a conflict up front
	_, err := h.store.Datasets().GetByName(req.Name)
	if err == nil {
		writeError(w, http.StatusConflict, "A dataset with this name already exists")
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to check dataset name")
		return
	}

	dataset := &store.Dataset{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Dimensions: req.Dimensions,
	}

	if err := h.store.Datasets().Create(dataset); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create dataset")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(dataset))
}

// update handles PUT /api/datasets/{id} and renames an existing dataset.
// The dimensionality is fixed at creation because stored samples depend on it.
func (h *DatasetHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	dataset, err := h.store.Datasets().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Dataset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get dataset")
		return
	}

	var req updateDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	if req.Name != dataset.Name {
		_, err := h.store.Datasets().GetByName(req.Name)
		if err == nil {
			writeError(w, http.StatusConflict, "A dataset with this name already exists")
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "Failed to check dataset name")
			return
		}
		dataset.Name = req.Name
	}

	if err := h.store.Datasets().Update(dataset); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update dataset")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(dataset))
}

// delete handles DELETE /api/datasets/{id} and removes a dataset with all
// its samples.
func (h *DatasetHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Datasets().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Dataset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete dataset")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
