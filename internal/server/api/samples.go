package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// SamplesHandler handles HTTP requests for training sample resources.
type SamplesHandler struct {
	store *store.Store
}

// NewSamplesHandler creates a new SamplesHandler with the given store.
func NewSamplesHandler(s *store.Store) *SamplesHandler {
	return &SamplesHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/datasets/{id}/samples
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Parse dataset ID from path: /api/datasets/{id}/samples
	path := strings.TrimPrefix(r.URL.Path, "/api/datasets/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[1] != "samples" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	datasetID := parts[0]

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, datasetID)
	case http.MethodPost:
		h.create(w, r, datasetID)
	case http.MethodDelete:
		h.clear(w, r, datasetID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request types

type sampleInput struct {
	Label  uint64      `json:"label"`
	Series [][]float64 `json:"series"`
}

type createSamplesRequest struct {
	Samples []sampleInput `json:"samples"`
}

// Response types

type sampleResponse struct {
	ID        int64       `json:"id"`
	DatasetID string      `json:"dataset_id"`
	Label     uint64      `json:"label"`
	Position  int         `json:"position"`
	Length    int         `json:"length"`
	Series    [][]float64 `json:"series"`
	CreatedAt string      `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

// list handles GET /api/datasets/{id}/samples
func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request, datasetID string) {
	samples, err := h.store.Samples().ListByDataset(datasetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{
		Samples: make([]sampleResponse, 0, len(samples)),
	}

	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:        s.ID,
			DatasetID: s.DatasetID,
			Label:     s.Label,
			Position:  s.Position,
			Length:    s.Length,
			Series:    s.Series,
			CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/datasets/{id}/samples
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request, datasetID string) {
	// Verify dataset exists and get its dimensionality for validation
	dataset, err := h.store.Datasets().GetByID(datasetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Dataset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to verify dataset")
		return
	}

	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	inputs := make([]store.SampleInput, 0, len(req.Samples))
	for i, s := range req.Samples {
		if err := validateSample(s, dataset.Dimensions); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("sample %d: %v", i, err))
			return
		}
		inputs = append(inputs, store.SampleInput{Label: s.Label, Series: s.Series})
	}

	if err := h.store.Samples().Create(datasetID, inputs); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "ok",
		"added":  len(inputs),
	})
}

// clear handles DELETE /api/datasets/{id}/samples and removes all samples
// while keeping the dataset itself.
func (h *SamplesHandler) clear(w http.ResponseWriter, r *http.Request, datasetID string) {
	if err := h.store.Samples().DeleteByDataset(datasetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Dataset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// validateSample checks one uploaded sample against the dataset shape.
func validateSample(s sampleInput, dims int) error {
	if s.Label == gesture.NullGestureLabel {
		return fmt.Errorf("label %d is reserved for the null gesture", gesture.NullGestureLabel)
	}
	if len(s.Series) == 0 {
		return errors.New("series must contain at least one observation")
	}
	for j, row := range s.Series {
		if len(row) != dims {
			return fmt.Errorf("observation %d has %d dimensions, dataset expects %d", j, len(row), dims)
		}
	}
	return nil
}
