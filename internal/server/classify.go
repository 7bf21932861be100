package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// Request types for the classifier endpoints.

type trainRequest struct {
	DatasetID string `json:"dataset_id"`
}

type predictRequest struct {
	Series [][]float64 `json:"series"`
}

type recordStartRequest struct {
	Label uint64 `json:"label"`
}

type recordStopRequest struct {
	DatasetID string `json:"dataset_id"`
}

// diagnosticsResponse mirrors gesture.Diagnostics with the cost matrices
// expanded to plain grids.
type diagnosticsResponse struct {
	Labels       []uint64             `json:"labels"`
	Thresholds   []float64            `json:"thresholds"`
	WindowLength int                  `json:"window_length"`
	CostMatrices [][][]float64        `json:"cost_matrices,omitempty"`
	WarpPaths    [][]gesture.PathStep `json:"warp_paths,omitempty"`
}

// handleStatus handles GET /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := s.config.App.Status()
	if status.LastPrediction != nil {
		pred := sanitizePrediction(*status.LastPrediction)
		status.LastPrediction = &pred
	}

	writeJSON(w, http.StatusOK, status)
}

// handleTrain handles POST /api/train and trains the classifier on a stored
// dataset.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.DatasetID == "" {
		writeError(w, http.StatusBadRequest, "dataset_id is required")
		return
	}

	if err := s.config.App.Train(req.DatasetID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Dataset not found")
		case errors.Is(err, gesture.ErrEmptyDataset),
			errors.Is(err, gesture.ErrInsufficientData),
			errors.Is(err, gesture.ErrInvalidConfig):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Training failed")
		}
		return
	}

	d := s.config.App.Diagnostics()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dataset_id":    req.DatasetID,
		"labels":        d.Labels,
		"thresholds":    d.Thresholds,
		"window_length": d.WindowLength,
	})
}

// handlePredict handles POST /api/predict and classifies a complete series.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	series := make(gesture.TimeSeries, len(req.Series))
	for i, row := range req.Series {
		series[i] = gesture.Vector(row)
	}

	pred, err := s.config.App.Predict(series)
	if err != nil {
		switch {
		case errors.Is(err, gesture.ErrNotTrained):
			writeError(w, http.StatusConflict, "Classifier is not trained")
		case errors.Is(err, gesture.ErrEmptySeries),
			errors.Is(err, gesture.ErrDimensionMismatch):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Prediction failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, sanitizePrediction(pred))
}

// handleRecordStart handles POST /api/record/start.
func (s *Server) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req recordStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := s.config.App.StartRecording(req.Label); err != nil {
		switch {
		case errors.Is(err, gesture.ErrNullLabel):
			writeError(w, http.StatusBadRequest, "label 0 is reserved for the null gesture")
		case errors.Is(err, app.ErrAlreadyRecording):
			writeError(w, http.StatusConflict, "Recording already in progress")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to start recording")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "recording",
		"label":  req.Label,
	})
}

// handleRecordStop handles POST /api/record/stop and commits the recorded
// series as a training sample.
func (s *Server) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req recordStopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.DatasetID == "" {
		writeError(w, http.StatusBadRequest, "dataset_id is required")
		return
	}

	result, err := s.config.App.StopRecording(req.DatasetID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNotRecording):
			writeError(w, http.StatusConflict, "No recording in progress")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Dataset not found")
		case errors.Is(err, app.ErrNothingRecorded),
			errors.Is(err, gesture.ErrDimensionMismatch):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Failed to commit recording")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleRecordCancel handles POST /api/record/cancel.
func (s *Server) handleRecordCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.config.App.CancelRecording(); err != nil {
		if errors.Is(err, app.ErrNotRecording) {
			writeError(w, http.StatusConflict, "No recording in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to cancel recording")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleWindow handles GET /api/window and returns the rolling
// classification window.
func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	window := s.config.App.Window()
	if window == nil {
		window = gesture.TimeSeries{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"window": window,
		"length": len(window),
	})
}

// handleDiagnostics handles GET /api/diagnostics and exposes the most
// recent alignment artifacts for visualization.
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	d := s.config.App.Diagnostics()
	response := diagnosticsResponse{
		Labels:       d.Labels,
		Thresholds:   d.Thresholds,
		WindowLength: d.WindowLength,
		WarpPaths:    d.WarpPaths,
	}

	if len(d.CostMatrices) > 0 {
		response.CostMatrices = make([][][]float64, len(d.CostMatrices))
		for i, m := range d.CostMatrices {
			if m == nil {
				continue
			}
			grid := m.Grid()
			for _, row := range grid {
				for j, v := range row {
					row[j] = jsonFinite(v)
				}
			}
			response.CostMatrices[i] = grid
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// jsonFinite caps +Inf, which encoding/json cannot represent, to the
// largest finite float64.
func jsonFinite(v float64) float64 {
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	return v
}

// sanitizePrediction returns a copy of pred that is safe to JSON-encode.
// An impossible alignment reports a +Inf distance internally.
func sanitizePrediction(pred gesture.Prediction) gesture.Prediction {
	pred.Threshold = jsonFinite(pred.Threshold)
	if len(pred.Distances) == 0 {
		return pred
	}
	distances := make([]float64, len(pred.Distances))
	for i, d := range pred.Distances {
		distances[i] = jsonFinite(d)
	}
	pred.Distances = distances
	return pred
}
