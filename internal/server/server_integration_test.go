package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// testClassifierConfig suits the short straight-line series used below:
// trimming off, warping unconstrained, inputs offset to a common origin.
func testClassifierConfig() gesture.Config {
	return gesture.Config{
		NullRejectionEnabled: true,
		NullRejectionCoeff:   3,
		OffsetByFirstSample:  true,
		Metric:               gesture.MetricEuclidean,
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// postJSON posts v as a JSON body and fails the test on transport errors.
func postJSON(t *testing.T, client *http.Client, url string, v interface{}) *http.Response {
	t.Helper()

	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// seedDataset creates a two-class stroke dataset over the API and returns
// its ID. Label 1 holds horizontal strokes, label 2 vertical ones.
func seedDataset(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()

	resp := postJSON(t, client, baseURL+"/api/datasets", map[string]interface{}{
		"name":       "strokes",
		"dimensions": 2,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create dataset status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)

	resp = postJSON(t, client, baseURL+"/api/datasets/"+created.ID+"/samples", map[string]interface{}{
		"samples": []map[string]interface{}{
			{"label": 1, "series": [][]float64{{0, 0}, {1, 0}, {2, 0}, {3, 0}}},
			{"label": 1, "series": [][]float64{{0, 0}, {1, 0}, {2, 0}, {3.5, 0}}},
			{"label": 2, "series": [][]float64{{0, 0}, {0, 1}, {0, 2}, {0, 3}}},
			{"label": 2, "series": [][]float64{{0, 0}, {0, 1}, {0, 2}, {0, 3.5}}},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create samples status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	resp.Body.Close()

	return created.ID
}

func TestAPI_DatasetWorkflow(t *testing.T) {
	s := newTestStore(t)

	srv := New(Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Create a dataset with two samples
	id := seedDataset(t, client, ts.URL)

	// 2. List datasets
	resp, err := client.Get(ts.URL + "/api/datasets")
	if err != nil {
		t.Fatalf("GET /api/datasets error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/datasets status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var listed struct {
		Datasets []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Samples int    `json:"samples"`
		} `json:"datasets"`
	}
	decodeBody(t, resp, &listed)

	if len(listed.Datasets) != 1 {
		t.Fatalf("len(datasets) = %d, want 1", len(listed.Datasets))
	}
	if listed.Datasets[0].Samples != 4 {
		t.Errorf("dataset samples = %d, want 4", listed.Datasets[0].Samples)
	}

	// 3. Get single dataset
	resp, _ = client.Get(ts.URL + "/api/datasets/" + id)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/datasets/%s status = %d, want %d", id, resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// 4. List its samples
	resp, _ = client.Get(ts.URL + "/api/datasets/" + id + "/samples")
	var samples struct {
		Samples []struct {
			Label  uint64 `json:"label"`
			Length int    `json:"length"`
		} `json:"samples"`
	}
	decodeBody(t, resp, &samples)
	if len(samples.Samples) != 4 {
		t.Fatalf("len(samples) = %d, want 4", len(samples.Samples))
	}

	// 5. Delete the dataset
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/datasets/"+id, nil)
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	// 6. Verify deleted
	resp, _ = client.Get(ts.URL + "/api/datasets/" + id)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()
}

func TestAPI_ClassifierWorkflow(t *testing.T) {
	s := newTestStore(t)
	application := app.New(app.Config{Store: s, Classifier: testClassifierConfig()})

	srv := New(Config{Store: s, App: application})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// Predicting before training reports a conflict
	resp := postJSON(t, client, ts.URL+"/api/predict", map[string]interface{}{
		"series": [][]float64{{0, 0}, {1, 0}},
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("predict before train status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	resp.Body.Close()

	id := seedDataset(t, client, ts.URL)

	// Training an unknown dataset is a 404
	resp = postJSON(t, client, ts.URL+"/api/train", map[string]interface{}{"dataset_id": "missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("train missing dataset status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()

	// Train on the stored dataset
	resp = postJSON(t, client, ts.URL+"/api/train", map[string]interface{}{"dataset_id": id})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("train status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var trained struct {
		Labels       []uint64  `json:"labels"`
		Thresholds   []float64 `json:"thresholds"`
		WindowLength int       `json:"window_length"`
	}
	decodeBody(t, resp, &trained)
	if len(trained.Labels) != 2 || trained.Labels[0] != 1 || trained.Labels[1] != 2 {
		t.Errorf("trained labels = %v, want [1 2]", trained.Labels)
	}
	if trained.WindowLength != 4 {
		t.Errorf("window_length = %d, want 4", trained.WindowLength)
	}

	// A translated horizontal stroke classifies as label 1
	resp = postJSON(t, client, ts.URL+"/api/predict", map[string]interface{}{
		"series": [][]float64{{20, 9}, {21, 9}, {22, 9}, {23, 9}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("predict status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var pred gesture.Prediction
	decodeBody(t, resp, &pred)
	if pred.Label != 1 || pred.Rejected {
		t.Errorf("predict = label %d rejected %v, want label 1 accepted", pred.Label, pred.Rejected)
	}
	if len(pred.Distances) != 2 || len(pred.Likelihoods) != 2 {
		t.Errorf("predict artifacts = %d distances %d likelihoods, want 2 each",
			len(pred.Distances), len(pred.Likelihoods))
	}

	// A motionless series is rejected as the null gesture
	resp = postJSON(t, client, ts.URL+"/api/predict", map[string]interface{}{
		"series": [][]float64{{5, 5}, {5, 5}, {5, 5}, {5, 5}},
	})
	decodeBody(t, resp, &pred)
	if pred.Label != 0 || !pred.Rejected {
		t.Errorf("predict motionless = label %d rejected %v, want null label rejected", pred.Label, pred.Rejected)
	}

	// Wrong dimensionality is a 400
	resp = postJSON(t, client, ts.URL+"/api/predict", map[string]interface{}{
		"series": [][]float64{{1, 2, 3}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("predict wrong dims status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	resp.Body.Close()

	// Status reflects the trained model and the last prediction
	resp, err := client.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status error = %v", err)
	}
	var status struct {
		Trained        bool     `json:"trained"`
		TrainedDataset string   `json:"trained_dataset"`
		Labels         []uint64 `json:"labels"`
		WindowLength   int      `json:"window_length"`
		LastPrediction *struct {
			Label    uint64 `json:"label"`
			Rejected bool   `json:"rejected"`
		} `json:"last_prediction"`
	}
	decodeBody(t, resp, &status)
	if !status.Trained || status.TrainedDataset != id {
		t.Errorf("status = trained %v dataset %q, want trained on %q", status.Trained, status.TrainedDataset, id)
	}
	if status.LastPrediction == nil || !status.LastPrediction.Rejected {
		t.Errorf("status last_prediction = %+v, want the rejected prediction", status.LastPrediction)
	}

	// The rolling window is untouched by batch prediction
	resp, _ = client.Get(ts.URL + "/api/window")
	var window struct {
		Length int `json:"length"`
	}
	decodeBody(t, resp, &window)
	if window.Length != 0 {
		t.Errorf("window length = %d, want 0", window.Length)
	}

	// Diagnostics expose per-class alignment artifacts of the last predict
	resp, _ = client.Get(ts.URL + "/api/diagnostics")
	var diag struct {
		Labels       []uint64      `json:"labels"`
		Thresholds   []float64     `json:"thresholds"`
		WindowLength int           `json:"window_length"`
		CostMatrices [][][]float64 `json:"cost_matrices"`
	}
	decodeBody(t, resp, &diag)
	if len(diag.Labels) != 2 || len(diag.Thresholds) != 2 {
		t.Fatalf("diagnostics = %d labels %d thresholds, want 2 each", len(diag.Labels), len(diag.Thresholds))
	}
	if len(diag.CostMatrices) != 2 {
		t.Fatalf("cost matrices = %d, want 2", len(diag.CostMatrices))
	}
	if len(diag.CostMatrices[0]) != 4 {
		t.Errorf("cost matrix rows = %d, want 4 (one per input observation)", len(diag.CostMatrices[0]))
	}
}

func TestAPI_RecordingLifecycle(t *testing.T) {
	s := newTestStore(t)
	application := app.New(app.Config{Store: s, Classifier: testClassifierConfig()})

	srv := New(Config{Store: s, App: application})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()
	id := seedDataset(t, client, ts.URL)

	// The null label cannot be recorded
	resp := postJSON(t, client, ts.URL+"/api/record/start", map[string]interface{}{"label": 0})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("record null label status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	resp.Body.Close()

	// Start a recording
	resp = postJSON(t, client, ts.URL+"/api/record/start", map[string]interface{}{"label": 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("record start status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// A second start conflicts
	resp = postJSON(t, client, ts.URL+"/api/record/start", map[string]interface{}{"label": 3})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second record start status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	resp.Body.Close()

	// Without a running observation loop nothing was captured, so the
	// commit is rejected and the session ends.
	resp = postJSON(t, client, ts.URL+"/api/record/stop", map[string]interface{}{"dataset_id": id})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("record stop status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	resp.Body.Close()

	// Cancelling with no active session conflicts
	resp = postJSON(t, client, ts.URL+"/api/record/cancel", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("record cancel status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	resp.Body.Close()

	// Start and cancel cleanly
	resp = postJSON(t, client, ts.URL+"/api/record/start", map[string]interface{}{"label": 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("record start status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	resp = postJSON(t, client, ts.URL+"/api/record/cancel", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("record cancel status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()
}

func TestAPI_ExportImport(t *testing.T) {
	s := newTestStore(t)

	srv := New(Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()
	id := seedDataset(t, client, ts.URL)

	// Export the dataset as a portable text file
	resp, err := client.Get(ts.URL + "/api/datasets/" + id + "/export")
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "strokes.mudra") {
		t.Errorf("Content-Disposition = %q, want the dataset file name", cd)
	}
	exported, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read export body: %v", err)
	}
	if !strings.HasPrefix(string(exported), "MUDRA_TIME_SERIES_DATASET_V1") {
		t.Fatalf("export body does not start with the format header: %q", string(exported[:40]))
	}

	// Importing under the same name conflicts
	resp, err = client.Post(ts.URL+"/api/datasets/import", "text/plain", bytes.NewReader(exported))
	if err != nil {
		t.Fatalf("import error = %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("import duplicate name status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	resp.Body.Close()

	// Importing under a new name succeeds
	resp, err = client.Post(ts.URL+"/api/datasets/import?name=strokes-copy", "text/plain", bytes.NewReader(exported))
	if err != nil {
		t.Fatalf("import error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("import status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var imported struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Samples int    `json:"samples"`
	}
	decodeBody(t, resp, &imported)
	if imported.Name != "strokes-copy" {
		t.Errorf("imported name = %q, want strokes-copy", imported.Name)
	}
	if imported.Samples != 4 {
		t.Errorf("imported samples = %d, want 4", imported.Samples)
	}

	// The imported samples match the originals
	resp, _ = client.Get(ts.URL + "/api/datasets/" + imported.ID + "/samples")
	var samples struct {
		Samples []struct {
			Label  uint64      `json:"label"`
			Series [][]float64 `json:"series"`
		} `json:"samples"`
	}
	decodeBody(t, resp, &samples)
	if len(samples.Samples) != 4 {
		t.Fatalf("imported sample count = %d, want 4", len(samples.Samples))
	}
	if samples.Samples[1].Series[3][0] != 3.5 {
		t.Errorf("imported sample value = %v, want 3.5", samples.Samples[1].Series[3][0])
	}

	// A garbage upload is a 400
	resp, _ = client.Post(ts.URL+"/api/datasets/import", "text/plain", strings.NewReader("not a dataset"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("import garbage status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	resp.Body.Close()
}

func TestLive_Broadcast(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s := newTestStore(t)
	application := app.New(app.Config{Store: s, Classifier: testClassifierConfig()})

	srv := New(Config{Store: s, App: application})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()
	id := seedDataset(t, client, ts.URL)

	resp := postJSON(t, client, ts.URL+"/api/train", map[string]interface{}{"dataset_id": id})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("train status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// Connect a WebSocket client to the live feed
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial error = %v", err)
	}
	defer conn.Close()

	// Give the server a moment to register the client
	time.Sleep(100 * time.Millisecond)

	// Trigger a prediction over the REST API
	resp = postJSON(t, client, ts.URL+"/api/predict", map[string]interface{}{
		"series": [][]float64{{0, 0}, {1, 0}, {2, 0}, {3, 0}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("predict status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// The prediction arrives on the live feed
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("websocket read error = %v", err)
	}

	var event struct {
		Prediction struct {
			Label    uint64 `json:"label"`
			Rejected bool   `json:"rejected"`
		} `json:"prediction"`
		Timestamp int64 `json:"timestamp"`
	}
	if err := json.Unmarshal(msg, &event); err != nil {
		t.Fatalf("decode live event: %v", err)
	}
	if event.Prediction.Label != 1 || event.Prediction.Rejected {
		t.Errorf("live prediction = label %d rejected %v, want label 1 accepted",
			event.Prediction.Label, event.Prediction.Rejected)
	}
	if event.Timestamp == 0 {
		t.Error("live event is missing a timestamp")
	}
}
