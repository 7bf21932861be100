// Package app provides the main application logic for the Mudra gesture recognition system.
package app

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/source"
	"github.com/ayusman/mudra/internal/store"
)

// DefaultSampleInterval is the observation rate used when the configuration
// does not set one. 10ms matches a 100 Hz motion sensor.
const DefaultSampleInterval = 10 * time.Millisecond

// Recording errors.
var (
	ErrAlreadyRecording = errors.New("app: recording already in progress")
	ErrNotRecording     = errors.New("app: no recording in progress")
	ErrNothingRecorded  = errors.New("app: recording captured no observations")
)

// Config holds configuration options for the application.
type Config struct {
	Store          *store.Store
	Source         source.Source
	Classifier     gesture.Config
	SampleInterval time.Duration
	Logger         *zap.SugaredLogger
}

// App is the main application that orchestrates observation capture, sample
// recording, training and live classification.
type App struct {
	config   Config
	log      *zap.SugaredLogger
	pipeline *gesture.Pipeline

	mu             sync.RWMutex
	stopCh         chan struct{}
	recording      bool
	recordLabel    uint64
	recordBuffer   gesture.TimeSeries
	trainedDataset string
	lastPrediction *gesture.Prediction
	subscribers    map[chan gesture.Prediction]struct{}
}

// Status is a point-in-time snapshot of the application state.
type Status struct {
	Running        bool                `json:"running"`
	Trained        bool                `json:"trained"`
	TrainedDataset string              `json:"trained_dataset,omitempty"`
	Labels         []uint64            `json:"labels,omitempty"`
	WindowLength   int                 `json:"window_length"`
	Recording      bool                `json:"recording"`
	RecordingLabel uint64              `json:"recording_label,omitempty"`
	Recorded       int                 `json:"recorded"`
	LastPrediction *gesture.Prediction `json:"last_prediction,omitempty"`
}

// RecordingResult describes a recording committed to a dataset.
type RecordingResult struct {
	DatasetID string `json:"dataset_id"`
	Label     uint64 `json:"label"`
	Length    int    `json:"length"`
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.SampleInterval <= 0 {
		config.SampleInterval = DefaultSampleInterval
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	return &App{
		config:      config,
		log:         logger,
		pipeline:    gesture.NewPipeline(gesture.NewDTW(config.Classifier)),
		subscribers: make(map[chan gesture.Prediction]struct{}),
	}
}

// Start begins the observation loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if a.config.Source == nil {
		return errors.New("app: no observation source configured")
	}
	if err := a.config.Source.Open(); err != nil {
		return err
	}

	a.stopCh = make(chan struct{})
	go a.runLoop(a.stopCh)

	a.log.Infof("observation loop started, sampling every %v", a.config.SampleInterval)
	return nil
}

// Stop halts the observation loop and closes the source. Any recording in
// progress keeps its buffer and can still be committed.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh == nil {
		return
	}
	close(a.stopCh)
	a.stopCh = nil

	if err := a.config.Source.Close(); err != nil {
		a.log.Errorf("closing observation source: %v", err)
	}

	a.log.Info("observation loop stopped")
}

// IsRunning reports whether the observation loop is active.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// StartRecording begins buffering observations for a training sample of the
// given class.
func (a *App) StartRecording(label uint64) error {
	if label == gesture.NullGestureLabel {
		return gesture.ErrNullLabel
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.recording {
		return ErrAlreadyRecording
	}
	a.recording = true
	a.recordLabel = label
	a.recordBuffer = nil

	a.log.Infof("recording started for label %d", label)
	return nil
}

// StopRecording ends the current recording and commits the buffered series
// to the dataset with the given ID.
func (a *App) StopRecording(datasetID string) (*RecordingResult, error) {
	a.mu.Lock()
	if !a.recording {
		a.mu.Unlock()
		return nil, ErrNotRecording
	}
	label := a.recordLabel
	series := a.recordBuffer
	a.recording = false
	a.recordLabel = 0
	a.recordBuffer = nil
	a.mu.Unlock()

	if len(series) == 0 {
		return nil, ErrNothingRecorded
	}
	if a.config.Store == nil {
		return nil, errors.New("app: no store configured")
	}

	meta, err := a.config.Store.Datasets().GetByID(datasetID)
	if err != nil {
		return nil, err
	}
	if dims := series.Dimensions(); dims != meta.Dimensions {
		return nil, fmt.Errorf("app: recorded %d-dimensional series into %d-dimensional dataset %q: %w",
			dims, meta.Dimensions, meta.Name, gesture.ErrDimensionMismatch)
	}

	input := store.SampleInput{Label: label, Series: seriesToRows(series)}
	if err := a.config.Store.Samples().Create(datasetID, []store.SampleInput{input}); err != nil {
		return nil, err
	}

	a.log.Infof("committed %d observations for label %d to dataset %q", len(series), label, meta.Name)
	return &RecordingResult{DatasetID: datasetID, Label: label, Length: len(series)}, nil
}

// CancelRecording discards the current recording buffer.
func (a *App) CancelRecording() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.recording {
		return ErrNotRecording
	}
	a.recording = false
	a.recordLabel = 0
	a.recordBuffer = nil

	a.log.Info("recording cancelled")
	return nil
}

// Train loads the stored dataset with the given ID and trains the
// classification pipeline on it.
func (a *App) Train(datasetID string) error {
	if a.config.Store == nil {
		return errors.New("app: no store configured")
	}

	ds, err := LoadDataset(a.config.Store, datasetID)
	if err != nil {
		return err
	}
	if err := a.pipeline.Train(ds); err != nil {
		return err
	}

	a.mu.Lock()
	a.trainedDataset = datasetID
	a.lastPrediction = nil
	a.mu.Unlock()

	d := a.pipeline.Diagnostics()
	a.log.Infof("trained %d classes from dataset %q, window length %d",
		len(d.Labels), ds.Name(), d.WindowLength)
	return nil
}

// Predict classifies a complete series and publishes the result to
// subscribers.
func (a *App) Predict(series gesture.TimeSeries) (gesture.Prediction, error) {
	pred, err := a.pipeline.Predict(series)
	if err != nil {
		return gesture.Prediction{}, err
	}
	a.publish(pred)
	return pred, nil
}

// Subscribe registers a listener for prediction events. Slow listeners miss
// events rather than stalling the observation loop. The returned function
// removes the subscription.
func (a *App) Subscribe() (<-chan gesture.Prediction, func()) {
	ch := make(chan gesture.Prediction, 16)

	a.mu.Lock()
	a.subscribers[ch] = struct{}{}
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		delete(a.subscribers, ch)
		a.mu.Unlock()
	}
	return ch, cancel
}

// Status returns a snapshot of the application state.
func (a *App) Status() Status {
	d := a.pipeline.Diagnostics()

	a.mu.RLock()
	defer a.mu.RUnlock()

	return Status{
		Running:        a.stopCh != nil,
		Trained:        a.pipeline.IsTrained(),
		TrainedDataset: a.trainedDataset,
		Labels:         d.Labels,
		WindowLength:   d.WindowLength,
		Recording:      a.recording,
		RecordingLabel: a.recordLabel,
		Recorded:       len(a.recordBuffer),
		LastPrediction: a.lastPrediction,
	}
}

// Window returns a snapshot of the rolling classification window.
func (a *App) Window() gesture.TimeSeries {
	return a.pipeline.Window()
}

// Diagnostics returns the trained class metadata and the alignment
// artifacts of the most recent prediction.
func (a *App) Diagnostics() gesture.Diagnostics {
	return a.pipeline.Diagnostics()
}

// publish records pred as the most recent prediction and fans it out to all
// subscribers without blocking.
func (a *App) publish(pred gesture.Prediction) {
	a.mu.Lock()
	a.lastPrediction = &pred
	subs := make([]chan gesture.Prediction, 0, len(a.subscribers))
	for ch := range a.subscribers {
		subs = append(subs, ch)
	}
	a.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- pred:
		default:
		}
	}
}
