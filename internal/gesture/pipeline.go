package gesture

import (
	"sync"
)

// Pipeline bundles a Classifier with a rolling observation window so a
// continuous sensor stream can be classified one observation at a time.
// Batch prediction passes through to the classifier unchanged.
//
// The window holds the last WindowLength observations reported by the
// classifier's diagnostics. Feed returns ok=false until the window has
// filled once after training.
type Pipeline struct {
	mu         sync.Mutex
	classifier Classifier
	window     TimeSeries
	windowLen  int
}

// NewPipeline creates a pipeline around the given classifier.
func NewPipeline(c Classifier) *Pipeline {
	return &Pipeline{classifier: c}
}

// Train trains the underlying classifier. On success the rolling window is
// cleared and resized to the freshly trained window length; on failure the
// previous model and window are kept.
func (p *Pipeline) Train(ds *Dataset) error {
	if err := p.classifier.Train(ds); err != nil {
		return err
	}
	p.mu.Lock()
	p.window = nil
	p.windowLen = p.classifier.Diagnostics().WindowLength
	p.mu.Unlock()
	return nil
}

// Predict classifies one complete series.
func (p *Pipeline) Predict(series TimeSeries) (Prediction, error) {
	return p.classifier.Predict(series)
}

// Feed appends one observation to the rolling window and, once the window
// is full, classifies its current contents. ok is false while the window
// is still warming up.
func (p *Pipeline) Feed(v Vector) (pred Prediction, ok bool, err error) {
	p.mu.Lock()
	if p.windowLen == 0 {
		p.mu.Unlock()
		return Prediction{}, false, ErrNotTrained
	}
	p.window = append(p.window, v.Clone())
	if len(p.window) > p.windowLen {
		p.window = p.window[len(p.window)-p.windowLen:]
	}
	if len(p.window) < p.windowLen {
		p.mu.Unlock()
		return Prediction{}, false, nil
	}
	window := p.window.Clone()
	p.mu.Unlock()

	pred, err = p.classifier.Predict(window)
	if err != nil {
		return Prediction{}, false, err
	}
	return pred, true, nil
}

// Reset clears the rolling window, for example when the sensor stream is
// interrupted. The trained model is unaffected.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.window = nil
	p.mu.Unlock()
}

// Window returns a snapshot of the current rolling window.
func (p *Pipeline) Window() TimeSeries {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.window.Clone()
}

// IsTrained reports whether the underlying classifier is trained.
func (p *Pipeline) IsTrained() bool {
	return p.classifier.IsTrained()
}

// Diagnostics returns the underlying classifier's diagnostics.
func (p *Pipeline) Diagnostics() Diagnostics {
	return p.classifier.Diagnostics()
}
