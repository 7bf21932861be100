package gesture

import (
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Classifier is the strategy interface for temporal gesture classification.
// Implementations must be safe for concurrent use: the live loop and the
// HTTP API predict against the same instance.
type Classifier interface {
	// Train fits the classifier to a labeled dataset. On failure the
	// previously trained state, if any, is kept.
	Train(ds *Dataset) error
	// Predict classifies a single complete series.
	Predict(series TimeSeries) (Prediction, error)
	// IsTrained reports whether a successful Train has run.
	IsTrained() bool
	// Diagnostics returns the trained class metadata and the alignment
	// artifacts of the most recent prediction.
	Diagnostics() Diagnostics
}

// Prediction is the outcome of classifying one series. Labels, Distances,
// and Likelihoods are parallel slices ordered by ascending class label.
type Prediction struct {
	// Label is the winning class, or NullGestureLabel when the input was
	// rejected as not matching any trained gesture.
	Label         uint64    `json:"label"`
	Labels        []uint64  `json:"labels"`
	Distances     []float64 `json:"distances"`
	Likelihoods   []float64 `json:"likelihoods"`
	MaxLikelihood float64   `json:"maxLikelihood"`
	// Threshold is the rejection threshold of the nearest class, reported
	// even when rejection is disabled so callers can display the margin.
	Threshold float64 `json:"threshold"`
	Rejected  bool    `json:"rejected"`
}

// Diagnostics exposes the trained class metadata plus the per-class cost
// matrices and warping paths of the most recent prediction, primarily for
// visualization. The slices are parallel and ordered by ascending label.
type Diagnostics struct {
	Labels       []uint64
	Thresholds   []float64
	WindowLength int
	CostMatrices []*CostMatrix
	WarpPaths    [][]PathStep
}

// DTW classifies time series by Dynamic Time Warping distance to one
// trained template per class, with optional automatic null rejection.
// The zero value is not usable; construct with NewDTW.
type DTW struct {
	cfg Config

	mu         sync.Mutex
	model      *Model
	alignments []Alignment
}

// NewDTW creates an untrained DTW classifier with the given configuration.
func NewDTW(cfg Config) *DTW {
	return &DTW{cfg: cfg}
}

// Config returns the configuration the classifier was built with.
func (c *DTW) Config() Config { return c.cfg }

// Train fits one template per class and calibrates the rejection
// thresholds. A failed run leaves any previously trained model in place.
func (c *DTW) Train(ds *Dataset) error {
	model, err := trainModel(ds, c.cfg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.model = model
	c.alignments = nil
	c.mu.Unlock()
	return nil
}

// IsTrained reports whether the classifier holds a trained model.
func (c *DTW) IsTrained() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model != nil
}

// Model returns the trained model, or nil before training.
func (c *DTW) Model() *Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// Predict preprocesses the series exactly as training samples were
// preprocessed, aligns it against every class template concurrently, and
// picks the class with the smallest DTW distance. With null rejection
// enabled a winner whose distance exceeds its class threshold is demoted
// to NullGestureLabel. An input no template could align with under the
// warping constraint is always the null gesture.
func (c *DTW) Predict(series TimeSeries) (Prediction, error) {
	c.mu.Lock()
	model := c.model
	c.mu.Unlock()
	if model == nil {
		return Prediction{}, ErrNotTrained
	}
	if err := series.Validate(model.Dims); err != nil {
		return Prediction{}, err
	}

	prepped := preprocessSeries(series, c.cfg)

	k := len(model.Templates)
	alignments := make([]Alignment, k)
	var g errgroup.Group
	for i := range model.Templates {
		g.Go(func() error {
			al, err := Align(prepped, model.Templates[i].Series, c.cfg)
			if err != nil {
				return err
			}
			alignments[i] = al
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Prediction{}, err
	}

	distances := make([]float64, k)
	for i, al := range alignments {
		distances[i] = al.Distance
	}

	pred := Prediction{
		Labels:      model.Labels(),
		Distances:   distances,
		Likelihoods: classLikelihoods(distances),
	}

	// Templates are ordered by ascending label, so a strict comparison
	// resolves distance ties in favor of the lowest label.
	best := 0
	for i := 1; i < k; i++ {
		if distances[i] < distances[best] {
			best = i
		}
	}
	pred.MaxLikelihood = pred.Likelihoods[best]
	pred.Threshold = model.Templates[best].Threshold

	switch {
	case math.IsInf(distances[best], 1):
		pred.Label = NullGestureLabel
		pred.Rejected = true
	case c.cfg.NullRejectionEnabled && distances[best] > model.Templates[best].Threshold:
		pred.Label = NullGestureLabel
		pred.Rejected = true
	default:
		pred.Label = model.Templates[best].Label
	}

	c.mu.Lock()
	c.alignments = alignments
	c.mu.Unlock()
	return pred, nil
}

// Diagnostics returns the trained class metadata and the cost matrices and
// warping paths cached by the most recent Predict. Before training it
// returns the zero value; before the first prediction the matrix and path
// slices are nil.
func (c *DTW) Diagnostics() Diagnostics {
	c.mu.Lock()
	model, alignments := c.model, c.alignments
	c.mu.Unlock()
	if model == nil {
		return Diagnostics{}
	}

	d := Diagnostics{
		Labels:       model.Labels(),
		Thresholds:   make([]float64, len(model.Templates)),
		WindowLength: model.WindowLength,
	}
	for i, t := range model.Templates {
		d.Thresholds[i] = t.Threshold
	}
	if alignments != nil {
		d.CostMatrices = make([]*CostMatrix, len(alignments))
		d.WarpPaths = make([][]PathStep, len(alignments))
		for i, al := range alignments {
			d.CostMatrices[i] = al.Cost
			d.WarpPaths[i] = al.Path
		}
	}
	return d
}

// classLikelihoods converts class distances into normalized inverse
// distance weights. A distance of effectively zero contributes a large
// finite weight so a perfect match does not divide by zero; an infinite
// distance contributes nothing. If no class aligned at all, every
// likelihood is zero.
func classLikelihoods(distances []float64) []float64 {
	const (
		eps       = 1e-8
		maxWeight = 1e8
	)
	weights := make([]float64, len(distances))
	sum := 0.0
	for i, d := range distances {
		switch {
		case math.IsInf(d, 1):
			weights[i] = 0
		case d <= eps:
			weights[i] = maxWeight
		default:
			weights[i] = 1 / d
		}
		sum += weights[i]
	}
	if sum == 0 {
		return weights
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}
