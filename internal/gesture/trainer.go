package gesture

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// Template is the trained exemplar of one gesture class: the most central
// training series of the class plus the rejection statistics calibrated
// from its distances to the class siblings.
type Template struct {
	Label         uint64
	Series        TimeSeries
	TrainingMu    float64
	TrainingSigma float64
	Threshold     float64
}

// Model is the trained artifact the classifier matches against. Templates
// are ordered by ascending class label. WindowLength is the average
// template length and sizes the streaming prediction window.
type Model struct {
	Dims         int
	Templates    []Template
	WindowLength int
}

// Labels returns the trained class labels in template order.
func (m *Model) Labels() []uint64 {
	labels := make([]uint64, len(m.Templates))
	for i, t := range m.Templates {
		labels[i] = t.Label
	}
	return labels
}

// RecomputeThresholds rebuilds every template's rejection threshold from
// its stored training statistics using a new coefficient. It allows tuning
// the rejection sensitivity without retraining.
func (m *Model) RecomputeThresholds(coeff float64) {
	for i := range m.Templates {
		t := &m.Templates[i]
		t.Threshold = t.TrainingMu + coeff*t.TrainingSigma
	}
}

// trainModel fits a model to the dataset: every sample is preprocessed,
// each class elects the series with the smallest total DTW distance to its
// siblings as template, and the distances from that template to the
// siblings calibrate the class rejection threshold as mu + coeff*sigma.
//
// Every class needs at least two samples, otherwise there is nothing to
// calibrate against and training fails with ErrInsufficientData. Classes
// train concurrently; the dataset is not modified.
func trainModel(ds *Dataset, cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	labels := ds.ClassLabels()
	classes := make([][]TimeSeries, len(labels))
	for i, label := range labels {
		samples := ds.ClassData(label)
		if len(samples) < 2 {
			return nil, fmt.Errorf("class %d has %d sample(s): %w", label, len(samples), ErrInsufficientData)
		}
		series := make([]TimeSeries, len(samples))
		for j, s := range samples {
			prepped := preprocessSeries(s.Series, cfg)
			if len(prepped) == 0 {
				return nil, fmt.Errorf("class %d sample %d: %w", label, j, ErrEmptySeries)
			}
			series[j] = prepped
		}
		classes[i] = series
	}

	templates := make([]Template, len(labels))
	var g errgroup.Group
	for i := range labels {
		g.Go(func() error {
			tpl, err := trainClass(labels[i], classes[i], cfg)
			if err != nil {
				return fmt.Errorf("class %d: %w", labels[i], err)
			}
			templates[i] = tpl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	totalLen := 0
	for _, t := range templates {
		totalLen += len(t.Series)
	}
	window := totalLen / len(templates)
	if window < 1 {
		window = 1
	}

	return &Model{
		Dims:         ds.NumDimensions(),
		Templates:    templates,
		WindowLength: window,
	}, nil
}

// trainClass elects the template for one class and calibrates its
// rejection statistics. series holds the preprocessed class samples.
func trainClass(label uint64, series []TimeSeries, cfg Config) (Template, error) {
	n := len(series)
	dists := make([][]float64, n)
	for i := range dists {
		dists[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, err := Distance(series[i], series[j], cfg)
			if err != nil {
				return Template{}, err
			}
			dists[i][j] = d
			dists[j][i] = d
		}
	}

	// The template is the sample closest to all its siblings.
	best, bestSum := 0, math.Inf(1)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += dists[i][j]
		}
		if sum < bestSum {
			best, bestSum = i, sum
		}
	}

	training := make([]float64, 0, n-1)
	for j := 0; j < n; j++ {
		if j != best {
			training = append(training, dists[best][j])
		}
	}

	mu := 0.0
	for _, d := range training {
		mu += d
	}
	mu /= float64(len(training))

	// With two samples there is a single training distance, so the spread
	// is unknowable and sigma stays zero.
	sigma := 0.0
	if n > 2 {
		sum := 0.0
		for _, d := range training {
			sum += (d - mu) * (d - mu)
		}
		sigma = math.Sqrt(sum / float64(n-2))
	}

	return Template{
		Label:         label,
		Series:        series[best],
		TrainingMu:    mu,
		TrainingSigma: sigma,
		Threshold:     mu + cfg.NullRejectionCoeff*sigma,
	}, nil
}
