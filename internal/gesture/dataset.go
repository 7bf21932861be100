package gesture

import (
	"fmt"
	"sort"
)

// Sample is one labeled training example: a class label and the series
// recorded for it. The series is frozen once the sample enters a dataset.
type Sample struct {
	Label  uint64
	Series TimeSeries
}

// Dataset is an ordered collection of labeled time series sharing a fixed
// feature dimensionality.
type Dataset struct {
	name    string
	dims    int
	samples []Sample
}

// NewDataset creates an empty dataset for series of the given dimensionality.
func NewDataset(dims int) *Dataset {
	return &Dataset{dims: dims}
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// SetName sets the dataset name recorded in saved files.
func (d *Dataset) SetName(name string) { d.name = name }

// NumDimensions returns the feature dimensionality every series must have.
func (d *Dataset) NumDimensions() int { return d.dims }

// NumSamples returns the number of training examples in the dataset.
func (d *Dataset) NumSamples() int { return len(d.samples) }

// Samples returns the ordered training examples. The returned slice is the
// dataset's own storage and must not be mutated by callers.
func (d *Dataset) Samples() []Sample { return d.samples }

// AddSample appends a labeled series to the dataset. The series is deep
// copied so later mutation of the recording buffer cannot corrupt the
// committed example. Label 0 is rejected; so are empty series and series
// whose dimensionality differs from the dataset's.
func (d *Dataset) AddSample(label uint64, series TimeSeries) error {
	if label == NullGestureLabel {
		return ErrNullLabel
	}
	if err := series.Validate(d.dims); err != nil {
		return err
	}
	d.samples = append(d.samples, Sample{Label: label, Series: series.Clone()})
	return nil
}

// RemoveLastSample discards the most recently added example, for undoing a
// bad recording.
func (d *Dataset) RemoveLastSample() error {
	if len(d.samples) == 0 {
		return ErrEmptyDataset
	}
	d.samples = d.samples[:len(d.samples)-1]
	return nil
}

// Clear removes every sample. The dimensionality is kept.
func (d *Dataset) Clear() {
	d.samples = nil
}

// NumClasses returns the number of distinct class labels present.
func (d *Dataset) NumClasses() int {
	return len(d.ClassLabels())
}

// ClassLabels returns the distinct class labels in ascending order.
func (d *Dataset) ClassLabels() []uint64 {
	seen := make(map[uint64]struct{}, len(d.samples))
	var labels []uint64
	for _, s := range d.samples {
		if _, ok := seen[s.Label]; !ok {
			seen[s.Label] = struct{}{}
			labels = append(labels, s.Label)
		}
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

// CountPerClass returns how many samples carry the given label.
func (d *Dataset) CountPerClass(label uint64) int {
	n := 0
	for _, s := range d.samples {
		if s.Label == label {
			n++
		}
	}
	return n
}

// ClassData returns the samples of one class, in insertion order.
func (d *Dataset) ClassData(label uint64) []Sample {
	var out []Sample
	for _, s := range d.samples {
		if s.Label == label {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the dataset invariants: at least one sample, and every
// series non-empty with the dataset's dimensionality.
func (d *Dataset) Validate() error {
	if d.dims <= 0 {
		return fmt.Errorf("%w: dataset dimensionality is %d", ErrInvalidConfig, d.dims)
	}
	if len(d.samples) == 0 {
		return ErrEmptyDataset
	}
	for i, s := range d.samples {
		if s.Label == NullGestureLabel {
			return fmt.Errorf("sample %d: %w", i, ErrNullLabel)
		}
		if err := s.Series.Validate(d.dims); err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
	}
	return nil
}
