// Package gesture provides temporal gesture classification using Dynamic
// Time Warping with automatic null rejection.
package gesture

import "math"

// NullGestureLabel is the reserved class label emitted when no trained
// gesture matches. Training samples must never carry it.
const NullGestureLabel uint64 = 0

// Vector is a single observation: one fixed-length row of feature values,
// for example [x y] for pointer input.
type Vector []float64

// Clone returns an independent copy of the vector.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Sub returns v - w element-wise. Both vectors must have the same length.
func (v Vector) Sub(w Vector) Vector {
	out := make(Vector, len(v))
	for i := range v {
		out[i] = v[i] - w[i]
	}
	return out
}

// Magnitude returns the Euclidean norm of the vector.
func (v Vector) Magnitude() float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// TimeSeries is an ordered sequence of observations recorded for one
// gesture instance. Length varies per instance; dimensionality does not.
type TimeSeries []Vector

// Clone returns a deep copy of the series.
func (ts TimeSeries) Clone() TimeSeries {
	out := make(TimeSeries, len(ts))
	for i, v := range ts {
		out[i] = v.Clone()
	}
	return out
}

// Dimensions returns the feature dimensionality of the series, or 0 if
// the series is empty.
func (ts TimeSeries) Dimensions() int {
	if len(ts) == 0 {
		return 0
	}
	return len(ts[0])
}

// Validate checks that the series is non-empty and that every vector has
// the given dimensionality.
func (ts TimeSeries) Validate(dims int) error {
	if len(ts) == 0 {
		return ErrEmptySeries
	}
	for _, v := range ts {
		if len(v) != dims {
			return ErrDimensionMismatch
		}
	}
	return nil
}

// euclideanDistance returns the Euclidean distance between two vectors of
// equal length.
func euclideanDistance(a, b Vector) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// absoluteDistance returns the Manhattan (L1) distance between two vectors
// of equal length.
func absoluteDistance(a, b Vector) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}
