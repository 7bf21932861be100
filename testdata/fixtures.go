package testdata

import (
	"math/rand"

	"github.com/ayusman/mudra/internal/gesture"
)

// Class labels used by the generated stroke datasets.
const (
	LabelHorizontal uint64 = 1
	LabelVertical   uint64 = 2
)

// HorizontalStroke returns a straight left-to-right pointer trail of the
// given length.
func HorizontalStroke(length int) gesture.TimeSeries {
	series := make(gesture.TimeSeries, length)
	for i := range series {
		series[i] = gesture.Vector{float64(i), 0}
	}
	return series
}

// VerticalStroke returns a straight top-to-bottom pointer trail of the
// given length.
func VerticalStroke(length int) gesture.TimeSeries {
	series := make(gesture.TimeSeries, length)
	for i := range series {
		series[i] = gesture.Vector{0, float64(i)}
	}
	return series
}

// Noisy returns a copy of the series with deterministic jitter of the given
// amplitude added to every coordinate.
func Noisy(series gesture.TimeSeries, amplitude float64, seed int64) gesture.TimeSeries {
	rng := rand.New(rand.NewSource(seed))
	out := series.Clone()
	for _, v := range out {
		for d := range v {
			v[d] += (rng.Float64()*2 - 1) * amplitude
		}
	}
	return out
}

// StrokeDataset builds a two-class dataset of horizontal and vertical
// strokes. Each class holds an exact stroke and a variant whose final
// observation overshoots by half a step, which calibrates a small non-zero
// rejection threshold per class.
func StrokeDataset(length int) (*gesture.Dataset, error) {
	h := HorizontalStroke(length)
	v := VerticalStroke(length)

	hv := h.Clone()
	hv[length-1][0] += 0.5
	vv := v.Clone()
	vv[length-1][1] += 0.5

	ds := gesture.NewDataset(2)
	ds.SetName("strokes")
	for _, s := range []gesture.Sample{
		{Label: LabelHorizontal, Series: h},
		{Label: LabelHorizontal, Series: hv},
		{Label: LabelVertical, Series: v},
		{Label: LabelVertical, Series: vv},
	} {
		if err := ds.AddSample(s.Label, s.Series); err != nil {
			return nil, err
		}
	}
	return ds, nil
}
