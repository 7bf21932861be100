package gesture

// preprocessSeries applies the configured preprocessing steps to a series and
// returns a new series, leaving the input untouched. Trimming runs before
// offsetting so the first kept observation becomes the origin.
//
// The same function runs on training samples and on prediction input, so a
// recorded gesture and a live gesture are always compared in the same frame
// of reference.
func preprocessSeries(s TimeSeries, cfg Config) TimeSeries {
	out := s.Clone()
	if cfg.TrimTrainingData {
		out = trimSeries(out, cfg.TrimThreshold, cfg.TrimMaxPercent)
	}
	if cfg.OffsetByFirstSample {
		out = offsetSeries(out)
	}
	return out
}

// trimSeries removes leading and trailing idle sections of a series, judged
// by per-observation movement energy: the magnitude of the delta between
// consecutive observations, normalized to [0,1] by the peak. Observations
// before the first and after the last energy above threshold are dropped,
// keeping the observation the first movement started from.
//
// If trimming would remove maxPercent or more of the series, or the series
// has no movement at all, it is returned unchanged. Trimming an already
// trimmed series is a no-op.
func trimSeries(s TimeSeries, threshold float64, maxPercent float64) TimeSeries {
	n := len(s)
	if n < 2 {
		return s
	}

	energy := make([]float64, n)
	peak := 0.0
	for i := 1; i < n; i++ {
		energy[i] = s[i].Sub(s[i-1]).Magnitude()
		if energy[i] > peak {
			peak = energy[i]
		}
	}
	if peak == 0 {
		return s
	}

	first, last := -1, -1
	for i := 1; i < n; i++ {
		if energy[i]/peak >= threshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return s
	}

	// Keep the observation the first active delta was measured against.
	start, end := first-1, last
	kept := end - start + 1
	removed := float64(n-kept) / float64(n) * 100
	if removed >= maxPercent {
		return s
	}
	return s[start : end+1]
}

// offsetSeries translates a series so its first observation sits at the
// origin, making gestures comparable regardless of where in sensor space
// they were performed. Offsetting an already offset series is a no-op.
func offsetSeries(s TimeSeries) TimeSeries {
	if len(s) == 0 {
		return s
	}
	origin := s[0].Clone()
	out := make(TimeSeries, len(s))
	for i, v := range s {
		out[i] = v.Sub(origin)
	}
	return out
}
