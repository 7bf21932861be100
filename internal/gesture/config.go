package gesture

import "fmt"

// Metric selects the local (pointwise) distance used inside the DTW cost matrix.
type Metric string

const (
	// MetricEuclidean uses the Euclidean distance between observations.
	MetricEuclidean Metric = "euclidean"
	// MetricAbsolute uses the Manhattan (L1) distance between observations.
	MetricAbsolute Metric = "absolute"
)

// Config holds every tunable of the DTW classifier. All values are passed
// explicitly at construction; there is no global state.
type Config struct {
	// NullRejectionEnabled makes the classifier emit NullGestureLabel when
	// the best match is still too far from its class template.
	NullRejectionEnabled bool

	// NullRejectionCoeff scales the calibrated rejection thresholds:
	// threshold = mu + coeff*sigma over intra-class training distances.
	// Larger values reject less (fewer false negatives, more false positives).
	NullRejectionCoeff float64

	// TrimTrainingData removes low-motion lead-in and tail segments from
	// every series before it is used for training or matching.
	TrimTrainingData bool

	// TrimThreshold is the motion magnitude, as a fraction of the series'
	// peak motion, below which a sample counts as inactive.
	TrimThreshold float64

	// TrimMaxPercent caps how much of a series trimming may remove. If the
	// inactive segments exceed the cap the series is kept untrimmed.
	TrimMaxPercent float64

	// OffsetByFirstSample subtracts the first observation from every
	// observation, making matching invariant to where a gesture starts.
	OffsetByFirstSample bool

	// ConstrainWarpingPath restricts the DTW search to a band around the
	// diagonal of the cost matrix.
	ConstrainWarpingPath bool

	// WarpingRadius is the band half-width as a fraction of the shorter
	// series length. Only used when ConstrainWarpingPath is set.
	WarpingRadius float64

	// Metric selects the local distance function.
	Metric Metric
}

// DefaultConfig returns a tuning that works well for pointer-trail gestures:
// null rejection on with coefficient 3, trimming at 10% of peak motion
// capped at 90%, first-sample offsetting, and a constrained warping path.
func DefaultConfig() Config {
	return Config{
		NullRejectionEnabled: true,
		NullRejectionCoeff:   3.0,
		TrimTrainingData:     true,
		TrimThreshold:        0.1,
		TrimMaxPercent:       90,
		OffsetByFirstSample:  true,
		ConstrainWarpingPath: true,
		WarpingRadius:        0.2,
		Metric:               MetricEuclidean,
	}
}

// Validate reports the first configuration value outside its valid range.
func (c Config) Validate() error {
	if c.NullRejectionCoeff <= 0 {
		return fmt.Errorf("%w: null rejection coefficient must be > 0, got %g", ErrInvalidConfig, c.NullRejectionCoeff)
	}
	if c.TrimTrainingData {
		if c.TrimThreshold < 0 {
			return fmt.Errorf("%w: trim threshold must be >= 0, got %g", ErrInvalidConfig, c.TrimThreshold)
		}
		if c.TrimMaxPercent <= 0 || c.TrimMaxPercent > 100 {
			return fmt.Errorf("%w: trim max percent must be in (0,100], got %g", ErrInvalidConfig, c.TrimMaxPercent)
		}
	}
	if c.ConstrainWarpingPath && c.WarpingRadius <= 0 {
		return fmt.Errorf("%w: warping radius must be > 0, got %g", ErrInvalidConfig, c.WarpingRadius)
	}
	switch c.Metric {
	case MetricEuclidean, MetricAbsolute:
	case "":
	default:
		return fmt.Errorf("%w: unknown metric %q", ErrInvalidConfig, c.Metric)
	}
	return nil
}

// localDistance returns the configured pointwise distance function.
func (c Config) localDistance() func(a, b Vector) float64 {
	if c.Metric == MetricAbsolute {
		return absoluteDistance
	}
	return euclideanDistance
}
