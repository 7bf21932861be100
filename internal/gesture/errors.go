package gesture

import "errors"

var (
	// ErrDimensionMismatch indicates a vector or series whose feature
	// dimensionality differs from the dataset or model it is used with.
	ErrDimensionMismatch = errors.New("gesture: feature dimensionality mismatch")

	// ErrEmptySeries indicates an operation on a time series with no samples.
	ErrEmptySeries = errors.New("gesture: time series is empty")

	// ErrNullLabel is returned when a training sample is tagged with the
	// reserved null-gesture label.
	ErrNullLabel = errors.New("gesture: class label 0 is reserved for the null gesture")

	// ErrEmptyDataset indicates training was requested on a dataset with no samples.
	ErrEmptyDataset = errors.New("gesture: dataset has no samples")

	// ErrInsufficientData indicates a class does not have enough training
	// samples to calibrate its rejection threshold.
	ErrInsufficientData = errors.New("gesture: not enough samples in class")

	// ErrNotTrained is returned when prediction is requested before a
	// successful training run.
	ErrNotTrained = errors.New("gesture: classifier has not been trained")

	// ErrInvalidDataFile indicates a dataset file that does not follow the
	// expected format.
	ErrInvalidDataFile = errors.New("gesture: invalid dataset file")

	// ErrInvalidConfig indicates a configuration value outside its valid range.
	ErrInvalidConfig = errors.New("gesture: invalid configuration")
)
