// Package source provides observation sources that feed the gesture
// recognition loop.
package source

import (
	"errors"

	"github.com/ayusman/mudra/internal/gesture"
)

// ErrNotOpen is returned when trying to read from a source that is not open.
var ErrNotOpen = errors.New("source is not open")

// Source defines the interface for observation stream implementations.
// Next returns one observation per call and io.EOF once the stream is
// exhausted.
type Source interface {
	Open() error
	Close() error
	Next() (gesture.Vector, error)
	Dimensions() int
	IsOpen() bool
}
