package source

import (
	"io"
	"sync"

	"github.com/ayusman/mudra/internal/gesture"
)

// Replay plays back a pre-recorded series of observations, optionally in a
// loop. It stands in for live sensor input during development and testing.
type Replay struct {
	series gesture.TimeSeries
	loop   bool

	mu      sync.Mutex
	index   int
	running bool
}

// NewReplay creates a replay source over the given series. With loop set
// the playback restarts from the beginning instead of ending.
func NewReplay(series gesture.TimeSeries, loop bool) *Replay {
	return &Replay{series: series.Clone(), loop: loop}
}

// Open starts playback from the beginning.
func (r *Replay) Open() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = true
	r.index = 0
	return nil
}

// Close stops playback.
func (r *Replay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	return nil
}

// Next returns the next recorded observation. Once the series is exhausted
// it returns io.EOF, or restarts when looping is enabled.
func (r *Replay) Next() (gesture.Vector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil, ErrNotOpen
	}
	if len(r.series) == 0 {
		return nil, io.EOF
	}
	if r.index >= len(r.series) {
		if !r.loop {
			return nil, io.EOF
		}
		r.index = 0
	}

	// Clone so the caller cannot modify the recording.
	v := r.series[r.index].Clone()
	r.index++
	return v, nil
}

// Dimensions returns the feature dimensionality of the recording, or 0 for
// an empty recording.
func (r *Replay) Dimensions() int {
	return r.series.Dimensions()
}

// IsOpen reports whether the source is currently open.
func (r *Replay) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Reset restarts playback from the beginning.
func (r *Replay) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = 0
}
