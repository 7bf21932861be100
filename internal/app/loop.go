package app

import (
	"errors"
	"io"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// runLoop is the main observation loop that pulls vectors from the source.
//
// Loop logic:
// 1. Tick at the configured sample interval
// 2. Pull the next observation from the source
// 3. Append it to the recording buffer when a recording is in progress
// 4. Feed the sliding classification window
// 5. Publish each completed prediction to subscribers
// 6. Return when stopped or when the source is exhausted (io.EOF)
func (a *App) runLoop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(a.config.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			obs, err := a.config.Source.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					a.log.Info("observation source exhausted")
					return
				}
				a.log.Errorf("reading observation: %v", err)
				continue
			}
			a.observe(obs)
		}
	}
}

// observe processes a single observation: it extends any active recording
// and advances the rolling classification window.
func (a *App) observe(obs gesture.Vector) {
	a.mu.Lock()
	if a.recording {
		a.recordBuffer = append(a.recordBuffer, obs.Clone())
	}
	a.mu.Unlock()

	pred, ok, err := a.pipeline.Feed(obs)
	if err != nil {
		// The loop keeps running before the first training so that
		// recording works on an untrained system.
		if errors.Is(err, gesture.ErrNotTrained) {
			return
		}
		a.log.Errorf("classifying window: %v", err)
		return
	}
	if ok {
		a.publish(pred)
	}
}
