// Package realtimetest provides a recording Publisher for tests.
package realtimetest

import (
	"context"
	"sync"
)

type Published struct {
	Channel string
	Event   string
	Payload any
}

// Recorder captures every publish. When Err is set it is returned after
// recording the attempt.
type Recorder struct {
	mu    sync.Mutex
	calls []Published
	Err   error
}

func (r *Recorder) Publish(_ context.Context, channel string, event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Published{Channel: channel, Event: event, Payload: payload})
	return r.Err
}

func (r *Recorder) SetErr(err error) {
	r.mu.Lock()
	r.Err = err
	r.mu.Unlock()
}

func (r *Recorder) Calls() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.calls...)
}

// Events returns the event names published on channel, in order.
func (r *Recorder) Events(channel string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for _, c := range r.calls {
		if c.Channel == channel {
			names = append(names, c.Event)
		}
	}
	return names
}
