// Package fanout runs the side channels of a committed state change.
//
// Channels run sequentially in the order given. Each one gets its own timeout
// and its own failure; a failing channel never stops the ones after it.
// Best-effort failures are logged and counted. Fatal failures are collected
// into an *Error that the caller returns next to the committed entity.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/agencyflow/internal/config"
	"github.com/smallbiznis/agencyflow/internal/observability/metrics"
	"github.com/smallbiznis/agencyflow/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

type Policy string

const (
	PolicyBestEffort Policy = "best_effort"
	PolicyFatal      Policy = "fatal"
)

// ErrChannelTimeout marks a channel that did not finish within its budget.
var ErrChannelTimeout = errors.New("fanout_channel_timeout")

type Channel struct {
	Name   string
	Policy Policy
	Run    func(ctx context.Context) error
}

// ChannelFailure describes one failed channel invocation.
type ChannelFailure struct {
	Channel string `json:"channel"`
	Policy  Policy `json:"policy"`
	Err     error  `json:"-"`
}

func (f ChannelFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Channel, f.Err)
}

func (f ChannelFailure) Unwrap() error { return f.Err }

// Error reports the fatal channels that failed after the state change had
// already been committed.
type Error struct {
	Event    string
	EntityID string
	Failures []ChannelFailure
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Error())
	}
	return fmt.Sprintf("fanout %s for %s: %s", e.Event, e.EntityID, strings.Join(names, "; "))
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f)
	}
	return out
}

// Channels lists the names of the failed fatal channels.
func (e *Error) Channels() []string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Channel)
	}
	return names
}

type Dispatcher struct {
	log       *zap.Logger
	metrics   *metrics.FanoutMetrics
	lifecycle config.LifecycleSource
}

func NewDispatcher(log *zap.Logger, m *metrics.FanoutMetrics, lifecycle config.LifecycleSource) *Dispatcher {
	return &Dispatcher{
		log:       log.Named("fanout"),
		metrics:   m,
		lifecycle: lifecycle,
	}
}

// Run executes channels in order and returns an *Error when at least one
// fatal channel failed. The parent context's cancellation is not inherited,
// so a caller hanging up after commit does not abort the side effects.
func (d *Dispatcher) Run(ctx context.Context, event string, entityID string, channels []Channel) error {
	timeout := d.channelTimeout()
	base, cid := correlation.EnsureCorrelationID(context.WithoutCancel(ctx))

	var failures []ChannelFailure
	for _, ch := range channels {
		if ch.Run == nil {
			continue
		}
		policy := ch.Policy
		if policy == "" {
			policy = PolicyBestEffort
		}

		start := time.Now()
		err := runChannel(base, timeout, ch.Run)
		elapsed := time.Since(start)

		result := metrics.ChannelResultOK
		switch {
		case errors.Is(err, ErrChannelTimeout):
			result = metrics.ChannelResultTimeout
		case err != nil:
			result = metrics.ChannelResultFailed
		}
		d.metrics.ObserveChannel(event, ch.Name, string(policy), result, elapsed.Seconds())

		if err == nil {
			continue
		}

		fields := []zap.Field{
			zap.String("event", event),
			zap.String("entity_id", entityID),
			zap.String("correlation_id", cid),
			zap.String("channel", ch.Name),
			zap.String("policy", string(policy)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		}
		if policy == PolicyFatal {
			d.log.Error("fanout channel failed", fields...)
			failures = append(failures, ChannelFailure{Channel: ch.Name, Policy: policy, Err: err})
			continue
		}
		d.log.Warn("best-effort fanout channel failed", fields...)
	}

	if len(failures) == 0 {
		return nil
	}
	return &Error{Event: event, EntityID: entityID, Failures: failures}
}

func (d *Dispatcher) channelTimeout() time.Duration {
	if d.lifecycle == nil {
		return config.DefaultChannelTimeout
	}
	if timeout := d.lifecycle.Get().ChannelTimeout; timeout > 0 {
		return timeout
	}
	return config.DefaultChannelTimeout
}

// runChannel bounds fn by timeout even when fn ignores its context. A
// channel that overruns is abandoned; its goroutine finishes on its own.
func runChannel(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("channel panic: %v", r)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrChannelTimeout, err)
		}
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w after %s", ErrChannelTimeout, timeout)
	}
}
