// Package pacer paces and retries Drive API calls, adapted from the
// teacher's lib/pacer package and fs/pacer.go.
package pacer

import (
	"context"
	"sync"
	"time"
)

// State is the pacer's view of recent call history, handed to the
// configured backoff calculation on every retry.
type State struct {
	SleepTime          time.Duration
	ConsecutiveRetries int
	LastError          error
}

// RetryFunc classifies an error returned by a paced call: should the call be
// retried, and what caller-facing error (if any) should be reported if it is
// not retried.
type RetryFunc func(err error) (retry bool, reported error)

// Pacer serializes calls through a single token and retries failures with
// exponential backoff, bounded by MaxSleep and Retries.
type Pacer struct {
	mu       sync.Mutex
	state    State
	token    chan struct{}
	minSleep time.Duration
	maxSleep time.Duration
	retries  int
	decay    uint
	retry    RetryFunc
}

// Option configures a Pacer.
type Option func(*Pacer)

func MinSleep(d time.Duration) Option { return func(p *Pacer) { p.minSleep = d } }
func MaxSleep(d time.Duration) Option { return func(p *Pacer) { p.maxSleep = d } }
func Retries(n int) Option            { return func(p *Pacer) { p.retries = n } }
func RetryWith(f RetryFunc) Option    { return func(p *Pacer) { p.retry = f } }

// New creates a Pacer with rclone-style defaults: 100ms minimum sleep,
// doubling backoff, 10 retries.
func New(opts ...Option) *Pacer {
	p := &Pacer{
		token:    make(chan struct{}, 1),
		minSleep: 100 * time.Millisecond,
		maxSleep: 30 * time.Second,
		retries:  10,
		decay:    1,
		retry:    func(err error) (bool, error) { return false, err },
	}
	p.token <- struct{}{}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Pacer) calculate(state State) time.Duration {
	if state.ConsecutiveRetries == 0 {
		return 0
	}
	if state.ConsecutiveRetries == 1 {
		return p.minSleep
	}
	sleep := state.SleepTime << p.decay
	if sleep < p.minSleep {
		sleep = p.minSleep
	}
	if p.maxSleep > 0 && sleep > p.maxSleep {
		sleep = p.maxSleep
	}
	return sleep
}

// Call runs f, retrying on errors that p's RetryFunc says are retryable,
// sleeping with exponential backoff between attempts. It aborts early if ctx
// is canceled.
func (p *Pacer) Call(ctx context.Context, f func() error) error {
	var err error
	for try := 0; try <= p.retries; try++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.token:
		}

		err = f()

		if err == nil {
			p.token <- struct{}{}
			p.mu.Lock()
			p.state = State{}
			p.mu.Unlock()
			return nil
		}

		retry, reported := p.retry(err)
		if !retry || try >= p.retries {
			p.token <- struct{}{}
			return reported
		}

		p.mu.Lock()
		p.state.ConsecutiveRetries++
		p.state.LastError = err
		sleep := p.calculate(p.state)
		p.state.SleepTime = sleep
		p.mu.Unlock()

		p.token <- struct{}{}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
	return err
}
