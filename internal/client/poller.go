package client

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tbourn/go-enrich-backend/internal/domain"
)

// State is what a UI shows while waiting on a job.
type State string

const (
	StatePending  State = "pending"
	StateComplete State = "complete"
	StateFailed   State = "failed"
	StateTimedOut State = "timed_out"
)

// DefaultPollInterval is the fixed delay between polls.
const DefaultPollInterval = 1500 * time.Millisecond

// ErrTimedOut is returned by Wait when Poller.Timeout elapses first.
var ErrTimedOut = errors.New("timed out waiting for result")

// ResultFetcher reads a result, returning ErrPending while there is none.
// *Client implements it.
type ResultFetcher interface {
	Result(ctx context.Context, correlationID string) (*domain.JobPayload, error)
}

// Poller polls for a job's result at a fixed interval. Only ErrPending keeps
// it waiting; any other error ends the loop.
type Poller struct {
	Fetcher  ResultFetcher
	Interval time.Duration // DefaultPollInterval when zero
	Timeout  time.Duration // zero waits until ctx ends
	OnState  func(State)
}

// Wait polls until the result for correlationID arrives.
func (p *Poller) Wait(ctx context.Context, correlationID string) (*domain.JobPayload, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	p.emit(StatePending)
	policy := backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)
	res, err := backoff.RetryWithData(func() (*domain.JobPayload, error) {
		res, err := p.Fetcher.Result(ctx, correlationID)
		if errors.Is(err, ErrPending) {
			return nil, err
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return res, nil
	}, policy)

	switch {
	case err == nil:
		p.emit(StateComplete)
		return res, nil
	case errors.Is(err, context.DeadlineExceeded) && p.Timeout > 0:
		p.emit(StateTimedOut)
		return nil, ErrTimedOut
	default:
		p.emit(StateFailed)
		return nil, err
	}
}

func (p *Poller) emit(s State) {
	if p.OnState != nil {
		p.OnState(s)
	}
}
