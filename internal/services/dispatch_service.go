package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-enrich-backend/internal/domain"
	"github.com/tbourn/go-enrich-backend/internal/enrich"
	"github.com/tbourn/go-enrich-backend/internal/ids"
	"github.com/tbourn/go-enrich-backend/internal/observability"
	"github.com/tbourn/go-enrich-backend/internal/repo"
)

// Strategy starts enrichment of site under correlationID. Start must not
// block on the enrichment itself; an error means nothing was started.
type Strategy interface {
	Name() string
	Start(ctx context.Context, correlationID, site string) error
}

// Dispatcher allocates correlation ids and hands domains to a Strategy.
type Dispatcher struct {
	Strategy Strategy

	// Store and IdempotencyTTL back DispatchIdempotent.
	Store          repo.Store
	IdempotencyTTL time.Duration

	NewID func() string
}

// NewDispatcher returns a Dispatcher using s. store may be nil when
// idempotency keys are not used.
func NewDispatcher(s Strategy, store repo.Store, idemTTL time.Duration) *Dispatcher {
	if idemTTL <= 0 {
		idemTTL = time.Hour
	}
	return &Dispatcher{Strategy: s, Store: store, IdempotencyTTL: idemTTL, NewID: ids.New}
}

// ValidateDomain accepts absolute http(s) URLs with a host.
func ValidateDomain(site string) error {
	if strings.TrimSpace(site) == "" {
		return fmt.Errorf("%w: domain is required", ErrValidation)
	}
	u, err := url.Parse(site)
	if err != nil {
		return fmt.Errorf("%w: domain is not a URL: %v", ErrValidation, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: domain must use http or https", ErrValidation)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: domain has no host", ErrValidation)
	}
	return nil
}

// Dispatch starts enrichment of site and returns its correlation id without
// waiting for results.
func (d *Dispatcher) Dispatch(ctx context.Context, site string) (string, error) {
	ctx, span := otel.Tracer("services/Dispatcher").Start(ctx, "Dispatch",
		trace.WithAttributes(
			attribute.String("enrich.domain", site),
			attribute.String("enrich.strategy", d.Strategy.Name()),
		),
	)
	defer span.End()

	if err := ValidateDomain(site); err != nil {
		observability.JobDispatched(d.Strategy.Name(), observability.OutcomeInvalid)
		return "", err
	}

	id := d.NewID()
	if err := d.Strategy.Start(ctx, id, site); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		observability.JobDispatched(d.Strategy.Name(), observability.OutcomeFailed)
		if !errors.Is(err, ErrUpstream) {
			err = fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		return "", err
	}
	span.SetAttributes(attribute.String("correlation.id", id))
	observability.JobDispatched(d.Strategy.Name(), observability.OutcomeOK)
	return id, nil
}

// DispatchIdempotent is Dispatch keyed by a client idempotency key. A key
// seen within IdempotencyTTL returns the id issued for it with replayed set,
// and nothing is dispatched. The key is bound to the domain it first
// dispatched; reusing it for another domain fails with ErrConflict.
func (d *Dispatcher) DispatchIdempotent(ctx context.Context, key, site string) (id string, replayed bool, err error) {
	if key == "" || d.Store == nil {
		id, err = d.Dispatch(ctx, site)
		return id, false, err
	}

	prev, err := d.Store.Get(ctx, repo.DispatchKey(key))
	switch {
	case err == nil:
		var rec domain.DispatchRecord
		if err := json.Unmarshal(prev, &rec); err != nil || rec.CorrelationID == "" {
			return "", false, fmt.Errorf("%w: unreadable idempotency record for key %q", ErrStorage, key)
		}
		if rec.Domain != site {
			observability.JobDispatched(d.Strategy.Name(), observability.OutcomeConflict)
			return "", false, fmt.Errorf("%w: key was used for a different domain", ErrConflict)
		}
		observability.JobDispatched(d.Strategy.Name(), observability.OutcomeReplayed)
		return rec.CorrelationID, true, nil
	case !errors.Is(err, repo.ErrNotFound):
		return "", false, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	id, err = d.Dispatch(ctx, site)
	if err != nil {
		return "", false, err
	}
	rec, _ := json.Marshal(domain.DispatchRecord{CorrelationID: id, Domain: site})
	if err := d.Store.Set(ctx, repo.DispatchKey(key), rec, d.IdempotencyTTL); err != nil {
		// The job is running; only replay protection is lost.
		log.Warn().Err(err).Str("correlation_id", id).Msg("recording idempotency key failed")
	}
	return id, false, nil
}

// Wait blocks until background work started by the strategy has finished.
func (d *Dispatcher) Wait() {
	if w, ok := d.Strategy.(interface{ Wait() }); ok {
		w.Wait()
	}
}

// Completer answers a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Available() bool
}

// ResultSink receives a finished job. *ResultService implements it.
type ResultSink interface {
	Receive(ctx context.Context, correlationID string, p domain.JobPayload) error
}

// DirectFanOut asks every prompt concurrently and delivers the combined
// answers to Sink in-process. One failed prompt fails the whole batch and
// nothing is stored.
type DirectFanOut struct {
	Completer Completer
	Sink      ResultSink
	Prompts   []string // templates; enrich.DefaultPrompts when empty
	Timeout   time.Duration

	wg sync.WaitGroup
}

func (f *DirectFanOut) Name() string { return "direct" }

// Start launches the batch in the background. It fails only when the
// completion service is known to be unavailable.
func (f *DirectFanOut) Start(ctx context.Context, correlationID, site string) error {
	if !f.Completer.Available() {
		return fmt.Errorf("%w: %v", ErrUpstream, enrich.ErrBreakerOpen)
	}
	templates := f.Prompts
	if len(templates) == 0 {
		templates = enrich.DefaultPrompts
	}
	prompts := enrich.RenderPrompts(templates, site)

	// The request context ends with the response; the batch must outlive it.
	bg := context.WithoutCancel(ctx)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.run(bg, correlationID, site, prompts)
	}()
	return nil
}

// Wait blocks until every started batch has finished.
func (f *DirectFanOut) Wait() { f.wg.Wait() }

func (f *DirectFanOut) run(ctx context.Context, correlationID, site string, prompts []string) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := otel.Tracer("services/DirectFanOut").Start(ctx, "FanOut",
		trace.WithAttributes(
			attribute.String("correlation.id", correlationID),
			attribute.Int("enrich.prompts", len(prompts)),
		),
	)
	defer span.End()

	start := time.Now()
	lg := log.With().Str("correlation_id", correlationID).Str("domain", site).Logger()

	results := make([]domain.PromptAnswer, len(prompts))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range prompts {
		g.Go(func() error {
			answer, err := f.Completer.Complete(gctx, p)
			if err != nil {
				return fmt.Errorf("prompt %d: %w", i, err)
			}
			results[i] = domain.PromptAnswer{Prompt: p, Answer: answer}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fan-out failed")
		lg.Error().Err(err).Msg("fan-out failed, nothing stored")
		observability.FanOutBatch(observability.OutcomeFailed, time.Since(start).Seconds())
		return
	}

	if err := f.Sink.Receive(ctx, correlationID, domain.JobPayload{Domain: site, Results: results}); err != nil {
		span.RecordError(err)
		lg.Error().Err(err).Msg("delivering fan-out result failed")
		observability.FanOutBatch(observability.OutcomeFailed, time.Since(start).Seconds())
		return
	}
	lg.Info().Int("prompts", len(prompts)).Dur("took", time.Since(start)).Msg("fan-out complete")
	observability.FanOutBatch(observability.OutcomeOK, time.Since(start).Seconds())
}

// JobTrigger hands a job to an external automation engine.
type JobTrigger interface {
	Trigger(ctx context.Context, job enrich.DelegatedJob) error
}

// DelegatedFanOut posts the job to an automation engine that calls
// CallbackURL when it is done.
type DelegatedFanOut struct {
	Webhook     JobTrigger
	CallbackURL string
}

func (f *DelegatedFanOut) Name() string { return "delegated" }

// Start returns once the engine has accepted the job.
func (f *DelegatedFanOut) Start(ctx context.Context, correlationID, site string) error {
	err := f.Webhook.Trigger(ctx, enrich.DelegatedJob{
		Domain:        site,
		CorrelationID: correlationID,
		CallbackURL:   f.CallbackURL,
	})
	if err != nil {
		return fmt.Errorf("%w: triggering automation: %v", ErrUpstream, err)
	}
	return nil
}
