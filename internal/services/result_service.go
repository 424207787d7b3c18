package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-enrich-backend/internal/domain"
	"github.com/tbourn/go-enrich-backend/internal/ids"
	"github.com/tbourn/go-enrich-backend/internal/observability"
	"github.com/tbourn/go-enrich-backend/internal/repo"
)

// ResultService stores job results delivered by producers and serves them to
// pollers.
type ResultService struct {
	Store repo.Store
	TTL   time.Duration // lifetime of result:{id}, refreshed on every write
}

// NewResultService returns a ResultService; ttl <= 0 defaults to one hour.
func NewResultService(store repo.Store, ttl time.Duration) *ResultService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultService{Store: store, TTL: ttl}
}

// Receive validates p and stores it under correlationID, replacing any earlier
// result for the same id as a whole.
func (s *ResultService) Receive(ctx context.Context, correlationID string, p domain.JobPayload) error {
	ctx, span := otel.Tracer("services/ResultService").Start(ctx, "Receive",
		trace.WithAttributes(attribute.String("correlation.id", correlationID)),
	)
	defer span.End()

	if !ids.Valid(correlationID) {
		observability.CallbackReceived(observability.OutcomeInvalid)
		return fmt.Errorf("%w: missing or malformed correlation id", ErrValidation)
	}
	if err := p.Validate(); err != nil {
		observability.CallbackReceived(observability.OutcomeInvalid)
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: encoding result: %v", ErrStorage, err)
	}
	if err := s.Store.Set(ctx, repo.ResultKey(correlationID), b, s.TTL); err != nil {
		// A lost write strands the job; pollers will time out.
		log.Error().Err(err).Str("correlation_id", correlationID).Msg("storing result failed")
		span.RecordError(err)
		observability.CallbackReceived(observability.OutcomeFailed)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	observability.CallbackReceived(observability.OutcomeOK)
	return nil
}

// Get returns the stored result for correlationID, or ErrNotFound while the
// job is pending or after its result expired.
func (s *ResultService) Get(ctx context.Context, correlationID string) (*domain.JobPayload, error) {
	ctx, span := otel.Tracer("services/ResultService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("correlation.id", correlationID)),
	)
	defer span.End()

	if !ids.Valid(correlationID) {
		observability.ResultPolled(observability.OutcomeInvalid)
		return nil, fmt.Errorf("%w: missing or malformed correlation id", ErrValidation)
	}

	b, err := s.Store.Get(ctx, repo.ResultKey(correlationID))
	switch {
	case errors.Is(err, repo.ErrNotFound):
		observability.ResultPolled(observability.OutcomeNotFound)
		return nil, ErrNotFound
	case err != nil:
		observability.ResultPolled(observability.OutcomeFailed)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	var p domain.JobPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, s.corrupt(correlationID, err)
	}
	if err := p.Validate(); err != nil {
		return nil, s.corrupt(correlationID, err)
	}
	observability.ResultPolled(observability.OutcomeOK)
	return &p, nil
}

func (s *ResultService) corrupt(correlationID string, cause error) error {
	log.Error().Err(cause).Str("correlation_id", correlationID).Msg("stored result is corrupt")
	observability.ResultPolled(observability.OutcomeCorrupt)
	return fmt.Errorf("%w: %v", ErrCorruptResult, cause)
}
