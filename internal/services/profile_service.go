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

// ProfileService keeps profiles edited before sign-in in a short-lived
// staging area and moves them onto the user's identity afterwards.
type ProfileService struct {
	Store      repo.Store
	StagingTTL time.Duration
	NewID      func() string
}

// NewProfileService returns a ProfileService; ttl <= 0 defaults to one hour.
func NewProfileService(store repo.Store, ttl time.Duration) *ProfileService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ProfileService{Store: store, StagingTTL: ttl, NewID: ids.New}
}

// Stage stores p under a fresh temp id. The entry expires after StagingTTL
// and reading it does not extend that.
func (s *ProfileService) Stage(ctx context.Context, p domain.Profile) (string, error) {
	ctx, span := otel.Tracer("services/ProfileService").Start(ctx, "Stage")
	defer span.End()

	if p == nil {
		observability.ProfileOp("stage", observability.OutcomeInvalid)
		return "", fmt.Errorf("%w: profile must be a JSON object", ErrValidation)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("%w: encoding profile: %v", ErrStorage, err)
	}

	tempID := s.NewID()
	if err := s.Store.Set(ctx, repo.TempProfileKey(tempID), b, s.StagingTTL); err != nil {
		observability.ProfileOp("stage", observability.OutcomeFailed)
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	span.SetAttributes(attribute.String("profile.temp_id", tempID))
	observability.ProfileOp("stage", observability.OutcomeOK)
	return tempID, nil
}

// Associate copies the staged profile tempID onto identityID, replacing any
// profile the identity already had, then removes the staged copy.
//
// A retry after success returns ErrNotFound and leaves the durable profile
// alone. If the delete fails after the copy, both keys exist until the staged
// one expires; the association itself has succeeded.
func (s *ProfileService) Associate(ctx context.Context, identityID, tempID string) error {
	ctx, span := otel.Tracer("services/ProfileService").Start(ctx, "Associate",
		trace.WithAttributes(
			attribute.String("user.id", identityID),
			attribute.String("profile.temp_id", tempID),
		),
	)
	defer span.End()

	if identityID == "" {
		observability.ProfileOp("associate", observability.OutcomeDenied)
		return ErrUnauthorized
	}
	if !ids.Valid(tempID) {
		observability.ProfileOp("associate", observability.OutcomeInvalid)
		return fmt.Errorf("%w: missing or malformed tempId", ErrValidation)
	}

	tempKey := repo.TempProfileKey(tempID)
	b, err := s.Store.Get(ctx, tempKey)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		observability.ProfileOp("associate", observability.OutcomeNotFound)
		return ErrNotFound
	case err != nil:
		observability.ProfileOp("associate", observability.OutcomeFailed)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := s.Store.Set(ctx, repo.UserProfileKey(identityID), b, repo.NoExpiry); err != nil {
		observability.ProfileOp("associate", observability.OutcomeFailed)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := s.Store.Delete(ctx, tempKey); err != nil {
		log.Warn().Err(err).
			Str("user_id", identityID).
			Str("temp_id", tempID).
			Msg("staged profile left behind after association")
	}
	observability.ProfileOp("associate", observability.OutcomeOK)
	return nil
}

// Profile returns the durable profile of identityID.
func (s *ProfileService) Profile(ctx context.Context, identityID string) (domain.Profile, error) {
	ctx, span := otel.Tracer("services/ProfileService").Start(ctx, "Profile",
		trace.WithAttributes(attribute.String("user.id", identityID)),
	)
	defer span.End()

	if identityID == "" {
		return nil, ErrUnauthorized
	}
	b, err := s.Store.Get(ctx, repo.UserProfileKey(identityID))
	switch {
	case errors.Is(err, repo.ErrNotFound):
		observability.ProfileOp("get", observability.OutcomeNotFound)
		return nil, ErrNotFound
	case err != nil:
		observability.ProfileOp("get", observability.OutcomeFailed)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	var p domain.Profile
	if err := json.Unmarshal(b, &p); err != nil {
		observability.ProfileOp("get", observability.OutcomeCorrupt)
		return nil, fmt.Errorf("%w: decoding profile: %v", ErrStorage, err)
	}
	observability.ProfileOp("get", observability.OutcomeOK)
	return p, nil
}
