package handlers

import (
	"context"

	"github.com/tbourn/go-enrich-backend/internal/domain"
)

// JobDispatcher starts enrichment jobs.
type JobDispatcher interface {
	// DispatchIdempotent starts a job for site, or returns the id already
	// issued for key. An empty key always dispatches.
	DispatchIdempotent(ctx context.Context, key, site string) (id string, replayed bool, err error)
}

// ResultStore accepts producer callbacks and serves polls.
type ResultStore interface {
	Receive(ctx context.Context, correlationID string, p domain.JobPayload) error
	Get(ctx context.Context, correlationID string) (*domain.JobPayload, error)
}

// ProfileStore stages anonymous profiles and binds them to identities.
type ProfileStore interface {
	Stage(ctx context.Context, p domain.Profile) (string, error)
	Associate(ctx context.Context, identityID, tempID string) error
	Profile(ctx context.Context, identityID string) (domain.Profile, error)
}

// Handlers groups the enrichment and profile endpoints.
type Handlers struct {
	jobs     JobDispatcher
	results  ResultStore
	profiles ProfileStore
}

// New constructs Handlers bound to the given services.
func New(jobs JobDispatcher, results ResultStore, profiles ProfileStore) *Handlers {
	return &Handlers{jobs: jobs, results: results, profiles: profiles}
}
