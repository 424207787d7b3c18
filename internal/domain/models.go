// Package domain defines the payloads that flow through the enrichment
// pipeline: job results written by producers, and the profile mappings
// staged before authentication and associated afterwards.
package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PromptAnswer is one enrichment query and the producer's answer to it.
type PromptAnswer struct {
	Prompt string `json:"prompt" validate:"required" example:"What is the company name?"`
	Answer string `json:"answer" validate:"required" example:"Acme Inc."`
}

// JobPayload is the complete result of one enrichment job. Results keep the
// order in which the producer issued its prompts.
type JobPayload struct {
	Domain  string         `json:"domain"  validate:"required" example:"https://acme.com"`
	Results []PromptAnswer `json:"results" validate:"required,min=1,dive"`
}

// Profile is a flat mapping of profile field name to value. Staged and
// durable profiles share this shape.
type Profile map[string]string

// DispatchRecord is what an Idempotency-Key remembers: the job it started and
// the domain that job enriches. A replay must name the same domain.
type DispatchRecord struct {
	CorrelationID string `json:"correlationId"`
	Domain        string `json:"domain"`
}

// ErrInvalidPayload is wrapped by every error returned from Validate.
var ErrInvalidPayload = errors.New("invalid payload")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the payload carries a domain and at least one result,
// and that every result has a non-empty prompt and answer.
func (p JobPayload) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fieldPath(fe))
		}
		return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
}

// fieldPath renders a validator error as a lowercase JSON-ish path, e.g.
// "results[0].answer is required".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:] // drop the "JobPayload." root
	}
	ns = strings.ToLower(ns)
	if fe.Tag() == "min" {
		return ns + " must not be empty"
	}
	return ns + " is " + fe.Tag()
}
