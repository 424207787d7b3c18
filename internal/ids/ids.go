// Package ids allocates the opaque identifiers that correlate a dispatched
// job with its callback and its pollers, and that name staged profiles.
package ids

import (
	"regexp"

	"github.com/google/uuid"
)

// MaxLen caps identifiers accepted from callers.
const MaxLen = 128

var tokenRE = regexp.MustCompile(`^[A-Za-z0-9._~:\-]+$`)

// New returns a fresh random identifier (UUIDv4, 122 random bits). It is safe
// for concurrent use.
func New() string { return uuid.NewString() }

// Valid reports whether id has the shape of an identifier this service could
// have issued: non-empty, at most MaxLen bytes, and limited to URL-safe token
// characters. It does not check that the id was ever allocated.
func Valid(id string) bool {
	return id != "" && len(id) <= MaxLen && tokenRE.MatchString(id)
}
