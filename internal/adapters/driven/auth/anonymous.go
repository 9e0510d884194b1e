package auth

import (
	"context"

	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
)

var _ driven.TokenProvider = (*Anonymous)(nil)

// Anonymous serves an empty token so API clients make unauthenticated
// requests. Public GitHub repositories can be read this way, subject to
// the lower anonymous rate limit.
//
// When wrapping another provider, that provider's token is used whenever
// it has one, so a token configured after start-up takes effect without
// rewiring.
type Anonymous struct {
	fallbackOf driven.TokenProvider
}

// NewAnonymous returns a provider that never authenticates.
func NewAnonymous() *Anonymous {
	return &Anonymous{}
}

// OrAnonymous wraps p so a missing token degrades to anonymous access
// instead of an error.
func OrAnonymous(p driven.TokenProvider) *Anonymous {
	return &Anonymous{fallbackOf: p}
}

// GetToken returns the wrapped provider's token if it has one, else "".
func (a *Anonymous) GetToken(ctx context.Context) (string, error) {
	if a.fallbackOf != nil && a.fallbackOf.IsAuthenticated() {
		return a.fallbackOf.GetToken(ctx)
	}
	return "", nil
}

// IsAuthenticated is always true: anonymous access needs no credentials.
func (a *Anonymous) IsAuthenticated() bool {
	return true
}
