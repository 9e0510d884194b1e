package driven

import "context"

// TokenProvider supplies the bearer token for remote content providers
// such as GitHub.
type TokenProvider interface {
	// GetToken returns the token to send. An empty token with a nil error
	// means the request goes out unauthenticated.
	GetToken(ctx context.Context) (string, error)

	// IsAuthenticated reports whether GetToken can currently succeed.
	IsAuthenticated() bool
}
