// Package auth provides driven.TokenProvider implementations for content
// providers that call authenticated APIs.
package auth
