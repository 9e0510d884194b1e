package github

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates(t *testing.T) {
	notFound := fmt.Errorf("load: %w", &APIError{StatusCode: http.StatusNotFound})
	conflict := &APIError{StatusCode: http.StatusConflict}
	unprocessable := &APIError{StatusCode: http.StatusUnprocessableEntity}
	unauthorized := &APIError{StatusCode: http.StatusUnauthorized}
	limited := &RateLimitError{ResetAt: time.Unix(0, 0)}

	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsNotFound(conflict))
	assert.True(t, IsConflict(conflict))
	assert.True(t, IsConflict(unprocessable))
	assert.False(t, IsConflict(notFound))
	assert.True(t, IsUnauthorized(unauthorized))
	assert.True(t, IsRateLimited(limited))
	assert.False(t, IsRateLimited(errors.New("other")))
}

func TestAPIError_Message(t *testing.T) {
	err := &APIError{StatusCode: 409, Message: "does not match", URL: "https://api.github.com/x"}

	assert.Equal(t, "github: API error 409: does not match (URL: https://api.github.com/x)", err.Error())
}
