package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_Immediate(t *testing.T) {
	r := Immediate(42, nil)
	assert.False(t, r.IsDeferred())

	out, ok := r.Ready()
	require.True(t, ok)
	assert.Equal(t, 42, out.Value)

	v, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestResult_ImmediateError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Immediate(0, boom).Wait(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestResult_Deferred(t *testing.T) {
	ch := make(chan Outcome[string], 1)
	r := Deferred(ch)
	assert.True(t, r.IsDeferred())

	_, ok := r.Ready()
	assert.False(t, ok)

	ch <- Outcome[string]{Value: "later"}
	v, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "later", v)
}

func TestResult_DeferredClosed(t *testing.T) {
	ch := make(chan Outcome[*CacheRecord])
	close(ch)

	v, err := Deferred(ch).Wait(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestResult_WaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Deferred(make(chan Outcome[int])).Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
