package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func allErrors() []error {
	return []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrProviderNotFound,
		ErrInvalidEdit,
		ErrReadonly,
		ErrDisposed,
		ErrReferenceReleased,
		ErrSaveConflict,
		ErrNotPersistable,
		ErrSaveSuperseded,
		ErrRecoveryMismatch,
	}
}

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	for _, err := range allErrors() {
		assert.NotNil(t, err)
		assert.NotEmpty(t, err.Error())
	}
}

// TestErrNotFound tests ErrNotFound error
func TestErrNotFound(t *testing.T) {
	assert.Equal(t, "not found", ErrNotFound.Error())
	assert.True(t, errors.Is(ErrNotFound, ErrNotFound))
	assert.False(t, errors.Is(ErrNotFound, ErrInvalidInput))
}

// TestErrSaveConflict_Wrapped tests conflicts survive wrapping by adapters
func TestErrSaveConflict_Wrapped(t *testing.T) {
	err := fmt.Errorf("%w: file:///a.txt", ErrSaveConflict)
	assert.ErrorIs(t, err, ErrSaveConflict)
	assert.NotErrorIs(t, err, ErrSaveSuperseded)
}

// TestErrors_Uniqueness tests that all errors are distinct
func TestErrors_Uniqueness(t *testing.T) {
	errs := allErrors()
	for i := range errs {
		for j := range errs {
			if i != j {
				assert.False(t, errors.Is(errs[i], errs[j]), "%v is %v", errs[i], errs[j])
			}
		}
	}
}
