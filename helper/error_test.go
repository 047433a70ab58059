package helper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	t.Run("Wraps operation and error", func(t *testing.T) {
		inner := errors.New("connection refused")
		err := NewError("insert event", inner)

		assert.EqualError(t, err, "error in insert event: connection refused", "Expected formatted error message")
		assert.ErrorIs(t, err, inner, "Expected wrapped error to match with errors.Is")
	})

	t.Run("Unwrap returns the inner error", func(t *testing.T) {
		inner := errors.New("boom")
		err := NewError("load", inner)

		assert.Equal(t, inner, err.Unwrap(), "Expected Unwrap to return the inner error")
	})
}
