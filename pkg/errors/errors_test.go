package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := New(CodeConfigError, "bad epsilon")
	assert.Equal(t, "[CONFIG_ERROR] bad epsilon", err.Error())

	wrapped := Wrap(CodeDatabaseError, "save failed", errors.New("connection reset"))
	assert.Equal(t, "[DATABASE_ERROR] save failed: connection reset", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Wrap(CodeParseError, "decode", cause)

	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, cause, errors.Unwrap(wrapped))
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := Newf(CodeDuplicateRelation, "pair (%s, %s) twice", "A", "B")

	assert.ErrorIs(t, err, ErrDuplicateRelation)
	assert.True(t, IsDuplicateRelation(err))
	assert.False(t, IsConfigError(err))
	assert.False(t, errors.Is(err, errors.New("other")))
}

func TestAppError_IsThroughWrapping(t *testing.T) {
	inner := New(CodeUnknownActivity, "ghost task")
	outer := fmt.Errorf("synthesis: %w", inner)

	assert.True(t, IsUnknownActivity(outer))
	assert.Equal(t, CodeUnknownActivity, GetErrorCode(outer))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, CodeNotFound, GetErrorCode(ErrNotFound))
	assert.Equal(t, CodeUnknown, GetErrorCode(errors.New("plain")))
	assert.Equal(t, CodeUnknown, GetErrorCode(nil))
}

func TestGetErrorMessage(t *testing.T) {
	assert.Equal(t, "activity not registered", GetErrorMessage(ErrUnknownActivity))
	assert.Equal(t, "plain", GetErrorMessage(errors.New("plain")))
	assert.Empty(t, GetErrorMessage(nil))
}
