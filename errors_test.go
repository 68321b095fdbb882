package thread

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredError(t *testing.T) {
	err := NewError("Create", 3, ErrCodeTableFull, "thread table full")

	assert.Equal(t, "Create", err.Op)
	assert.Equal(t, 3, err.Tid)
	assert.Equal(t, ErrCodeTableFull, err.Code)
	assert.Equal(t, "thread: thread table full (op=Create)", err.Error())
}

func TestErrorWithoutTid(t *testing.T) {
	err := NewError("Sleep", -1, ErrCodeNilQueue, "nil wait queue")
	assert.Equal(t, "thread: nil wait queue (op=Sleep)", err.Error())
}

func TestWrapErrorPreservesInnerSentinel(t *testing.T) {
	inner := errors.New("sched: invalid or dead tid")
	err := WrapError("Yield", 5, inner)
	require.NotNil(t, err)
	assert.Equal(t, ErrCodeFailed, err.Code)
	assert.ErrorIs(t, err, err) // Is() matches same Code
	assert.Equal(t, inner, errors.Unwrap(err))
}

func TestWrapErrorNilIsNil(t *testing.T) {
	assert.Nil(t, WrapError("Yield", 5, nil))
}

func TestIsCode(t *testing.T) {
	err := NewError("Kill", 2, ErrCodeInvalidTid, "invalid or dead tid")
	assert.True(t, IsCode(err, ErrCodeInvalidTid))
	assert.False(t, IsCode(err, ErrCodeTableFull))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeInvalidTid))
}

func TestAssertfPanicsOnFalse(t *testing.T) {
	assert.Panics(t, func() { assertf(false, "boom %d", 7) })
	assert.NotPanics(t, func() { assertf(true, "unreachable") })
}
