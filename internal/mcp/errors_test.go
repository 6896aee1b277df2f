package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foresthq/forest/internal/ferrors"
)

func TestMapError_NilIsNil(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_ValidationMapsToInvalidParams(t *testing.T) {
	// Given: a validation error from the core
	err := ferrors.Validation("bad editor buffer", nil)

	// When/Then: it maps to invalid params with the message intact
	me := MapError(err)
	require.NotNil(t, me)
	assert.Equal(t, ErrCodeInvalidParams, me.Code)
	assert.Contains(t, me.Message, "bad editor buffer")
}

func TestMapError_NotFoundMapsToMethodNotFound(t *testing.T) {
	me := MapError(ferrors.NotFound("node not found", nil))
	require.NotNil(t, me)
	assert.Equal(t, ErrCodeMethodNotFound, me.Code)
}

func TestMapError_AmbiguousCarriesCandidates(t *testing.T) {
	// Given: an ambiguous prefix with two candidates
	err := ferrors.Ambiguous("prefix 7fa7 is ambiguous", []string{"7fa7a", "7fa7b"})

	// When/Then: invalid params, naming the candidates
	me := MapError(err)
	require.NotNil(t, me)
	assert.Equal(t, ErrCodeInvalidParams, me.Code)
	assert.Contains(t, me.Message, "7fa7a")
	assert.Contains(t, me.Message, "7fa7b")
}

func TestMapError_TransientStorageIsInternal(t *testing.T) {
	me := MapError(ferrors.StorageTransient("disk io", nil))
	require.NotNil(t, me)
	assert.Equal(t, ErrCodeInternalError, me.Code)
}

func TestMapError_ContextDeadline(t *testing.T) {
	me := MapError(context.DeadlineExceeded)
	require.NotNil(t, me)
	assert.Equal(t, ErrCodeInternalError, me.Code)
	assert.Contains(t, me.Message, "timed out")
}

func TestMapError_UnknownErrorIsGenericInternal(t *testing.T) {
	// An arbitrary error must not leak its message to the client
	me := MapError(errors.New("sqlite: database is locked at /home/user/.forest"))
	require.NotNil(t, me)
	assert.Equal(t, ErrCodeInternalError, me.Code)
	assert.Equal(t, "internal server error", me.Message)
}

func TestMCPError_ErrorStringCarriesCode(t *testing.T) {
	e := &MCPError{Code: ErrCodeInvalidParams, Message: "nope"}
	assert.Contains(t, e.Error(), "-32602")
	assert.Contains(t, e.Error(), "nope")
}
