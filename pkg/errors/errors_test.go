package errors

import (
	"database/sql"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(sql.ErrConnDone)
	require.NotNil(t, err)
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.True(t, stdErrors.Is(err, sql.ErrConnDone))
}

func TestCloneKeepsIdentity(t *testing.T) {
	cloned := Clone(ErrValidation, "title is required")
	assert.Equal(t, "title is required", cloned.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message)
	assert.True(t, stdErrors.Is(fmt.Errorf("create badge: %w", cloned), ErrValidation))
	assert.False(t, stdErrors.Is(cloned, ErrNotFound))
}

func TestInternalMessage(t *testing.T) {
	err := Internal(sql.ErrTxDone, "failed to list offers")
	assert.Equal(t, "failed to list offers: sql: transaction has already been committed or rolled back", err.Error())
	assert.Nil(t, FromError(nil))
}
