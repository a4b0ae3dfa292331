package errors

import (
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestCloneKeepsIdentity(t *testing.T) {
	cloned := Clone(ErrNotFound, "complaint not found")
	assert.Equal(t, "complaint not found", cloned.Message)
	assert.True(t, errors.Is(cloned, ErrNotFound))
	assert.False(t, errors.Is(cloned, ErrForbidden))
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}
