package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestNewDatabaseErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		cause  error
		status int
	}{
		{"record not found", fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound), http.StatusNotFound},
		{"translated duplicate", gorm.ErrDuplicatedKey, http.StatusConflict},
		{"translated foreign key", gorm.ErrForeignKeyViolated, http.StatusConflict},
		{"raw postgres duplicate", errors.New(`ERROR: duplicate key value violates unique constraint "idx_tags_slug"`), http.StatusConflict},
		{"raw sqlite unique", errors.New("UNIQUE constraint failed: project_tags.slug"), http.StatusConflict},
		{"connection", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable},
		{"anything else", errors.New("syntax error"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewDatabaseError("find", "project", tc.cause)
			assert.Equal(t, tc.status, err.StatusCode)
		})
	}
}

func TestNewDatabaseErrorKeepsApiErr(t *testing.T) {
	inner := NewProtectedError("category", "projects", 2)
	err := NewDatabaseError("delete", "category", inner)
	assert.Same(t, inner, err)
	assert.True(t, IsProtectedReference(err))
	assert.Equal(t, http.StatusConflict, StatusCode(err))
}

func TestNotFoundHelpers(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFound("tag")))
	assert.True(t, IsNotFound(NewDatabaseError("find", "tag", gorm.ErrRecordNotFound)))
	assert.Equal(t, "tag not found", NewNotFound("tag").Error())
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestValidationError(t *testing.T) {
	v := NewValidationError()
	assert.NoError(t, v.OrNil())

	v.Add("name", "This field is required.")
	v.Add("name", "Ensure this field has no more than 50 characters.")
	v.Add("order", "Ensure this value is greater than or equal to 0.")

	err := v.OrNil()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidField))
	assert.Len(t, v.Fields["name"], 2)
	assert.Equal(t, "validation failed: name: This field is required.; Ensure this field has no more than 50 characters., order: Ensure this value is greater than or equal to 0.", err.Error())
}

func TestGetFullErrorFollowsCauses(t *testing.T) {
	err := NewInternalErrorWithCause("save project", NewDatabaseError("insert", "project", errors.New("boom")))
	assert.Equal(t, "save project -> database query failed: Failed to insert project -> boom", err.GetFullError())
}

func TestAuthErrors(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, NewNotAuthenticatedError().StatusCode)
	assert.Equal(t, http.StatusForbidden, StatusCode(NewInsufficientRoleError()))
	assert.True(t, IsCSRFError(NewCSRFError("token missing")))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("x")))
}
