package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		category Category
		severity Severity
	}{
		{"config", ErrCodeConfigInvalid, CategoryConfig, SeverityError},
		{"page not found", ErrCodePageNotFound, CategoryNotFound, SeverityError},
		{"highlight not found", ErrCodeHighlightNotFound, CategoryNotFound, SeverityError},
		{"index unavailable is fatal", ErrCodeIndexUnavailable, CategoryIndex, SeverityFatal},
		{"index write is warning", ErrCodeIndexWriteFailed, CategoryIndex, SeverityWarning},
		{"bad data", ErrCodeBadData, CategoryValidation, SeverityError},
		{"already exists", ErrCodeAlreadyExists, CategoryValidation, SeverityError},
		{"internal", ErrCodeInternal, CategoryInternal, SeverityError},
		{"garbage code", "XYZ", CategoryInternal, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
		})
	}
}

func TestError_Format(t *testing.T) {
	err := New(ErrCodeBadData, "percent out of range", nil)
	assert.Equal(t, "[ERR_401_BAD_DATA] percent out of range", err.Error())
}

func TestIs_MatchesByCode(t *testing.T) {
	a := New(ErrCodePageNotFound, "page not found", nil)
	b := New(ErrCodePageNotFound, "different message", nil)
	c := New(ErrCodeBadData, "page not found", nil)

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, c))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCodeIndexWriteFailed, cause)

	require.NotNil(t, err)
	assert.Equal(t, cause, stderrors.Unwrap(err))
	assert.Equal(t, "connection refused", err.Message)
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestWithDetail(t *testing.T) {
	err := PageNotFound("p1")
	assert.Equal(t, "p1", err.Details["page_id"])
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeIndexUnavailable, "down", nil)))
	assert.False(t, IsFatal(New(ErrCodeBadData, "bad", nil)))
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(fmt.Errorf("plain")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeBadData, GetCode(BadData("nope")))
	assert.Equal(t, "", GetCode(fmt.Errorf("plain")))
}
