package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeUnavailable, http.StatusServiceUnavailable},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeBusinessRule, http.StatusUnprocessableEntity},
		{ErrCodeImportMissingFile, http.StatusBadRequest},
		{ErrCodeImportMissingColumns, http.StatusUnprocessableEntity},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("NOT_FOUND"))
	assert.Equal(t, ErrCodeInvalidInput, NormalizeErrorCode("INVALID_FORMAT"))
	assert.Equal(t, ErrCodeInternal, NormalizeErrorCode("PERSISTENCE_FAILED"))
	assert.Equal(t, ErrCodeBusinessRule, NormalizeErrorCode("HEADER_MISMATCH"))
	assert.Equal(t, ErrCodeTokenInvalid, NormalizeErrorCode(ErrCodeTokenInvalid))
	assert.Equal(t, "SOMETHING_ELSE", NormalizeErrorCode("SOMETHING_ELSE"))
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeImportMissingColumns, "missing required columns", "req-1", "Vat", "Total")

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"error": {
			"code": "ERR_IMPORT_MISSING_COLUMNS",
			"message": "missing required columns",
			"request_id": "req-1",
			"details": ["Vat", "Total"]
		}
	}`, string(raw))
}

func TestSuccessResponseJSON(t *testing.T) {
	raw, err := json.Marshal(NewSuccessResponse(map[string]int{"total": 2}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success": true, "data": {"total": 2}}`, string(raw))
}
