package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	err := WriteJSON(rec, http.StatusCreated, map[string]int{"id": 1})

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":1}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()

	err := WriteError(rec, http.StatusBadRequest, "Invalid event", errors.New("invalid event"), "name is required")

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid event", resp.Message)
	assert.Equal(t, "invalid event", resp.Error)
	assert.Equal(t, []string{"name is required"}, resp.Details)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestSuccessResponse(t *testing.T) {
	resp := SuccessResponse("ok", 42)

	assert.True(t, resp.Success)
	assert.Equal(t, 42, resp.Data)
	assert.Empty(t, resp.Error)
}
