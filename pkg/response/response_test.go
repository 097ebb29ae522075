package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Body {
	t.Helper()
	var b Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return b
}

func TestOK_OmitsEmptyWarnings(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	OK(c, gin.H{"id": 1})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "warnings")
	assert.True(t, decode(t, w).Success)
}

func TestCreated_WithWarnings(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Created(c, gin.H{"id": 1}, "broadcast failed")

	assert.Equal(t, http.StatusCreated, w.Code)
	b := decode(t, w)
	assert.True(t, b.Success)
	assert.Equal(t, []string{"broadcast failed"}, b.Warnings)
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		send func(*gin.Context, string)
		code int
	}{
		{BadRequest, http.StatusBadRequest},
		{Unauthorized, http.StatusUnauthorized},
		{Forbidden, http.StatusForbidden},
		{NotFound, http.StatusNotFound},
		{Conflict, http.StatusConflict},
		{Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		tt.send(c, "nope")
		assert.Equal(t, tt.code, w.Code)
		b := decode(t, w)
		assert.False(t, b.Success)
		assert.Equal(t, "nope", b.Error)
	}
}
