// internal/handlers/sample_test.go
package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sampledhq/sampled-backend/internal/utils"
)

// A body that binds but fails field validation must produce a structured
// validation error, never a 500.
func TestUploadSampleValidationFailureReturns400(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewSampleHandler(nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("user_id", uuid.New().String())
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/samples", strings.NewReader(`{"title":"Kick Loop"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.UploadSample(c)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.False(t, resp.Success)
}
