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

func TestAbortRedirect_Envelope(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/x", func(c *gin.Context) {
		AbortRedirect(c, http.StatusUnauthorized, ErrTokenRequired, "/login", true)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-1")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))

	var body struct {
		Data     Redirect  `json:"data"`
		Error    ErrorBody `json:"error"`
		Metadata Metadata  `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, Redirect{Outcome: "redirect", Path: "/login", Replace: true}, body.Data)
	assert.Equal(t, ErrTokenRequired, body.Error.Code)
	assert.Equal(t, "req-1", body.Metadata.RequestID)
}

func TestFailWithMessage_FallsBackToCatalogue(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		FailWithMessage(c, http.StatusBadGateway, ErrBackendUnavailable, "")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, GetMessage(ErrBackendUnavailable), body.Error.Message)
	assert.NotEmpty(t, body.Metadata.RequestID)
}
