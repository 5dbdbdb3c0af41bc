package size

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/router"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedEngine(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodySizeLimiter(limit))
	r.POST("/", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			router.RespondBadRequest(c, "invalid body", err)
			return
		}
		router.RespondOK(c, "ok", body)
	})
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) router.Response {
	t.Helper()
	var res router.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestBodySizeLimiter(t *testing.T) {
	t.Run("Should accept bodies within the limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		newLimitedEngine(64).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Should reject a declared length over the limit before the handler", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"prompt":"far too large"}`))
		newLimitedEngine(8).ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		res := decode(t, w)
		require.NotNil(t, res.Error)
		assert.Equal(t, router.ErrPayloadTooLargeCode, res.Error.Code)
		assert.EqualValues(t, 8, res.Error.Details["limit_bytes"])
	})

	t.Run("Should reject an undeclared length once the reader passes the limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader(`{"prompt":"far too large"}`)))
		req.ContentLength = -1
		newLimitedEngine(8).ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, router.ErrPayloadTooLargeCode, decode(t, w).Error.Code)
	})

	t.Run("Should pass everything through when disabled", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"prompt":"far too large"}`))
		newLimitedEngine(0).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
