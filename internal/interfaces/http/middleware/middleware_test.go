package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func echoRouter() *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), EnsureUTF8JSON())
	router.POST("/echo", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.Data(http.StatusOK, "application/octet-stream", body)
	})
	return router
}

func TestEnsureUTF8JSON_ConvertsGBK(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(`{"question":"文档讲了什么"}`))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(gbk))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	echoRouter().ServeHTTP(w, req)

	assert.Equal(t, `{"question":"文档讲了什么"}`, w.Body.String())
}

func TestEnsureUTF8JSON_LeavesBinaryUntouched(t *testing.T) {
	payload := []byte{0x25, 0x50, 0x44, 0x46, 0xff, 0xfe, 0x80, 0x81}

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/pdf")
	w := httptest.NewRecorder()
	echoRouter().ServeHTTP(w, req)

	assert.Equal(t, payload, w.Body.Bytes())
}

func TestRequestID(t *testing.T) {
	router := echoRouter()

	req := httptest.NewRequest(http.MethodPost, "/echo", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodPost, "/echo", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
