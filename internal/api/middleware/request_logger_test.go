package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func loggerRouter() (*gin.Engine, *logtest.Hook) {
	gin.SetMode(gin.TestMode)
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.InfoLevel)

	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/conversation/:session_id/process", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/static/:file", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, hook
}

func TestRequestLoggerFields(t *testing.T) {
	r, hook := loggerRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/conversation/s1/process", nil)
	req.Header.Set("X-Request-Id", "req-1")
	r.ServeHTTP(w, req)

	require.Equal(t, "req-1", w.Header().Get("X-Request-Id"))

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	require.Equal(t, logrus.InfoLevel, entry.Level)
	require.Equal(t, "req-1", entry.Data["request_id"])
	require.Equal(t, "s1", entry.Data["session_id"])
	require.Equal(t, http.StatusOK, entry.Data["status"])
}

func TestRequestLoggerGeneratesRequestID(t *testing.T) {
	r, hook := loggerRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conversation/s1/process", nil))

	require.NotEmpty(t, w.Header().Get("X-Request-Id"))
	require.Len(t, hook.Entries, 1)
}

func TestRequestLoggerSkipsStaticFetches(t *testing.T) {
	r, hook := loggerRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/s1_1.mp3", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, hook.Entries)
}
