package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fieldops/console/pkg/config"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func newTestServer(t *testing.T, db Pinger) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewServer(zaptest.NewLogger(t), config.Defaults(), db)
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Engine().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &fakePinger{})
	w := doGet(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyz(t *testing.T) {
	t.Run("ready when database answers", func(t *testing.T) {
		s := newTestServer(t, &fakePinger{})
		w := doGet(t, s, "/readyz")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unavailable when database does not answer", func(t *testing.T) {
		s := newTestServer(t, &fakePinger{err: errors.New("connection refused")})
		w := doGet(t, s, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("ok without a configured database", func(t *testing.T) {
		s := newTestServer(t, nil)
		w := doGet(t, s, "/readyz")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestVersionEndpoint(t *testing.T) {
	s := newTestServer(t, &fakePinger{})
	w := doGet(t, s, "/api/version")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "fieldops-console", body["product"])
	assert.NotEmpty(t, body["version"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &fakePinger{})
	w := doGet(t, s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

type stubController struct {
	base       string
	registered bool
	middleware []gin.HandlerFunc
}

func (c *stubController) BasePath() string            { return c.base }
func (c *stubController) Handlers() []gin.HandlerFunc { return c.middleware }
func (c *stubController) Register(rg *gin.RouterGroup) error {
	c.registered = true
	rg.GET("ping", func(ctx *gin.Context) { ctx.String(http.StatusOK, "pong") })
	return nil
}

func TestRegisterAll(t *testing.T) {
	s := newTestServer(t, &fakePinger{})
	ctrl := &stubController{base: "widgets"}
	require.NoError(t, s.RegisterAll([]APIController{ctrl}))
	assert.True(t, ctrl.registered)

	w := doGet(t, s, "/api/widgets/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRegisterAllAppliesHandlers(t *testing.T) {
	s := newTestServer(t, &fakePinger{})
	called := false
	ctrl := &stubController{
		base: "widgets",
		middleware: []gin.HandlerFunc{func(c *gin.Context) {
			called = true
			c.Next()
		}},
	}
	require.NoError(t, s.RegisterAll([]APIController{ctrl}))

	doGet(t, s, "/api/widgets/ping")
	assert.True(t, called, "controller middleware runs")
}
