package escalation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLadderRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := NewController(DefaultLadders())
	router := gin.New()
	require.NoError(t, ctrl.Register(router.Group("api/"+ctrl.BasePath(), ctrl.Handlers()...)))
	return router
}

func TestListLadders(t *testing.T) {
	router := newLadderRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ladders", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Ladders []Ladder `json:"ladders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Ladders, 4)

	categories := make([]string, 0, len(body.Ladders))
	for _, l := range body.Ladders {
		categories = append(categories, l.Category)
	}
	assert.Equal(t, []string{"construction", "default", "demolition", "inspection"}, categories)
}

func TestGetLadder(t *testing.T) {
	router := newLadderRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ladders/demolition", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var ladder Ladder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ladder))
	assert.Equal(t, "demolition", ladder.Category)
	assert.Equal(t, 2, ladder.DefaultHours)
	require.Len(t, ladder.Steps, 4)
	assert.Equal(t, "safety_supervisor", ladder.Steps[0].Role)
}

func TestGetLadderFallsBack(t *testing.T) {
	router := newLadderRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ladders/landscaping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var ladder Ladder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ladder))
	assert.Equal(t, "default", ladder.Category, "unknown categories answer with the effective fallback")
}
