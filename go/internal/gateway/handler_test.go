package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkessler/typerace/go/internal/scoreboard"
)

type countingNotifier struct {
	calls int
}

func (n *countingNotifier) BroadcastScores() { n.calls++ }

func newTestHandler() (*Handler, *scoreboard.Scoreboard, *countingNotifier) {
	board := scoreboard.New(10)
	notifier := &countingNotifier{}
	cm := NewConnectionManager(DefaultConnectionConfig())
	return NewHandler(cm, board, notifier, clockwork.NewFakeClock()), board, notifier
}

func TestHealthRoot(t *testing.T) {
	h, _, _ := newTestHandler()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "typing-race server ok\n", rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetScores(t *testing.T) {
	h, board, _ := newTestHandler()
	board.Record(scoreboard.Entry{Name: "A", Score: 90, Timestamp: 1})

	rec := httptest.NewRecorder()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scores", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Scores []scoreboard.Entry `json:"scores"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Scores, 1)
	assert.Equal(t, "A", body.Scores[0].Name)
}

func TestPostScores(t *testing.T) {
	h, board, notifier := newTestHandler()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	t.Run("accepts a valid submission", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/scores", strings.NewReader(`{"name":"Dana","score":120}`))
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, 1, notifier.calls)
		require.Len(t, board.List(), 1)
		assert.Equal(t, 120, board.List()[0].Score)
	})

	t.Run("rejects a non-positive score", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/scores", strings.NewReader(`{"name":"Dana","score":0}`))
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var body struct {
			Error string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body.Error)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/scores", strings.NewReader(`{`))
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects other methods", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/scores", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
