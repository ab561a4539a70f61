package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/lqrdrive/internal/control"
)

func newTestServer(t *testing.T) (*Server, *bytes.Buffer) {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := log.New(logs)
	logger.SetLevel(log.DebugLevel)
	s, err := New("127.0.0.1:0", control.DefaultTunerConfig(), logger)
	require.NoError(t, err)
	return s, logs
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, SolveResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/solve_lqr", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp SolveResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func assertCORS(t *testing.T, h http.Header) {
	t.Helper()
	assert.Equal(t, "*", h.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", h.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", h.Get("Access-Control-Allow-Headers"))
}

func TestSolveDefaults(t *testing.T) {
	s, logs := newTestServer(t)
	rec, resp := post(t, s.Handler(), `{}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assertCORS(t, rec.Header())

	assert.Equal(t, DefaultQ, resp.Q)
	assert.Equal(t, DefaultR, resp.R)
	assert.False(t, resp.Fallback)
	assert.Empty(t, resp.Reason)
	require.Len(t, resp.K, 2)
	assert.InDelta(t, 3.1622776601683795, resp.K[0], 1e-6)
	assert.InDelta(t, 2.5346706532282965, resp.K[1], 1e-6)
	assert.Contains(t, logs.String(), "solved")
}

func TestSolveWeights(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name  string
		body  string
		q, r  float64
		wantK float64
	}{
		{"explicit", `{"q": 4, "r": 1}`, 4, 1, 2},
		{"only r", `{"r": 0.25}`, 10, 0.25, math.Sqrt(40)},
		{"clamped high", `{"q": 1e9, "r": 0.0001}`, 5000, 0.01, math.Sqrt(5000 / 0.01)},
		{"clamped low", `{"q": -3, "r": 1e9}`, 0.1, 1000, math.Sqrt(0.1 / 1000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := post(t, s.Handler(), tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.q, resp.Q)
			assert.Equal(t, tt.r, resp.R)
			assert.False(t, resp.Fallback)
			assert.InDelta(t, tt.wantK, resp.K[0], 1e-6)
		})
	}
}

func TestSolveRequestsAreIndependent(t *testing.T) {
	s, _ := newTestServer(t)
	_, first := post(t, s.Handler(), `{"q": 100}`)
	_, second := post(t, s.Handler(), `{}`)
	assert.NotEqual(t, first.K[0], second.K[0])
	assert.Equal(t, DefaultQ, second.Q)
}

func TestSolveMalformedBody(t *testing.T) {
	s, _ := newTestServer(t)
	for _, body := range []string{`{"q": `, `not json`, ``, `{"q": "ten"}`} {
		rec, _ := post(t, s.Handler(), body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assertCORS(t, rec.Header())
	}
}

func TestPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/solve_lqr", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assertCORS(t, rec.Header())
	assert.Empty(t, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/solve_lqr", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNewRejectsInvalidTuning(t *testing.T) {
	cfg := control.DefaultTunerConfig()
	cfg.QRange = control.Range{Min: 0, Max: 1}
	_, err := New(":0", cfg, nil)
	assert.ErrorIs(t, err, control.ErrInvalidTuning)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, logs := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := fmt.Sprintf("http://%s/api/solve_lqr", ln.Addr())
	resp, err := http.Post(url, "application/json", strings.NewReader(`{"q": 1, "r": 1}`))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"K":[`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Contains(t, logs.String(), "gain service stopped")
}
