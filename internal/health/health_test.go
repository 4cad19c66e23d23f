package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tareqmamari/logan-mcp-server/internal/metrics"
)

type fakeBackend struct {
	err   error
	state string
}

func (f *fakeBackend) Ping(context.Context) error { return f.err }
func (f *fakeBackend) BreakerState() string       { return f.state }

type fakeCredentials struct{ err error }

func (f fakeCredentials) Check() error { return f.err }

func TestCheckAll(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
		creds   fakeCredentials
		want    Status
	}{
		{"healthy", &fakeBackend{state: "closed"}, fakeCredentials{}, StatusHealthy},
		{"half open breaker", &fakeBackend{state: "half-open"}, fakeCredentials{}, StatusDegraded},
		{"open breaker", &fakeBackend{state: "open"}, fakeCredentials{}, StatusUnhealthy},
		{"ping fails", &fakeBackend{state: "closed", err: errors.New("dial tcp")}, fakeCredentials{}, StatusUnhealthy},
		{"bad credentials", &fakeBackend{state: "closed"}, fakeCredentials{err: errors.New("missing key")}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, checks := New(tt.backend, tt.creds, zap.NewNop()).CheckAll(context.Background())
			assert.Equal(t, tt.want, status)
			assert.Len(t, checks, 3)
		})
	}
}

func TestServerEndpoints(t *testing.T) {
	m := metrics.New(zap.NewNop())
	m.RecordCompilation("aggregate", "separate", false)

	s := NewServer(New(&fakeBackend{state: "closed"}, fakeCredentials{}, nil), zap.NewNop(), 0, "", m.Registry())
	h := s.Handler()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/live").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get("/ready").Code)
	s.SetReady(true)
	assert.Equal(t, http.StatusOK, get("/ready").Code)

	rec := get("/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)

	rec = get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "logan_mcp_query_compilations_total")

	post := httptest.NewRecorder()
	h.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/live", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, post.Code)
}

func TestServerWithoutMetrics(t *testing.T) {
	s := NewServer(New(&fakeBackend{state: "open"}, fakeCredentials{}, nil), nil, 0, "", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
