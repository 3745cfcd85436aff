package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	autherrors "github.com/marshaltudu14/fieldforce-auth/pkg/errors"
	"github.com/marshaltudu14/fieldforce-auth/pkg/httputil"
	"github.com/marshaltudu14/fieldforce-auth/pkg/logger"
)

func newGateway(t *testing.T, baseURL string, retryAttempts int) *Gateway {
	t.Helper()
	return New(Config{
		BaseURL:       baseURL,
		AppToken:      "ff-mobile-v1",
		Timeout:       2 * time.Second,
		RetryAttempts: retryAttempts,
		RetryBase:     time.Millisecond,
	}, logger.New("gateway-test", "debug"))
}

// dropConn hijacks the connection and closes it without a response, which
// the client sees as a transport failure.
func dropConn(w http.ResponseWriter, _ *http.Request) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("test server does not support hijacking")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(err)
	}
	_ = conn.Close()
}

func TestDo_Success(t *testing.T) {
	var gotClientHeader, gotContentType, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClientHeader = r.Header.Get(ClientHeader)
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["hello"]})
	}))
	defer srv.Close()

	g := newGateway(t, srv.URL, 3)

	var out map[string]string
	err := g.Do(context.Background(), http.MethodPost, "/auth/login",
		map[string]string{"hello": "world"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "world", out["echo"])
	assert.Equal(t, "ff-mobile-v1", gotClientHeader)
	assert.Equal(t, "application/json", gotContentType)
	assert.Empty(t, gotAuth)
}

func TestDoWithToken_SetsAuthorization(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	g := newGateway(t, srv.URL, 3)

	err := g.DoWithToken(context.Background(), http.MethodGet, "/auth/user", "abc.def.ghi", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc.def.ghi", gotAuth)
}

func TestDo_RetriesNetworkErrorsExactly(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		dropConn(w, r)
	}))
	defer srv.Close()

	g := newGateway(t, srv.URL, 3)

	err := g.Do(context.Background(), http.MethodPost, "/auth/login", map[string]string{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, autherrors.ErrNetwork))
	// One initial attempt plus exactly three retries.
	assert.Equal(t, int32(4), hits.Load())
}

func TestDo_NeverRetriesHTTPStatuses(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(status)
			}))
			defer srv.Close()

			g := newGateway(t, srv.URL, 3)

			err := g.Do(context.Background(), http.MethodGet, "/auth/user", nil, nil)
			require.Error(t, err)
			assert.False(t, autherrors.IsRetryable(err))
			assert.Equal(t, int32(1), hits.Load())
		})
	}
}

func TestDo_TimeoutIsRetryable(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	g := New(Config{
		BaseURL:       srv.URL,
		AppToken:      "ff-mobile-v1",
		Timeout:       20 * time.Millisecond,
		RetryAttempts: 1,
		RetryBase:     time.Millisecond,
	}, logger.New("gateway-test", "debug"))

	err := g.Do(context.Background(), http.MethodGet, "/auth/user", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, autherrors.ErrTimeout))
	assert.Equal(t, int32(2), hits.Load())
}

func TestDo_TranslatesErrorBodies(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       httputil.ErrorBody
		sentinel   error
		checkExtra func(t *testing.T, err error)
	}{
		{
			name:     "401 authentication",
			status:   http.StatusUnauthorized,
			body:     httputil.ErrorBody{Error: "AUTHENTICATION_FAILED", Message: "bad credentials"},
			sentinel: autherrors.ErrAuthentication,
		},
		{
			name:   "403 carries employment status",
			status: http.StatusForbidden,
			body: httputil.ErrorBody{
				Error:            "AUTHORIZATION_DENIED",
				Message:          "your account is suspended; please contact HR",
				EmploymentStatus: "SUSPENDED",
			},
			sentinel: autherrors.ErrAuthorization,
			checkExtra: func(t *testing.T, err error) {
				var authErr *autherrors.AuthError
				require.True(t, errors.As(err, &authErr))
				assert.Equal(t, "SUSPENDED", authErr.EmploymentStatus)
				assert.Contains(t, authErr.Message, "suspended")
			},
		},
		{
			name:     "429 carries retry after",
			status:   http.StatusTooManyRequests,
			body:     httputil.ErrorBody{Error: "RATE_LIMITED", Message: "slow down", RetryAfter: 30},
			sentinel: autherrors.ErrRateLimited,
			checkExtra: func(t *testing.T, err error) {
				var authErr *autherrors.AuthError
				require.True(t, errors.As(err, &authErr))
				assert.Equal(t, 30, authErr.RetryAfter)
			},
		},
		{
			name:     "500 server error",
			status:   http.StatusInternalServerError,
			body:     httputil.ErrorBody{Error: "INTERNAL_ERROR", Message: "boom"},
			sentinel: autherrors.ErrServer,
		},
		{
			name:     "400 validation",
			status:   http.StatusBadRequest,
			body:     httputil.ErrorBody{Error: "INVALID_INPUT", Message: "identifier required"},
			sentinel: autherrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			g := newGateway(t, srv.URL, 3)
			err := g.Do(context.Background(), http.MethodPost, "/auth/login", map[string]string{}, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel))
			if tt.checkExtra != nil {
				tt.checkExtra(t, err)
			}
		})
	}
}

func TestDo_CircuitBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		dropConn(w, r)
	}))
	defer srv.Close()

	g := newGateway(t, srv.URL, 3)

	// Two failing calls of four attempts each trip the breaker.
	_ = g.Do(context.Background(), http.MethodGet, "/auth/user", nil, nil)
	_ = g.Do(context.Background(), http.MethodGet, "/auth/user", nil, nil)
	require.Equal(t, int32(8), hits.Load())

	err := g.Do(context.Background(), http.MethodGet, "/auth/user", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, autherrors.ErrNetwork))
	assert.Equal(t, int32(8), hits.Load(), "open circuit must fail fast without reaching the network")
}
