package boundary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshaltudu14/fieldforce-auth/internal/event"
	"github.com/marshaltudu14/fieldforce-auth/pkg/httputil"
	"github.com/marshaltudu14/fieldforce-auth/pkg/kafka"
	"github.com/marshaltudu14/fieldforce-auth/pkg/logger"
	"github.com/marshaltudu14/fieldforce-auth/pkg/token"
)

const testSecret = "test-secret-key-for-gate"

func issueToken(t *testing.T, status token.EmploymentStatus) string {
	t.Helper()
	svc := token.NewService(testSecret, time.Minute)
	tok, err := svc.Issue(token.Identity{
		Subject:          "FF-1001",
		AccountID:        "emp-1",
		EmploymentStatus: status,
	})
	require.NoError(t, err)
	return tok
}

func gateHandler(t *testing.T) http.Handler {
	t.Helper()
	svc := token.NewService(testSecret, time.Minute)
	log := logger.New("test", "debug")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		w.Header().Set("X-Employee-ID", claims.AccountID)
		w.WriteHeader(http.StatusOK)
	})
	return EmploymentGate(svc, log)(next)
}

func TestEmploymentGate_ActiveProceeds(t *testing.T) {
	h := gateHandler(t)

	r := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	r.Header.Set("Authorization", "Bearer "+issueToken(t, token.StatusActive))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "emp-1", w.Header().Get("X-Employee-ID"))
}

func TestEmploymentGate_OnLeaveProceeds(t *testing.T) {
	h := gateHandler(t)

	r := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	r.Header.Set("Authorization", "Bearer "+issueToken(t, token.StatusOnLeave))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEmploymentGate_StatusDenials(t *testing.T) {
	tests := []struct {
		status      token.EmploymentStatus
		wantMessage string
	}{
		{token.StatusSuspended, "suspended"},
		{token.StatusResigned, "resigned"},
		{token.StatusTerminated, "terminated"},
	}

	h := gateHandler(t)
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
			r.Header.Set("Authorization", "Bearer "+issueToken(t, tt.status))
			w := httptest.NewRecorder()

			h.ServeHTTP(w, r)

			assert.Equal(t, http.StatusForbidden, w.Code)

			var body httputil.ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, body.Message, tt.wantMessage)
			assert.Equal(t, string(tt.status), body.EmploymentStatus)
		})
	}
}

func TestEmploymentGate_InvalidTokensCollapseTo401(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not.a.token"},
		{"whitespace padded token", "Bearer  abc.def.ghi"},
	}

	h := gateHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			h.ServeHTTP(w, r)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body httputil.ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Empty(t, body.EmploymentStatus)
		})
	}
}

func TestEmploymentGate_ExpiredTokenRejected(t *testing.T) {
	svc := token.NewService(testSecret, time.Minute)
	log := logger.New("test", "debug")
	h := EmploymentGate(svc, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for an expired token")
	}))

	// Issue with a tiny TTL, then wait it out.
	shortSvc := token.NewService(testSecret, time.Millisecond)
	tok, err := shortSvc.Issue(token.Identity{
		Subject:          "FF-1001",
		AccountID:        "emp-1",
		EmploymentStatus: token.StatusActive,
	})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	r := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEmploymentGate_OptionsBypasses(t *testing.T) {
	svc := token.NewService(testSecret, time.Minute)
	log := logger.New("test", "debug")

	called := false
	h := EmploymentGate(svc, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest(http.MethodOptions, "/auth/user", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []*kafka.Event
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, evt *kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *capturingPublisher) all() []*kafka.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*kafka.Event(nil), p.events...)
}

func TestClassifierMiddleware_AuditsDenials(t *testing.T) {
	log := logger.New("test", "debug")
	pub := &capturingPublisher{}
	c := NewClassifier(ClassifierConfig{
		WebOrigins: []string{"app.fieldforce.example"},
		AppToken:   "ff-mobile-v1",
	})
	h := c.Middleware(log, event.NewAuditor(pub, log))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// A scripted client is denied and the denial is audited.
	r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	r.Header.Set("User-Agent", "curl/8.4.0")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	events := pub.all()
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeBoundaryDeny, events[0].EventType)

	// An allowed request emits nothing.
	r = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	r.Header.Set("Origin", "https://app.fieldforce.example")
	r.Header.Set("User-Agent", "Mozilla/5.0")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, pub.all(), 1)
}
