package boundary

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestClassifier() *Classifier {
	return NewClassifier(ClassifierConfig{
		WebOrigins: []string{"app.fieldforce.example", "localhost"},
		AppToken:   "ff-mobile-v1",
	})
}

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(r *http.Request)
		wantAllowed bool
		wantType    ClientType
		wantReason  string
	}{
		{
			name: "first party origin allowed as web",
			setup: func(r *http.Request) {
				r.Header.Set("Origin", "https://app.fieldforce.example")
			},
			wantAllowed: true,
			wantType:    ClientWeb,
		},
		{
			name: "localhost dev origin with port allowed as web",
			setup: func(r *http.Request) {
				r.Header.Set("Origin", "http://localhost:3000")
			},
			wantAllowed: true,
			wantType:    ClientWeb,
		},
		{
			name: "referer fallback allowed as web",
			setup: func(r *http.Request) {
				r.Header.Set("Referer", "https://app.fieldforce.example/dashboard")
			},
			wantAllowed: true,
			wantType:    ClientWeb,
		},
		{
			name: "mobile agent with app token allowed as mobile",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", "FieldForce-Mobile/2.4 (Android 14)")
				r.Header.Set(ClientHeader, "ff-mobile-v1")
			},
			wantAllowed: true,
			wantType:    ClientMobile,
		},
		{
			name: "mobile agent without app token denied",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", "FieldForce-Mobile/2.4 (Android 14)")
			},
			wantAllowed: false,
			wantReason:  "external access not permitted",
		},
		{
			name: "mobile agent with wrong app token denied",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", "okhttp/4.12.0")
				r.Header.Set(ClientHeader, "stolen-token")
			},
			wantAllowed: false,
			wantReason:  "external access not permitted",
		},
		{
			name: "generic http library with valid app token allowed as mobile",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", "Go-http-client/2.0")
				r.Header.Set(ClientHeader, "ff-mobile-v1")
			},
			wantAllowed: true,
			wantType:    ClientMobile,
		},
		{
			name: "curl denied as suspicious",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", "curl/7.68.0")
			},
			wantAllowed: false,
			wantReason:  "suspicious agent",
		},
		{
			name: "python requests denied as suspicious",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", "python-requests/2.31.0")
			},
			wantAllowed: false,
			wantReason:  "suspicious agent",
		},
		{
			name: "postman denied as suspicious",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", "PostmanRuntime/7.36.0")
			},
			wantAllowed: false,
			wantReason:  "suspicious agent",
		},
		{
			name: "browser user agent from unknown origin denied by default",
			setup: func(r *http.Request) {
				r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) Firefox/120.0")
				r.Header.Set("Origin", "https://evil.example")
			},
			wantAllowed: false,
			wantReason:  "external access not permitted",
		},
		{
			name:        "no identifying headers denied by default",
			setup:       func(r *http.Request) {},
			wantAllowed: false,
			wantReason:  "external access not permitted",
		},
	}

	c := newTestClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://api.internal/auth/user", nil)
			tt.setup(r)

			verdict := c.Classify(r)
			assert.Equal(t, tt.wantAllowed, verdict.Allowed)
			if tt.wantAllowed {
				assert.Equal(t, tt.wantType, verdict.ClientType)
			} else {
				assert.Contains(t, verdict.Reason, tt.wantReason)
			}
		})
	}
}

func TestClassifier_HealthBypass(t *testing.T) {
	c := newTestClassifier()

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		r := httptest.NewRequest(http.MethodGet, "http://api.internal"+path, nil)
		r.Header.Set("User-Agent", "curl/7.68.0")

		verdict := c.Classify(r)
		assert.True(t, verdict.Allowed, "path %s should bypass classification", path)
	}
}

func TestClassifier_RuleOrderMobileBeforeSuspicious(t *testing.T) {
	c := newTestClassifier()

	// A client that matches both the mobile and the suspicious patterns is
	// allowed when it carries the correct app token.
	r := httptest.NewRequest(http.MethodGet, "http://api.internal/auth/user", nil)
	r.Header.Set("User-Agent", "okhttp/4.12.0 Go-http-client/2.0")
	r.Header.Set(ClientHeader, "ff-mobile-v1")

	verdict := c.Classify(r)
	assert.True(t, verdict.Allowed)
	assert.Equal(t, ClientMobile, verdict.ClientType)
}
