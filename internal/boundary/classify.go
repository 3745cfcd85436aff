// Package boundary guards the trust perimeter of the auth service: it
// classifies inbound callers as first-party web, mobile app, or external
// traffic, and gates authenticated requests on employment status.
package boundary

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ClientHeader is the client-identification header the mobile app sends on
// every request. Its value must match the configured app token.
const ClientHeader = "X-FieldForce-Client"

// ClientType classifies an allowed caller.
type ClientType string

const (
	ClientWeb    ClientType = "web"
	ClientMobile ClientType = "mobile"
)

// Classification is the per-request verdict. It is never persisted.
type Classification struct {
	Allowed    bool
	ClientType ClientType
	Reason     string
}

var classificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "boundary_classifications_total",
		Help: "Boundary classification verdicts by rule",
	},
	[]string{"rule", "verdict"},
)

// rule is one entry in the ordered classification list. The first rule that
// matches terminates the pass.
type rule struct {
	name     string
	evaluate func(r *http.Request) (Classification, bool)
}

// ClassifierConfig configures the ordered rule list.
type ClassifierConfig struct {
	// WebOrigins are first-party web hosts (no scheme, port optional),
	// e.g. "app.fieldforce.example" or "localhost".
	WebOrigins []string

	// AppToken is the expected value of the client-identification header.
	AppToken string

	// MobileAgentPatterns and SuspiciousAgentPatterns are regular
	// expressions matched case-insensitively against the User-Agent.
	// Empty slices fall back to the built-in defaults.
	MobileAgentPatterns     []string
	SuspiciousAgentPatterns []string

	// BypassPrefixes are path prefixes that skip classification entirely
	// (health and diagnostics). Defaults to /health and /metrics.
	BypassPrefixes []string
}

var defaultMobilePatterns = []string{
	`fieldforce-mobile`,
	`okhttp`,
	`dart/`,
}

var defaultSuspiciousPatterns = []string{
	`^curl/`,
	`^wget/`,
	`python-requests`,
	`python-urllib`,
	`postmanruntime`,
	`go-http-client`,
	`^java/`,
	`httpie`,
	`scrapy`,
	`bot\b`,
	`spider`,
	`crawler`,
}

// Classifier walks an ordered rule list and returns the first verdict. Rules
// are data, not control flow, so new client signatures can be added without
// touching the pass itself.
type Classifier struct {
	rules []rule
}

// NewClassifier builds the five-rule classification pass from the config.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	if len(cfg.MobileAgentPatterns) == 0 {
		cfg.MobileAgentPatterns = defaultMobilePatterns
	}
	if len(cfg.SuspiciousAgentPatterns) == 0 {
		cfg.SuspiciousAgentPatterns = defaultSuspiciousPatterns
	}
	if len(cfg.BypassPrefixes) == 0 {
		cfg.BypassPrefixes = []string{"/health", "/metrics"}
	}

	webHosts := make(map[string]struct{}, len(cfg.WebOrigins))
	for _, origin := range cfg.WebOrigins {
		webHosts[normalizeHost(origin)] = struct{}{}
	}
	mobileRe := compilePatterns(cfg.MobileAgentPatterns)
	suspiciousRe := compilePatterns(cfg.SuspiciousAgentPatterns)

	c := &Classifier{}
	c.rules = []rule{
		{
			name: "health_bypass",
			evaluate: func(r *http.Request) (Classification, bool) {
				for _, prefix := range cfg.BypassPrefixes {
					if strings.HasPrefix(r.URL.Path, prefix) {
						return Classification{Allowed: true, ClientType: ClientWeb}, true
					}
				}
				return Classification{}, false
			},
		},
		{
			name: "web_origin",
			evaluate: func(r *http.Request) (Classification, bool) {
				for _, candidate := range []string{originHost(r.Header.Get("Origin")), originHost(r.Header.Get("Referer")), r.Host} {
					if candidate == "" {
						continue
					}
					if _, ok := webHosts[normalizeHost(candidate)]; ok {
						return Classification{Allowed: true, ClientType: ClientWeb}, true
					}
				}
				return Classification{}, false
			},
		},
		{
			// A legitimate mobile client is matched before the
			// suspicious-agent rule, so a mobile user agent that also
			// looks like a generic HTTP library is never blocked.
			name: "mobile_app",
			evaluate: func(r *http.Request) (Classification, bool) {
				ua := strings.ToLower(r.UserAgent())
				clientID := r.Header.Get(ClientHeader)
				looksLikeMobile := matchesAny(mobileRe, ua) || clientID != ""
				if looksLikeMobile && clientID == cfg.AppToken && cfg.AppToken != "" {
					return Classification{Allowed: true, ClientType: ClientMobile}, true
				}
				return Classification{}, false
			},
		},
		{
			name: "suspicious_agent",
			evaluate: func(r *http.Request) (Classification, bool) {
				if matchesAny(suspiciousRe, strings.ToLower(r.UserAgent())) {
					return Classification{Reason: "suspicious agent"}, true
				}
				return Classification{}, false
			},
		},
		{
			name: "default_deny",
			evaluate: func(r *http.Request) (Classification, bool) {
				return Classification{Reason: "external access not permitted"}, true
			},
		},
	}
	return c
}

// Classify runs the ordered rule list and returns the terminal verdict.
func (c *Classifier) Classify(r *http.Request) Classification {
	for _, rl := range c.rules {
		verdict, matched := rl.evaluate(r)
		if !matched {
			continue
		}
		outcome := "deny"
		if verdict.Allowed {
			outcome = "allow"
		}
		classificationsTotal.WithLabelValues(rl.name, outcome).Inc()
		return verdict
	}
	// The default rule always matches; this is unreachable.
	return Classification{Reason: "external access not permitted"}
}

type classificationKey struct{}

// FromContext returns the classification stored by the middleware.
func FromContext(ctx context.Context) (Classification, bool) {
	cl, ok := ctx.Value(classificationKey{}).(Classification)
	return cl, ok
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		res = append(res, regexp.MustCompile(`(?i)`+p))
	}
	return res
}

func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func originHost(origin string) string {
	if origin == "" {
		return ""
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
