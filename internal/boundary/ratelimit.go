package boundary

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	autherrors "github.com/marshaltudu14/fieldforce-auth/pkg/errors"
	"github.com/marshaltudu14/fieldforce-auth/pkg/httputil"
)

// LoginRateLimiter throttles credential-guessing by source IP using a token
// bucket per address.
type LoginRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewLoginRateLimiter creates a limiter allowing limit events per second
// with the given burst per client IP.
func NewLoginRateLimiter(limit rate.Limit, burst int) *LoginRateLimiter {
	return &LoginRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (l *LoginRateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}
	return lim
}

// Middleware rejects over-limit requests with a 429 carrying a retry-after
// hint derived from the bucket's refill delay.
func (l *LoginRateLimiter) Middleware(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lim := l.limiterFor(clientIP(r))

			res := lim.Reserve()
			if !res.OK() || res.Delay() > 0 {
				retryAfter := 1
				if res.OK() {
					retryAfter = int(math.Ceil(res.Delay().Seconds()))
					res.Cancel()
				}
				log.WarnContext(r.Context(), "login rate limit exceeded",
					slog.String("client_ip", clientIP(r)),
				)
				httputil.WriteError(w, r,
					autherrors.RateLimited("too many login attempts", retryAfter), log)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
