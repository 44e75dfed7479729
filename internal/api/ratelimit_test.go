// ABOUTME: Tests for the per-IP auth rate limiter.
// ABOUTME: Covers the limiter unit behavior and the 429 surfaced by the huma middleware.
package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/pantharshit007/pms/internal/testutil"
)

func TestIPRateLimiter_PerIPBuckets(t *testing.T) {
	t.Parallel()
	rl := newIPRateLimiter(rate.Limit(1), 2, time.Minute)

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("third immediate request should be limited")
	}
	// A different IP has its own bucket.
	if !rl.Allow("10.0.0.2") {
		t.Error("fresh IP should not be limited")
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()
	if got := clientIP("192.0.2.7:5431"); got != "192.0.2.7" {
		t.Errorf("clientIP with port: got %q", got)
	}
	if got := clientIP("192.0.2.7"); got != "192.0.2.7" {
		t.Errorf("clientIP without port: got %q", got)
	}
}

func TestAuthRateLimit_Returns429(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, ts := newTestServer(t, db)

	// The auth surface allows a burst of 10 per IP per minute. Unknown emails
	// make forgot-password a cheap no-op, so hammer that.
	var limited bool
	for i := 0; i < 12; i++ {
		resp := doJSON(t, ctx, ts, http.MethodPost, "/api/v1/auth/forgot-password", "",
			`{"email":"nobody@example.com"}`)
		if resp.StatusCode == http.StatusTooManyRequests {
			if resp.Header.Get("Retry-After") == "" {
				t.Error("429 without Retry-After header")
			}
			limited = true
			resp.Body.Close() //nolint:errcheck,gosec
			break
		}
		resp.Body.Close() //nolint:errcheck,gosec
	}
	if !limited {
		t.Error("12 rapid auth requests never hit the rate limit")
	}
}
