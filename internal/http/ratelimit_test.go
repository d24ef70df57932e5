package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter() (*rateLimiter, *time.Time) {
	now := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter()
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiterMutationBudget(t *testing.T) {
	rl, _ := newTestLimiter()
	metrics := &securityMetrics{}

	for i := 0; i < classBudgets[classMutation]; i++ {
		assert.True(t, rl.allow("1.2.3.4", classMutation, metrics), "request %d within budget", i+1)
	}
	assert.False(t, rl.allow("1.2.3.4", classMutation, metrics))
	assert.Equal(t, int64(1), metrics.rateLimitHits)
}

func TestRateLimiterExportBudgetIsTighter(t *testing.T) {
	rl, _ := newTestLimiter()

	for i := 0; i < classBudgets[classExport]; i++ {
		assert.True(t, rl.allow("1.2.3.4", classExport, nil))
	}
	assert.False(t, rl.allow("1.2.3.4", classExport, nil))

	// Exhausting the export budget leaves the mutation budget intact,
	// and other clients are unaffected.
	assert.True(t, rl.allow("1.2.3.4", classMutation, nil))
	assert.True(t, rl.allow("5.6.7.8", classExport, nil))
}

func TestRateLimiterWindowResets(t *testing.T) {
	rl, now := newTestLimiter()

	for i := 0; i <= classBudgets[classExport]; i++ {
		rl.allow("1.2.3.4", classExport, nil)
	}
	assert.False(t, rl.allow("1.2.3.4", classExport, nil))

	*now = now.Add(time.Minute + time.Second)
	assert.True(t, rl.allow("1.2.3.4", classExport, nil), "new window after a minute")
}

func TestRateLimiterSweepsStaleWindows(t *testing.T) {
	rl, now := newTestLimiter()

	rl.allow("1.2.3.4", classMutation, nil)
	*now = now.Add(2 * time.Minute)
	rl.sweepLocked(*now)
	assert.Empty(t, rl.windows)
}

func TestThrottleClass(t *testing.T) {
	tests := []struct {
		method  string
		path    string
		class   requestClass
		limited bool
	}{
		{"GET", "/api/expenses", "", false},
		{"GET", "/api/cloud/history", "", false},
		{"POST", "/api/expenses", classMutation, true},
		{"PUT", "/api/expenses/abc", classMutation, true},
		{"DELETE", "/api/cloud/history", classMutation, true},
		{"POST", "/api/cloud/exports", classExport, true},
		{"POST", "/api/cloud/email", classExport, true},
		{"POST", "/api/cloud/shares", classExport, true},
		{"POST", "/api/cloud/schedules", classMutation, true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(tt.method, tt.path, nil)
		class, limited := throttleClass(r)
		assert.Equal(t, tt.limited, limited, "%s %s", tt.method, tt.path)
		assert.Equal(t, tt.class, class, "%s %s", tt.method, tt.path)
	}
}
