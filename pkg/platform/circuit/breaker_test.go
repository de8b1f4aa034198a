package circuit_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditlens/internal/provider"
	"creditlens/pkg/platform/circuit"
)

func bureauErr(category provider.ErrorCategory) error {
	return provider.NewProviderError(category, "crif", "call failed", nil)
}

// feed records each call result the way the CRIF client does.
func feed(b *circuit.Breaker, results ...error) circuit.StateChange {
	var last circuit.StateChange
	for _, err := range results {
		last = b.Record(provider.BreakerOutcome(err))
	}
	return last
}

func TestBreaker_StartsClosed(t *testing.T) {
	b := circuit.New("crif")
	assert.Equal(t, "crif", b.Name())
	assert.Equal(t, circuit.StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_OpensOnConsecutiveOutages(t *testing.T) {
	tests := []struct {
		name    string
		results []error
		open    bool
	}{
		{"timeouts", []error{bureauErr(provider.ErrorTimeout), bureauErr(provider.ErrorTimeout), bureauErr(provider.ErrorTimeout)}, true},
		{"mixed timeout and outage", []error{bureauErr(provider.ErrorProviderOutage), bureauErr(provider.ErrorTimeout), bureauErr(provider.ErrorProviderOutage)}, true},
		{"a good answer in between", []error{bureauErr(provider.ErrorTimeout), bureauErr(provider.ErrorTimeout), nil, bureauErr(provider.ErrorTimeout)}, false},
		{"a client error in between", []error{bureauErr(provider.ErrorTimeout), bureauErr(provider.ErrorTimeout), bureauErr(provider.ErrorNotFound), bureauErr(provider.ErrorTimeout)}, false},
		{"bureau rejecting requests", []error{bureauErr(provider.ErrorAuthentication), bureauErr(provider.ErrorBadData), bureauErr(provider.ErrorInvalidRequest), bureauErr(provider.ErrorRateLimited)}, false},
		{"cancelled callers are not counted", []error{bureauErr(provider.ErrorTimeout), bureauErr(provider.ErrorInternal), bureauErr(provider.ErrorTimeout), bureauErr(provider.ErrorInternal), bureauErr(provider.ErrorTimeout)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := circuit.New("crif", circuit.WithFailureThreshold(3))
			feed(b, tt.results...)
			assert.Equal(t, tt.open, b.IsOpen())
		})
	}
}

func TestBreaker_ReportsTransitionsOnce(t *testing.T) {
	b := circuit.New("crif", circuit.WithFailureThreshold(2))

	assert.False(t, feed(b, bureauErr(provider.ErrorProviderOutage)).Opened)
	assert.True(t, feed(b, bureauErr(provider.ErrorProviderOutage)).Opened)
	assert.Equal(t, circuit.StateChange{}, feed(b, bureauErr(provider.ErrorProviderOutage)), "already open")

	assert.True(t, feed(b, nil).Closed)
	assert.Equal(t, circuit.StateChange{}, feed(b, nil), "already closed")
}

func TestBreaker_SuccessThreshold(t *testing.T) {
	b := circuit.New("crif", circuit.WithFailureThreshold(1), circuit.WithSuccessThreshold(2))
	feed(b, bureauErr(provider.ErrorTimeout))
	require.True(t, b.IsOpen())

	assert.False(t, feed(b, nil).Closed)
	assert.True(t, b.IsOpen())
	assert.True(t, feed(b, bureauErr(provider.ErrorNotFound)).Closed, "a not-found answer proves the bureau is up")
}

func TestBreaker_IgnoredOutcomeKeepsRecoveryProgress(t *testing.T) {
	b := circuit.New("crif", circuit.WithFailureThreshold(1), circuit.WithSuccessThreshold(2))
	feed(b, bureauErr(provider.ErrorTimeout), nil)

	assert.Equal(t, circuit.StateChange{}, b.Record(provider.BreakerOutcome(context.Canceled)))
	assert.True(t, feed(b, nil).Closed)
}

func TestBreaker_CooldownTrialCall(t *testing.T) {
	now := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	b := circuit.New("crif",
		circuit.WithFailureThreshold(1),
		circuit.WithCooldown(30*time.Second),
		circuit.WithClock(clock),
	)

	feed(b, bureauErr(provider.ErrorProviderOutage))
	assert.False(t, b.Allow())

	now = now.Add(30 * time.Second)
	assert.True(t, b.Allow(), "trial call admitted after cooldown")

	feed(b, bureauErr(provider.ErrorTimeout))
	assert.False(t, b.Allow(), "failed trial call restarts the cooldown")

	now = now.Add(30 * time.Second)
	require.True(t, b.Allow())
	assert.True(t, feed(b, nil).Closed)
	assert.True(t, b.Allow())
}

func TestBreaker_NoCooldownStaysShut(t *testing.T) {
	b := circuit.New("crif", circuit.WithFailureThreshold(1))
	feed(b, bureauErr(provider.ErrorTimeout))
	assert.False(t, b.Allow())
}

func TestBreaker_Reset(t *testing.T) {
	b := circuit.New("crif", circuit.WithFailureThreshold(2))
	feed(b, bureauErr(provider.ErrorTimeout), bureauErr(provider.ErrorTimeout))
	require.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.False(t, feed(b, bureauErr(provider.ErrorTimeout)).Opened, "counters start over")
}

func TestBreakerOutcome_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   circuit.Outcome
	}{
		{http.StatusServiceUnavailable, circuit.OutcomeFailure},
		{http.StatusGatewayTimeout, circuit.OutcomeFailure},
		{http.StatusTooManyRequests, circuit.OutcomeSuccess},
		{http.StatusUnauthorized, circuit.OutcomeSuccess},
		{http.StatusNotFound, circuit.OutcomeSuccess},
	}
	for _, tt := range tests {
		err := bureauErr(provider.CategoryForStatus(tt.status))
		assert.Equal(t, tt.want, provider.BreakerOutcome(err), "status %d", tt.status)
	}
	assert.Equal(t, circuit.OutcomeIgnored, provider.BreakerOutcome(errors.New("not a bureau error")))
}
