package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayForWalksTheLadder(t *testing.T) {
	r := NewOutboxRepository(nil, nil, 0, 0, 0)

	assert.Equal(t, 5*time.Second, r.delayFor(0))
	assert.Equal(t, 5*time.Second, r.delayFor(1))
	assert.Equal(t, 30*time.Second, r.delayFor(2))
	assert.Equal(t, 2*time.Minute, r.delayFor(3))
	assert.Equal(t, 10*time.Minute, r.delayFor(4))
	assert.Equal(t, time.Hour, r.delayFor(5))
	assert.Equal(t, time.Hour, r.delayFor(50), "attempts past the ladder reuse the last rung")
}

func TestNextRetryAtWalksLadderToTerminal(t *testing.T) {
	r := NewOutboxRepository(nil, nil, 0, 0, 0)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	first := r.nextRetryAt(1, 3, now)
	require.NotNil(t, first)
	assert.Equal(t, now.Add(5*time.Second), *first)

	second := r.nextRetryAt(2, 3, now)
	require.NotNil(t, second)
	assert.Equal(t, now.Add(30*time.Second), *second)

	assert.Nil(t, r.nextRetryAt(3, 3, now), "third failure exhausts attempts")
	assert.Nil(t, r.nextRetryAt(4, 3, now))
}

func TestNextRetryAtSingleAttemptIsImmediatelyTerminal(t *testing.T) {
	r := NewOutboxRepository(nil, nil, 0, 0, 0)
	assert.Nil(t, r.nextRetryAt(1, 1, time.Now().UTC()))
}

func TestNextRetryAtDelaysAreMonotonic(t *testing.T) {
	r := NewOutboxRepository(nil, nil, 10, 0, 0)
	now := time.Now().UTC()

	var prev time.Time
	for attempts := 1; attempts < 10; attempts++ {
		next := r.nextRetryAt(attempts, 10, now)
		require.NotNil(t, next)
		assert.False(t, next.Before(prev), "retry %d scheduled earlier than retry %d", attempts, attempts-1)
		prev = *next
	}
}

func TestNextRetryAtZeroMaxAttemptsUsesConfiguredDefault(t *testing.T) {
	r := NewOutboxRepository(nil, nil, 0, 0, 0)
	assert.NotNil(t, r.nextRetryAt(2, 0, time.Now().UTC()))
	assert.Nil(t, r.nextRetryAt(3, 0, time.Now().UTC()))
}

func TestClaimQueryReclaimsStaleProcessingRows(t *testing.T) {
	assert.Contains(t, claimQuery, "status = 'pending'")
	assert.Contains(t, claimQuery, "status = 'failed' AND next_retry_at IS NOT NULL AND next_retry_at <= NOW()")
	assert.Contains(t, claimQuery, "status = 'processing' AND claimed_at < NOW()",
		"rows stranded in processing by a dead dispatcher must become claimable again")
	assert.Contains(t, claimQuery, "claimed_at = NOW()", "a fresh claim must restamp the lock")
	assert.Contains(t, claimQuery, "FOR UPDATE SKIP LOCKED")
}

func TestNewOutboxRepositoryDefaults(t *testing.T) {
	r := NewOutboxRepository(nil, nil, 0, 0, 0)
	assert.Equal(t, defaultBackoffLadder, r.ladder)
	assert.Equal(t, defaultMaxAttempts, r.maxAttempts)
	assert.Equal(t, defaultLockTimeout, r.lockTimeout)
	assert.Equal(t, 7*24*time.Hour, r.retention)

	custom := NewOutboxRepository(nil, []time.Duration{time.Second}, 5, 30*time.Second, time.Hour)
	assert.Equal(t, []time.Duration{time.Second}, custom.ladder)
	assert.Equal(t, 5, custom.maxAttempts)
	assert.Equal(t, 30*time.Second, custom.lockTimeout)
	assert.Equal(t, time.Hour, custom.retention)
	assert.Equal(t, time.Second, custom.delayFor(9))
}
