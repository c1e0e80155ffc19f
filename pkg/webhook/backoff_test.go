package webhook_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/cashier/pkg/webhook"
)

func TestExponentialBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		backoff webhook.ExponentialBackoff
		want    map[int]time.Duration
	}{
		{
			name:    "defaults",
			backoff: webhook.ExponentialBackoff{},
			want: map[int]time.Duration{
				1: time.Second,
				2: 2 * time.Second,
				3: 4 * time.Second,
				5: 16 * time.Second,
				6: 30 * time.Second,
			},
		},
		{
			name: "custom multiplier with cap",
			backoff: webhook.ExponentialBackoff{
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
				Multiplier:      3,
			},
			want: map[int]time.Duration{
				1: 500 * time.Millisecond,
				2: 1500 * time.Millisecond,
				3: 4500 * time.Millisecond,
				4: 5 * time.Second,
			},
		},
		{
			name:    "non-positive attempt",
			backoff: webhook.ExponentialBackoff{},
			want:    map[int]time.Duration{0: 0, -1: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for attempt, want := range tt.want {
				assert.Equal(t, want, tt.backoff.NextInterval(attempt), "attempt %d", attempt)
			}
		})
	}
}

func TestExponentialBackoffJitter(t *testing.T) {
	t.Parallel()

	b := webhook.ExponentialBackoff{InitialInterval: time.Second, JitterFactor: 0.2}
	for range 100 {
		got := b.NextInterval(1)
		assert.GreaterOrEqual(t, got, 800*time.Millisecond)
		assert.LessOrEqual(t, got, 1200*time.Millisecond)
	}
}

func TestFixedBackoff(t *testing.T) {
	t.Parallel()

	b := webhook.FixedBackoff{Interval: 250 * time.Millisecond}
	assert.Zero(t, b.NextInterval(0))
	assert.Equal(t, 250*time.Millisecond, b.NextInterval(1))
	assert.Equal(t, 250*time.Millisecond, b.NextInterval(10))
}

func TestDefaultBackoffStrategy(t *testing.T) {
	t.Parallel()

	b, ok := webhook.DefaultBackoffStrategy().(webhook.ExponentialBackoff)
	assert.True(t, ok)
	assert.Equal(t, time.Second, b.InitialInterval)
	assert.Equal(t, 30*time.Second, b.MaxInterval)
	assert.Equal(t, 0.1, b.JitterFactor)
}
