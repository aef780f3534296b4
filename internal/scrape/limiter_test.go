package scrape

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestHostLimiter_Unlimited(t *testing.T) {
	l := NewHostLimiter(rate.Inf, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "https://example.com/a"))
	}
	assert.Empty(t, l.limiters)
}

func TestHostLimiter_PerHost(t *testing.T) {
	l := NewHostLimiter(rate.Every(time.Hour), 1)

	require.NoError(t, l.Wait(context.Background(), "https://a.example.com/1"))
	require.NoError(t, l.Wait(context.Background(), "https://b.example.com/1"))

	// Second request to the same host must wait an hour; the deadline cuts it short.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "https://A.example.com/2"))
	assert.Len(t, l.limiters, 2)
}
