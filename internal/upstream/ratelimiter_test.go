package upstream

import (
	"context"
	"testing"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket_AllowsImmediateWithinCapacity(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(time.Now())
	bucket := NewTokenBucket(clock, 60)

	for i := 0; i < 60; i++ {
		err := bucket.Wait(context.Background())
		require.NoError(t, err)
	}
}

func TestTokenBucket_RefillsOverTime(t *testing.T) {
	t.Parallel()

	start := time.Now()
	clock := timeutil.NewMockClock(start)
	bucket := NewTokenBucket(clock, 60) // 1 token/sec

	for i := 0; i < 60; i++ {
		require.NoError(t, bucket.Wait(context.Background()))
	}

	// bucket now empty; advance 1 second, should allow one more.
	clock.Advance(time.Second)
	require.NoError(t, bucket.Wait(context.Background()))
}

func TestTokenBucket_WaitRespectsCancellation(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(time.Now())
	bucket := NewTokenBucket(clock, 1)
	require.NoError(t, bucket.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bucket.Wait(ctx)
	assert.Error(t, err)
}
