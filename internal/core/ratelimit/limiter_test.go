package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AcquireWithinQuota(t *testing.T) {
	l := NewLimiter(map[string]Quota{
		"indeed": {Limit: 3, Window: time.Minute},
	})

	for i := 0; i < 3; i++ {
		d := l.Acquire("indeed", "search")
		require.True(t, d.Allowed)
		assert.Zero(t, d.RetryAfter)
	}

	// 4回目で拒否される
	d := l.Acquire("indeed", "search")
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)
}

func TestLimiter_WindowReopens(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(
		map[string]Quota{"indeed": {Limit: 1, Window: time.Minute}},
		WithClock(func() time.Time { return current }),
	)

	require.True(t, l.Acquire("indeed", "search").Allowed)
	require.False(t, l.Acquire("indeed", "search").Allowed)

	// ウィンドウが閉じた後は再び許可される
	current = current.Add(time.Minute)
	assert.True(t, l.Acquire("indeed", "search").Allowed)
}

func TestLimiter_RetryAfterBound(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(
		map[string]Quota{"indeed": {Limit: 1, Window: time.Minute}},
		WithClock(func() time.Time { return current }),
	)

	require.True(t, l.Acquire("indeed", "search").Allowed)

	// 30秒経過時点での拒否は残り30秒を伝える
	current = current.Add(30 * time.Second)
	d := l.Acquire("indeed", "search")
	require.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.RetryAfter)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := NewLimiter(map[string]Quota{
		"indeed":   {Limit: 1, Window: time.Minute},
		"linkedin": {Limit: 1, Window: time.Minute},
	})

	require.True(t, l.Acquire("indeed", "search").Allowed)
	require.False(t, l.Acquire("indeed", "search").Allowed)

	// 別プラットフォーム・別エンドポイントのカウンタは影響を受けない
	assert.True(t, l.Acquire("linkedin", "search").Allowed)
	assert.True(t, l.Acquire("indeed", "detail").Allowed)
}

func TestLimiter_DefaultQuotaForUnknownPlatform(t *testing.T) {
	l := NewLimiter(nil)

	for i := 0; i < DefaultLimit; i++ {
		require.True(t, l.Acquire("unknown", "search").Allowed)
	}
	assert.False(t, l.Acquire("unknown", "search").Allowed)
}

func TestLimiter_ConcurrentAcquireNeverExceedsQuota(t *testing.T) {
	const limit = 25
	const goroutines = 100

	l := NewLimiter(map[string]Quota{
		"indeed": {Limit: limit, Window: time.Minute},
	})

	var allowed atomic.Int64
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if l.Acquire("indeed", "search").Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	// 同時実行下でも許可数がクォータを超えない
	assert.Equal(t, int64(limit), allowed.Load())
}
