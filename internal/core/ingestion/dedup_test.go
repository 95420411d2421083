package ingestion

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submission(url, title string) JobSubmission {
	return JobSubmission{
		Platform: "indeed",
		URL:      url,
		Payload: map[string]any{
			"title":       title,
			"company":     "Acme",
			"location":    "Berlin",
			"description": "Build backend services in Go",
		},
		ScrapedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDedupStore_AdmitNewSubmission(t *testing.T) {
	repo := newStubRepository()
	store := NewDedupStore(repo)

	adm, err := store.Admit(context.Background(), submission("https://example.com/jobs/1", "Backend Engineer"))
	require.NoError(t, err)

	assert.False(t, adm.Rejected)
	require.NotNil(t, adm.RawJob)
	assert.Equal(t, "indeed", adm.RawJob.Platform)
	assert.NotEmpty(t, adm.RawJob.ContentHash)
	assert.Equal(t, 1, repo.rawJobCount())
}

func TestDedupStore_RejectsSameURL(t *testing.T) {
	repo := newStubRepository()
	store := NewDedupStore(repo)
	ctx := context.Background()

	first, err := store.Admit(ctx, submission("https://example.com/jobs/1", "Backend Engineer"))
	require.NoError(t, err)

	// 同一URLの再スクレイプは内容が変わっていても duplicate_listing
	second, err := store.Admit(ctx, submission("https://example.com/jobs/1", "Backend Engineer (updated)"))
	require.NoError(t, err)

	assert.True(t, second.Rejected)
	assert.Equal(t, RejectDuplicateListing, second.Reason)
	assert.Equal(t, first.RawJob.ID, second.ExistingID)
	assert.Equal(t, 1, repo.rawJobCount())
}

func TestDedupStore_RejectsSameContentDifferentURL(t *testing.T) {
	repo := newStubRepository()
	store := NewDedupStore(repo)
	ctx := context.Background()

	first, err := store.Admit(ctx, submission("https://example.com/jobs/1", "Backend Engineer"))
	require.NoError(t, err)

	second, err := store.Admit(ctx, submission("https://example.com/jobs/2", "Backend Engineer"))
	require.NoError(t, err)

	assert.True(t, second.Rejected)
	assert.Equal(t, RejectDuplicateContent, second.Reason)
	assert.Equal(t, first.RawJob.ID, second.ExistingID)
	assert.Equal(t, 1, repo.rawJobCount())
}

func TestDedupStore_URLCheckPrecedesContentCheck(t *testing.T) {
	repo := newStubRepository()
	store := NewDedupStore(repo)
	ctx := context.Background()

	_, err := store.Admit(ctx, submission("https://example.com/jobs/1", "Backend Engineer"))
	require.NoError(t, err)

	// URLも内容も一致する場合は duplicate_listing が優先される
	adm, err := store.Admit(ctx, submission("https://example.com/jobs/1", "Backend Engineer"))
	require.NoError(t, err)
	assert.Equal(t, RejectDuplicateListing, adm.Reason)
}

func TestDedupStore_RequiresPlatformAndURL(t *testing.T) {
	store := NewDedupStore(newStubRepository())

	_, err := store.Admit(context.Background(), JobSubmission{URL: "https://example.com"})
	assert.Error(t, err)

	_, err = store.Admit(context.Background(), JobSubmission{Platform: "indeed"})
	assert.Error(t, err)
}

func TestDedupStore_ConcurrentAdmitsAdmitExactlyOne(t *testing.T) {
	const goroutines = 50

	repo := newStubRepository()
	store := NewDedupStore(repo)
	ctx := context.Background()

	var admitted atomic.Int64
	var rejected atomic.Int64
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			// URLは全員異なるが内容は同一
			sub := submission(fmt.Sprintf("https://example.com/jobs/%d", i), "Backend Engineer")
			adm, err := store.Admit(ctx, sub)
			if !assert.NoError(t, err) {
				return
			}
			if adm.Rejected {
				rejected.Add(1)
			} else {
				admitted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	// 同一内容の並行admitはちょうど1件だけ受理される
	assert.Equal(t, int64(1), admitted.Load())
	assert.Equal(t, int64(goroutines-1), rejected.Load())
	assert.Equal(t, 1, repo.rawJobCount())
}
