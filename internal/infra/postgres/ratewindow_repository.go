package postgres

import (
	"context"
	"fmt"

	"github.com/jinford/jobmatch/internal/core/ratelimit"
)

// RateWindowRepository は core/ratelimit.Store を実装する PostgreSQL リポジトリ。
// ウィンドウカウンタの記録は監査用で、レート判定そのものはメモリ上で行われる
type RateWindowRepository struct {
	db DBTX
}

// NewRateWindowRepository は新しい RateWindowRepository を返す。
func NewRateWindowRepository(db DBTX) *RateWindowRepository {
	return &RateWindowRepository{db: db}
}

var _ ratelimit.Store = (*RateWindowRepository)(nil)

func (r *RateWindowRepository) SaveWindow(ctx context.Context, w *ratelimit.Window) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO rate_windows (platform, endpoint, window_start, duration_ms, request_count, last_request_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (platform, endpoint, window_start) DO UPDATE SET
			request_count = EXCLUDED.request_count,
			last_request_at = EXCLUDED.last_request_at`,
		w.Platform, w.Endpoint, w.WindowStart, w.Duration.Milliseconds(), w.Count, w.LastRequestAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save rate window: %w", err)
	}
	return nil
}
