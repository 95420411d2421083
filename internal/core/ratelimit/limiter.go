package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultWindow はクォータ未設定時のウィンドウ長
const DefaultWindow = time.Minute

// DefaultLimit はクォータ未設定時の1ウィンドウあたり許可リクエスト数
const DefaultLimit = 30

// Quota は1つのプラットフォームに対するリクエスト許容量
type Quota struct {
	Limit  int
	Window time.Duration
}

// Decision は acquire の結果を表す
// Denied の場合、RetryAfter は現在のウィンドウが閉じるまでの残り時間
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Window は (platform, endpoint, window_start) ごとのカウンタ状態
// Store 経由で永続化され、監査とプロセス再起動後の観測に使う
type Window struct {
	Platform      string
	Endpoint      string
	WindowStart   time.Time
	Duration      time.Duration
	Count         int
	LastRequestAt time.Time
}

// Store はウィンドウカウンタの永続化インターフェース
// 保存はベストエフォートで、失敗しても acquire の判定には影響しない
type Store interface {
	SaveWindow(ctx context.Context, w *Window) error
}

// entry は1キー分のウィンドウ状態。キーごとに独立したロックを持ち、
// 無関係なプラットフォーム同士が直列化されないようにする
type entry struct {
	mu     sync.Mutex
	window Window
}

// Limiter は (platform, endpoint) ごとのスライディングウィンドウでリクエスト量を制限する
// check-increment-compare はキー単位のロック内で単一の原子的操作として実行される
type Limiter struct {
	mu      sync.Mutex // entries マップ自体のガード
	entries map[string]*entry

	quotas       map[string]Quota
	defaultQuota Quota

	store  Store
	logger *slog.Logger
	now    func() time.Time
}

type limiterOptions struct {
	store        Store
	logger       *slog.Logger
	now          func() time.Time
	defaultQuota Quota
}

// LimiterOption は Limiter のオプション設定
type LimiterOption func(*limiterOptions)

// WithStore はウィンドウカウンタの永続化先を設定する
func WithStore(store Store) LimiterOption {
	return func(o *limiterOptions) {
		o.store = store
	}
}

// WithLimiterLogger は Limiter にロガーを設定する
func WithLimiterLogger(logger *slog.Logger) LimiterOption {
	return func(o *limiterOptions) {
		o.logger = logger
	}
}

// WithClock は現在時刻の取得方法を上書きする（テスト用）
func WithClock(now func() time.Time) LimiterOption {
	return func(o *limiterOptions) {
		o.now = now
	}
}

// WithDefaultQuota は未登録プラットフォームに適用するクォータを上書きする
func WithDefaultQuota(q Quota) LimiterOption {
	return func(o *limiterOptions) {
		o.defaultQuota = q
	}
}

// NewLimiter は新しい Limiter を作成する
// quotas はプラットフォーム名をキーとするクォータ表。未登録のプラットフォームには
// デフォルトクォータが適用される
func NewLimiter(quotas map[string]Quota, opts ...LimiterOption) *Limiter {
	options := limiterOptions{
		logger:       slog.Default(),
		now:          time.Now,
		defaultQuota: Quota{Limit: DefaultLimit, Window: DefaultWindow},
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.defaultQuota.Limit <= 0 {
		options.defaultQuota.Limit = DefaultLimit
	}
	if options.defaultQuota.Window <= 0 {
		options.defaultQuota.Window = DefaultWindow
	}

	normalized := make(map[string]Quota, len(quotas))
	for platform, q := range quotas {
		if q.Limit <= 0 {
			q.Limit = DefaultLimit
		}
		if q.Window <= 0 {
			q.Window = DefaultWindow
		}
		normalized[platform] = q
	}

	return &Limiter{
		entries:      make(map[string]*entry),
		quotas:       normalized,
		defaultQuota: options.defaultQuota,
		store:        options.store,
		logger:       options.logger,
		now:          options.now,
	}
}

// Acquire は (platform, endpoint) に対する1リクエスト分の枠を要求する
// 拒否された場合でもブロックせず、呼び出し側が従うべき RetryAfter を返す
func (l *Limiter) Acquire(platform, endpoint string) Decision {
	q := l.quota(platform)
	e := l.entry(platform, endpoint)

	e.mu.Lock()

	now := l.now()
	w := &e.window
	if w.WindowStart.IsZero() || now.Sub(w.WindowStart) >= q.Window {
		// 新しいウィンドウを開く
		w.WindowStart = now
		w.Duration = q.Window
		w.Count = 0
	}

	w.Count++
	decision := Decision{Allowed: w.Count <= q.Limit}
	if decision.Allowed {
		w.LastRequestAt = now
	} else {
		decision.RetryAfter = w.WindowStart.Add(q.Window).Sub(now)
	}
	snapshot := *w

	e.mu.Unlock()

	if l.store != nil {
		// 永続化はロック外でベストエフォートに行う
		if err := l.store.SaveWindow(context.Background(), &snapshot); err != nil {
			l.logger.Debug("レートウィンドウの保存に失敗", "platform", platform, "endpoint", endpoint, "error", err)
		}
	}

	if !decision.Allowed {
		l.logger.Debug("クォータ超過",
			"platform", platform,
			"endpoint", endpoint,
			"count", snapshot.Count,
			"limit", q.Limit,
			"retryAfter", decision.RetryAfter,
		)
	}

	return decision
}

func (l *Limiter) quota(platform string) Quota {
	if q, ok := l.quotas[platform]; ok {
		return q
	}
	return l.defaultQuota
}

func (l *Limiter) entry(platform, endpoint string) *entry {
	key := platform + "\x00" + endpoint

	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{window: Window{Platform: platform, Endpoint: endpoint}}
		l.entries[key] = e
	}
	return e
}
