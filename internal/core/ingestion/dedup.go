package ingestion

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// dedupStripes はハッシュ／URLキーを振り分けるミューテックスのストライプ数
// グローバルロックを避けつつ、同一キーへの並行admitを直列化する
const dedupStripes = 64

// RejectReason は重複排除による却下理由を表す
type RejectReason string

const (
	// RejectDuplicateListing は同一 (platform, url) の再スクレイプ
	RejectDuplicateListing RejectReason = "duplicate_listing"
	// RejectDuplicateContent はURLが異なっても内容が同一のもの
	RejectDuplicateContent RejectReason = "duplicate_content"
)

// Admission は admit の結果を表す
// 却下時は ExistingID に既存 RawJob への参照が入る
type Admission struct {
	RawJob     *RawJob
	Rejected   bool
	Reason     RejectReason
	ExistingID uuid.UUID
}

// SeenCache は既知の content_hash を高速に判定するキャッシュ
// 判定はヒント扱いで、最終的な一意性はリポジトリ側の制約が保証する
type SeenCache interface {
	Seen(ctx context.Context, hash string) (bool, error)
	Mark(ctx context.Context, hash string) error
}

// DedupStore は content_hash と (platform, url) による重複排除を行う
type DedupStore struct {
	repo    Repository
	cache   SeenCache
	stripes [dedupStripes]sync.Mutex
	logger  *slog.Logger
	now     func() time.Time
}

type dedupOptions struct {
	cache  SeenCache
	logger *slog.Logger
	now    func() time.Time
}

// DedupOption は DedupStore のオプション設定
type DedupOption func(*dedupOptions)

// WithSeenCache は既知ハッシュキャッシュを設定する
func WithSeenCache(cache SeenCache) DedupOption {
	return func(o *dedupOptions) {
		o.cache = cache
	}
}

// WithDedupLogger は DedupStore にロガーを設定する
func WithDedupLogger(logger *slog.Logger) DedupOption {
	return func(o *dedupOptions) {
		o.logger = logger
	}
}

// WithDedupClock は現在時刻の取得方法を上書きする（テスト用）
func WithDedupClock(now func() time.Time) DedupOption {
	return func(o *dedupOptions) {
		o.now = now
	}
}

// NewDedupStore は新しい DedupStore を作成する
func NewDedupStore(repo Repository, opts ...DedupOption) *DedupStore {
	options := dedupOptions{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &DedupStore{
		repo:   repo,
		cache:  options.cache,
		logger: options.logger,
		now:    options.now,
	}
}

// Admit は投稿データを受理または却下する
// 同一ハッシュ／URLへの並行admitはプロセス内ではストライプロックで直列化され、
// プロセス間ではリポジトリの一意制約が敗者を ErrRawJobConflict として弾く。
// どちらの経路でも敗者は Rejected を受け取り、重複行もエラーも発生しない
func (d *DedupStore) Admit(ctx context.Context, sub JobSubmission) (*Admission, error) {
	if sub.Platform == "" || sub.URL == "" {
		return nil, fmt.Errorf("platform and url are required")
	}

	hash := ContentHash(sub.Payload)

	// ハッシュキーとURLキーの両ストライプをインデックス順に取得してデッドロックを防ぐ
	hi := stripeIndex(hash)
	ui := stripeIndex(sub.Platform + "\x00" + sub.URL)
	first, second := hi, ui
	if first > second {
		first, second = second, first
	}
	d.stripes[first].Lock()
	defer d.stripes[first].Unlock()
	if second != first {
		d.stripes[second].Lock()
		defer d.stripes[second].Unlock()
	}

	// URL一致（既知リスティングの再スクレイプ）を先に判定する
	if existing, err := d.repo.FindRawJobByURL(ctx, sub.Platform, sub.URL); err != nil {
		return nil, fmt.Errorf("failed to check listing duplicate: %w", err)
	} else if raw, ok := existing.Get(); ok {
		d.logger.Debug("重複リスティングを却下", "platform", sub.Platform, "url", sub.URL)
		return &Admission{Rejected: true, Reason: RejectDuplicateListing, ExistingID: raw.ID}, nil
	}

	// 既知ハッシュキャッシュはヒント。キャッシュ障害時は素通しする
	if d.cache != nil {
		if seen, err := d.cache.Seen(ctx, hash); err != nil {
			d.logger.Debug("seenキャッシュ参照に失敗", "error", err)
		} else if seen {
			d.logger.Debug("seenキャッシュがヒット", "hash", hash)
		}
	}

	if existing, err := d.repo.FindRawJobByContentHash(ctx, hash); err != nil {
		return nil, fmt.Errorf("failed to check content duplicate: %w", err)
	} else if raw, ok := existing.Get(); ok {
		d.logger.Debug("重複コンテンツを却下",
			"url", sub.URL,
			"existingURL", raw.URL,
		)
		return &Admission{Rejected: true, Reason: RejectDuplicateContent, ExistingID: raw.ID}, nil
	}

	raw := &RawJob{
		ID:          uuid.New(),
		Platform:    sub.Platform,
		URL:         sub.URL,
		Payload:     sub.Payload,
		ContentHash: hash,
		ScrapedAt:   sub.ScrapedAt,
		CreatedAt:   d.now().UTC(),
	}

	if err := d.repo.CreateRawJob(ctx, raw); err != nil {
		if errors.Is(err, ErrRawJobConflict) {
			// 別プロセスとの競合に敗れた場合。勝者のレコードを引き直して却下を返す
			return d.resolveConflict(ctx, sub, hash)
		}
		return nil, fmt.Errorf("failed to create raw job: %w", err)
	}

	if d.cache != nil {
		if err := d.cache.Mark(ctx, hash); err != nil {
			d.logger.Debug("seenキャッシュ登録に失敗", "error", err)
		}
	}

	return &Admission{RawJob: raw}, nil
}

// resolveConflict は一意制約違反後に既存レコードを特定して却下結果を組み立てる
func (d *DedupStore) resolveConflict(ctx context.Context, sub JobSubmission, hash string) (*Admission, error) {
	if existing, err := d.repo.FindRawJobByContentHash(ctx, hash); err == nil {
		if raw, ok := existing.Get(); ok {
			return &Admission{Rejected: true, Reason: RejectDuplicateContent, ExistingID: raw.ID}, nil
		}
	}
	if existing, err := d.repo.FindRawJobByURL(ctx, sub.Platform, sub.URL); err == nil {
		if raw, ok := existing.Get(); ok {
			return &Admission{Rejected: true, Reason: RejectDuplicateListing, ExistingID: raw.ID}, nil
		}
	}
	return nil, fmt.Errorf("raw job conflict detected but existing record not found: %s", sub.URL)
}

func stripeIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % dedupStripes)
}
