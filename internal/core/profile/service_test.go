package profile

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRepository は単一アクティブ制約を模倣するテスト用リポジトリ
type stubRepository struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*UserProfile
}

var _ Repository = (*stubRepository)(nil)

func newStubRepository() *stubRepository {
	return &stubRepository{profiles: make(map[uuid.UUID]*UserProfile)}
}

func (r *stubRepository) GetByID(_ context.Context, id uuid.UUID) (mo.Option[*UserProfile], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[id]; ok {
		return mo.Some(p), nil
	}
	return mo.None[*UserProfile](), nil
}

func (r *stubRepository) GetActive(_ context.Context) (mo.Option[*UserProfile], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.IsActive {
			return mo.Some(p), nil
		}
	}
	return mo.None[*UserProfile](), nil
}

func (r *stubRepository) Create(_ context.Context, p *UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *p
	r.profiles[p.ID] = &stored
	return nil
}

func (r *stubRepository) Update(_ context.Context, p *UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *p
	r.profiles[p.ID] = &stored
	return nil
}

func (r *stubRepository) Activate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.profiles[id]
	if !ok {
		return ErrProfileNotFound
	}
	for _, p := range r.profiles {
		p.IsActive = false
	}
	target.IsActive = true
	return nil
}

func (r *stubRepository) activeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, p := range r.profiles {
		if p.IsActive {
			count++
		}
	}
	return count
}

func TestServiceCreateNormalizesSkills(t *testing.T) {
	svc := NewService(newStubRepository())

	created, err := svc.Create(context.Background(), &UserProfile{
		Name:   "Dev",
		Email:  "dev@example.com",
		Skills: []string{" go ", "go", "", "postgresql"},
	}, false)
	require.NoError(t, err)

	// 空要素と重複は落ち、タイトルケースに揃う
	assert.Equal(t, []string{"Go", "Postgresql"}, created.Skills)
	assert.Equal(t, "USD", created.TargetSalaryCurrency)
	assert.Equal(t, RemoteFlexible, created.RemotePref)
	assert.False(t, created.IsActive)
}

func TestServiceCreateValidatesYears(t *testing.T) {
	svc := NewService(newStubRepository())

	tooMany := 51
	_, err := svc.Create(context.Background(), &UserProfile{
		Name:              "Dev",
		YearsOfExperience: &tooMany,
	}, false)
	assert.Error(t, err)

	negative := -1
	_, err = svc.Create(context.Background(), &UserProfile{
		Name:              "Dev",
		YearsOfExperience: &negative,
	}, false)
	assert.Error(t, err)
}

func TestServiceCreateValidatesSalaryRange(t *testing.T) {
	svc := NewService(newStubRepository())

	low, high := 80000, 120000
	_, err := svc.Create(context.Background(), &UserProfile{
		Name:            "Dev",
		TargetSalaryMin: &high,
		TargetSalaryMax: &low,
	}, false)
	assert.Error(t, err)
}

func TestServiceActivateKeepsSingleActive(t *testing.T) {
	repo := newStubRepository()
	svc := NewService(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, &UserProfile{Name: "First"}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.activeCount())

	second, err := svc.Create(ctx, &UserProfile{Name: "Second"}, true)
	require.NoError(t, err)

	// アクティブなプロファイルは常に高々1件
	assert.Equal(t, 1, repo.activeCount())

	active, err := svc.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	assert.NotEqual(t, first.ID, active.ID)
}

func TestServiceGetActiveWithoutProfile(t *testing.T) {
	svc := NewService(newStubRepository())

	_, err := svc.GetActive(context.Background())
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestServiceUpdateSkills(t *testing.T) {
	repo := newStubRepository()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, &UserProfile{Name: "Dev", Skills: []string{"go"}}, false)
	require.NoError(t, err)

	updated, err := svc.UpdateSkills(ctx, created.ID, []string{"rust", "kubernetes"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Rust", "Kubernetes"}, updated.Skills)
}

func TestServiceUpdateSkillsUnknownProfile(t *testing.T) {
	svc := NewService(newStubRepository())

	_, err := svc.UpdateSkills(context.Background(), uuid.New(), []string{"go"})
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
