package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/domain/kanban"
)

// stubRepo counts List calls and serves a fixed lane
type stubRepo struct {
	mu        sync.Mutex
	tasks     []*entity.Task
	listCalls int
	failWrite error
}

func (s *stubRepo) Create(ctx context.Context, task *entity.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return s.failWrite
	}
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *stubRepo) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	return nil, nil
}

func (s *stubRepo) List(ctx context.Context, filter port.TaskFilter) ([]*entity.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	out := make([]*entity.Task, len(s.tasks))
	copy(out, s.tasks)
	return out, nil
}

func (s *stubRepo) UpdatePosition(ctx context.Context, id string, pos port.Position, expectedVersion int64) error {
	return s.failWrite
}

func (s *stubRepo) UpdateDetails(ctx context.Context, task *entity.Task, expectedVersion int64) error {
	return s.failWrite
}

func (s *stubRepo) SetOrders(ctx context.Context, assignments []kanban.Assignment) error {
	return s.failWrite
}

func (s *stubRepo) SetArchived(ctx context.Context, id string, archived bool) error {
	return s.failWrite
}

func (s *stubRepo) Delete(ctx context.Context, id string) error {
	return s.failWrite
}

func (s *stubRepo) CountActive(ctx context.Context, columnID string) (int, error) {
	return 0, nil
}

func (s *stubRepo) ReassignColumn(ctx context.Context, fromColumnID, toColumnID string) (int, error) {
	return 0, s.failWrite
}

func (s *stubRepo) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newCache(t *testing.T) (*TaskCache, *stubRepo, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &stubRepo{tasks: []*entity.Task{{ID: "t-1", Title: "a", Order: 0, Checklist: []entity.ChecklistItem{}}}}
	return NewTaskCache(repo, client, time.Minute, "test", zap.NewNop()), repo, mr
}

func TestTaskCache_ListMissThenHit(t *testing.T) {
	c, repo, _ := newCache(t)
	ctx := context.Background()
	filter := port.LaneFilter(entity.BoardLane("b-1", "c-1"))

	first, err := c.List(ctx, filter)
	require.NoError(t, err)
	second, err := c.List(ctx, filter)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.calls())
	assert.Equal(t, first, second)

	// a different lane is a different key
	_, err = c.List(ctx, port.LaneFilter(entity.BoardLane("b-1", "c-2")))
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls())
}

func TestTaskCache_WritesInvalidate(t *testing.T) {
	c, repo, mr := newCache(t)
	ctx := context.Background()
	filter := port.LaneFilter(entity.BoardLane("b-1", "c-1"))

	_, err := c.List(ctx, filter)
	require.NoError(t, err)

	require.NoError(t, c.Create(ctx, &entity.Task{ID: "t-2", Title: "b", Order: 1}))
	gen, err := mr.Get("test:tasks:gen")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	lane, err := c.List(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, lane, 2)
	assert.Equal(t, 2, repo.calls())

	require.NoError(t, c.SetOrders(ctx, []kanban.Assignment{{TaskID: "t-1", Order: 3}}))
	_, err = c.List(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.calls())
}

func TestTaskCache_FailedWriteKeepsCache(t *testing.T) {
	c, repo, _ := newCache(t)
	ctx := context.Background()
	filter := port.TaskFilter{ColumnID: "c-1"}

	_, err := c.List(ctx, filter)
	require.NoError(t, err)

	boom := errors.New("boom")
	repo.failWrite = boom
	assert.ErrorIs(t, c.UpdatePosition(ctx, "t-1", port.Position{}, 0), boom)

	_, err = c.List(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls())
}

func TestTaskCache_TransactionsInvalidateAfterCommit(t *testing.T) {
	c, _, mr := newCache(t)
	ctx := context.Background()
	tm := c.Transactions(passthroughTx{})

	require.NoError(t, tm.WithTransaction(ctx, func(ctx context.Context) error { return nil }))
	gen, err := mr.Get("test:tasks:gen")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	boom := errors.New("boom")
	assert.ErrorIs(t, tm.WithTransaction(ctx, func(ctx context.Context) error { return boom }), boom)
	gen, err = mr.Get("test:tasks:gen")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)
}

func TestTaskCache_RedisDownFallsThrough(t *testing.T) {
	c, repo, mr := newCache(t)
	mr.Close()

	lane, err := c.List(context.Background(), port.TaskFilter{ColumnID: "c-1"})
	require.NoError(t, err)
	assert.Len(t, lane, 1)
	assert.Equal(t, 1, repo.calls())

	require.NoError(t, c.Create(context.Background(), &entity.Task{ID: "t-9", Title: "x"}))
}

func TestTaskCache_Disabled(t *testing.T) {
	repo := &stubRepo{}
	c := NewTaskCache(repo, nil, time.Minute, "", zap.NewNop())

	_, err := c.List(context.Background(), port.TaskFilter{})
	require.NoError(t, err)
	_, err = c.List(context.Background(), port.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls())
}
