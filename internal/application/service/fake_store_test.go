package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/domain/event"
	"github.com/garyjia/deptboard/internal/domain/kanban"
)

// memStore is an in-memory backing for every port the services use.
// Each port is a thin view over it so method names do not collide.
type memStore struct {
	mu sync.Mutex

	tasks      map[string]*entity.Task
	boards     map[string]*entity.Board
	columns    map[string]*entity.Column
	companies  map[string]*entity.Company
	perms      []*entity.BoardPermission
	activities []*entity.Activity

	calls  []string
	writes int

	failUpdatePosition error
	failSetOrders      error
	failProvision      error
	failActivity       error
	provisionNoop      bool
	provisionCalls     int
}

func newMemStore() *memStore {
	return &memStore{
		tasks:     map[string]*entity.Task{},
		boards:    map[string]*entity.Board{},
		columns:   map[string]*entity.Column{},
		companies: map[string]*entity.Company{},
	}
}

func (m *memStore) record(call string, write bool) {
	m.calls = append(m.calls, call)
	if write {
		m.writes++
	}
}

func (m *memStore) resetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.writes = 0
}

func (m *memStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func cloneTask(t *entity.Task) *entity.Task {
	cp := *t
	cp.Checklist = append([]entity.ChecklistItem(nil), t.Checklist...)
	cp.Comments = append([]entity.Comment(nil), t.Comments...)
	return &cp
}

func (m *memStore) addCompany(id string, active bool) {
	m.companies[id] = &entity.Company{ID: id, Name: "Company " + id, IsActive: active, CreatedAt: time.Now()}
}

func (m *memStore) addBoard(companyID, name string, columns ...string) (*entity.Board, []*entity.Column) {
	b := &entity.Board{ID: uuid.NewString(), Name: name, CompanyID: companyID, Department: name, IsActive: true, CreatedAt: time.Now()}
	m.boards[b.ID] = b
	var cols []*entity.Column
	for i, n := range columns {
		c := &entity.Column{ID: uuid.NewString(), BoardID: b.ID, Name: n, Position: i, CreatedAt: time.Now()}
		m.columns[c.ID] = c
		cols = append(cols, c)
	}
	return b, cols
}

var seedClock = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

// addTask stores a task. Creation times increase with every call and a
// task on a board takes the board's company unless one is given.
func (m *memStore) addTask(t *entity.Task) *entity.Task {
	seedClock = seedClock.Add(time.Second)
	if b, ok := m.boards[t.BoardID]; ok && t.CompanyID == "" {
		t.CompanyID = b.CompanyID
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = seedClock
	}
	if t.Status == "" {
		t.Status = entity.StatusTodo
	}
	if t.Title == "" {
		t.Title = "task " + t.ID
	}
	if t.Version == 0 {
		t.Version = 1
	}
	m.tasks[t.ID] = cloneTask(t)
	return t
}

// seedLane stores tasks with orders 0..n-1 in a board column
func (m *memStore) seedLane(boardID, columnID string, ids ...string) {
	for i, id := range ids {
		m.addTask(&entity.Task{ID: id, BoardID: boardID, ColumnID: columnID, Order: i, ModuleTag: entity.ModuleGeneral})
	}
}

func (m *memStore) laneIDs(lane entity.Lane) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, t := range m.filter(port.LaneFilter(lane)) {
		ids = append(ids, t.ID)
	}
	return ids
}

func (m *memStore) laneOrders(lane entity.Lane) map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for _, t := range m.filter(port.LaneFilter(lane)) {
		out[t.ID] = t.Order
	}
	return out
}

func (m *memStore) task(id string) *entity.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		return cloneTask(t)
	}
	return nil
}

func (m *memStore) filter(f port.TaskFilter) []*entity.Task {
	var out []*entity.Task
	for _, t := range m.tasks {
		if f.BoardID != "" && t.BoardID != f.BoardID {
			continue
		}
		if f.ColumnID != "" && t.ColumnID != f.ColumnID {
			continue
		}
		if (f.CompanyID != "" || f.CompanyScoped) && t.CompanyID != f.CompanyID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.ModuleTag != "" && t.ModuleTag != f.ModuleTag {
			continue
		}
		if f.Unboarded && t.BoardID != "" {
			continue
		}
		if !f.IncludeArchived && t.Archived {
			continue
		}
		out = append(out, cloneTask(t))
	}
	kanban.SortLane(out)
	return out
}

// snapshot and restore give the fake transaction manager rollback
func (m *memStore) snapshot() map[string]*entity.Task {
	cp := make(map[string]*entity.Task, len(m.tasks))
	for k, v := range m.tasks {
		cp[k] = cloneTask(v)
	}
	return cp
}

// fakeTxManager runs fn and restores the task table when it fails
type fakeTxManager struct{ m *memStore }

func (f fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.m.mu.Lock()
	saved := f.m.snapshot()
	f.m.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.m.mu.Lock()
		f.m.tasks = saved
		f.m.mu.Unlock()
		return err
	}
	return nil
}

type taskStore struct{ m *memStore }

var _ port.TaskRepository = taskStore{}

func (s taskStore) Create(ctx context.Context, task *entity.Task) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("task.Create", true)
	if _, ok := s.m.tasks[task.ID]; ok {
		return fmt.Errorf("duplicate task %s", task.ID)
	}
	task.Version = 1
	s.m.tasks[task.ID] = cloneTask(task)
	return nil
}

func (s taskStore) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("task.GetByID", false)
	if t, ok := s.m.tasks[id]; ok {
		return cloneTask(t), nil
	}
	return nil, nil
}

func (s taskStore) List(ctx context.Context, filter port.TaskFilter) ([]*entity.Task, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("task.List", false)
	return s.m.filter(filter), nil
}

func (s taskStore) UpdatePosition(ctx context.Context, id string, pos port.Position, expectedVersion int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("task.UpdatePosition", true)
	if s.m.failUpdatePosition != nil {
		return s.m.failUpdatePosition
	}
	t, ok := s.m.tasks[id]
	if !ok {
		return kanban.ErrTaskNotFound
	}
	if expectedVersion > 0 && t.Version != expectedVersion {
		return kanban.ErrStaleWrite
	}
	t.BoardID, t.ColumnID, t.Status, t.Order = pos.BoardID, pos.ColumnID, pos.Status, pos.Order
	t.Version++
	return nil
}

func (s taskStore) UpdateDetails(ctx context.Context, task *entity.Task, expectedVersion int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("task.UpdateDetails", true)
	t, ok := s.m.tasks[task.ID]
	if !ok {
		return kanban.ErrTaskNotFound
	}
	if expectedVersion > 0 && t.Version != expectedVersion {
		return kanban.ErrStaleWrite
	}
	t.Title, t.Description, t.AssigneeID, t.DueDate, t.Priority = task.Title, task.Description, task.AssigneeID, task.DueDate, task.Priority
	t.Checklist = append([]entity.ChecklistItem(nil), task.Checklist...)
	t.Comments = append([]entity.Comment(nil), task.Comments...)
	t.Version++
	return nil
}

func (s taskStore) SetOrders(ctx context.Context, assignments []kanban.Assignment) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("task.SetOrders", true)
	if s.m.failSetOrders != nil {
		return s.m.failSetOrders
	}
	for _, a := range assignments {
		if t, ok := s.m.tasks[a.TaskID]; ok {
			t.Order = a.Order
			t.Version++
		}
	}
	return nil
}

func (s taskStore) SetArchived(ctx context.Context, id string, archived bool) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("task.SetArchived", true)
	t, ok := s.m.tasks[id]
	if !ok {
		return kanban.ErrTaskNotFound
	}
	t.Archived = archived
	t.Version++
	return nil
}

func (s taskStore) Delete(ctx context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("task.Delete", true)
	delete(s.m.tasks, id)
	return nil
}

func (s taskStore) CountActive(ctx context.Context, columnID string) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("task.CountActive", false)
	n := 0
	for _, t := range s.m.tasks {
		if t.ColumnID == columnID && !t.Archived {
			n++
		}
	}
	return n, nil
}

func (s taskStore) ReassignColumn(ctx context.Context, fromColumnID, toColumnID string) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("task.ReassignColumn", true)
	n := 0
	for _, t := range s.m.tasks {
		if t.ColumnID != fromColumnID {
			continue
		}
		t.ColumnID = toColumnID
		if toColumnID == "" {
			t.BoardID = ""
		}
		n++
	}
	return n, nil
}

type boardStore struct{ m *memStore }

var _ port.BoardRepository = boardStore{}

func (s boardStore) Create(ctx context.Context, board *entity.Board) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("board.Create", true)
	cp := *board
	s.m.boards[board.ID] = &cp
	return nil
}

func (s boardStore) GetByID(ctx context.Context, id string) (*entity.Board, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("board.GetByID", false)
	if b, ok := s.m.boards[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (s boardStore) GetByName(ctx context.Context, companyID, name string) (*entity.Board, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("board.GetByName", false)
	return s.m.boardByName(companyID, name), nil
}

func (m *memStore) boardByName(companyID, name string) *entity.Board {
	for _, b := range m.boards {
		if b.CompanyID == companyID && b.Name == name && b.IsActive {
			cp := *b
			return &cp
		}
	}
	return nil
}

func (s boardStore) List(ctx context.Context, companyID string) ([]*entity.Board, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("board.List", false)
	var out []*entity.Board
	for _, b := range s.m.boards {
		if companyID == "" || b.CompanyID == companyID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type columnStore struct{ m *memStore }

var _ port.ColumnRepository = columnStore{}

func (s columnStore) Create(ctx context.Context, column *entity.Column) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("column.Create", true)
	cp := *column
	s.m.columns[column.ID] = &cp
	return nil
}

func (s columnStore) GetByID(ctx context.Context, id string) (*entity.Column, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("column.GetByID", false)
	if c, ok := s.m.columns[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (s columnStore) ListByBoard(ctx context.Context, boardID string) ([]*entity.Column, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("column.ListByBoard", false)
	return s.m.boardColumns(boardID), nil
}

func (m *memStore) boardColumns(boardID string) []*entity.Column {
	var out []*entity.Column
	for _, c := range m.columns {
		if c.BoardID == boardID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (s columnStore) Rename(ctx context.Context, id, name string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("column.Rename", true)
	if c, ok := s.m.columns[id]; ok {
		c.Name = name
	}
	return nil
}

func (s columnStore) Delete(ctx context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("column.Delete", true)
	delete(s.m.columns, id)
	return nil
}

func (s columnStore) MaxPosition(ctx context.Context, boardID string) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("column.MaxPosition", false)
	max := -1
	for _, c := range s.m.columns {
		if c.BoardID == boardID && c.Position > max {
			max = c.Position
		}
	}
	return max, nil
}

type companyStore struct{ m *memStore }

var _ port.CompanyRepository = companyStore{}

func (s companyStore) Create(ctx context.Context, company *entity.Company) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("company.Create", true)
	cp := *company
	s.m.companies[company.ID] = &cp
	return nil
}

func (s companyStore) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("company.GetByID", false)
	if c, ok := s.m.companies[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (s companyStore) List(ctx context.Context) ([]*entity.Company, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []*entity.Company
	for _, c := range s.m.companies {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// provisionerStore mirrors the SQL provisioner: every missing canonical board
// is created with its default columns and an admin grant.
type provisionerStore struct{ m *memStore }

var _ port.BoardProvisioner = provisionerStore{}

func (s provisionerStore) EnsureDepartmentalBoards(ctx context.Context, companyID, actingUserID string) ([]*entity.Board, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record("provisioner.Ensure", true)
	s.m.provisionCalls++
	if s.m.failProvision != nil {
		return nil, s.m.failProvision
	}
	if s.m.provisionNoop {
		return nil, nil
	}

	var created []*entity.Board
	for _, name := range entity.Departments {
		if s.m.boardByName(companyID, name) != nil {
			continue
		}
		b := &entity.Board{
			ID:         uuid.NewString(),
			Name:       name,
			CompanyID:  companyID,
			Department: name,
			IsActive:   true,
			CreatedBy:  actingUserID,
			CreatedAt:  time.Now(),
		}
		s.m.boards[b.ID] = b
		for i, dc := range entity.DefaultColumns {
			c := &entity.Column{ID: uuid.NewString(), BoardID: b.ID, Name: dc.Name, Position: i, CreatedAt: time.Now()}
			s.m.columns[c.ID] = c
		}
		s.m.perms = append(s.m.perms, &entity.BoardPermission{BoardID: b.ID, UserID: actingUserID, Level: entity.PermissionAdmin})
		cp := *b
		created = append(created, &cp)
	}
	return created, nil
}

type activityStore struct{ m *memStore }

var _ port.ActivityRepository = activityStore{}

func (s activityStore) Create(ctx context.Context, a *entity.Activity) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.failActivity != nil {
		return s.m.failActivity
	}
	cp := *a
	cp.ID = int64(len(s.m.activities) + 1)
	s.m.activities = append(s.m.activities, &cp)
	return nil
}

func (s activityStore) ListByTask(ctx context.Context, taskID string) ([]*entity.Activity, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []*entity.Activity
	for _, a := range s.m.activities {
		if a.TaskID == taskID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// recordingPublisher keeps every dispatched event
type recordingPublisher struct {
	mu     sync.Mutex
	events []*event.Event
	err    error
}

func (p *recordingPublisher) Dispatch(ctx context.Context, evt *event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) ofType(t event.Type) []*event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*event.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// testLogger keeps messages for assertions
type testLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *testLogger) Info(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *testLogger) Error(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *testLogger) hasError(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.errors {
		if e == msg {
			return true
		}
	}
	return false
}

// fixture wires every service over one memStore
type fixture struct {
	store     *memStore
	publisher *recordingPublisher
	logger    *testLogger

	router    BoardRouter
	sequencer ColumnSequencer
	tasks     TaskService
	columns   ColumnService
}

const testDropOffset = 50

func newFixture() *fixture {
	m := newMemStore()
	pub := &recordingPublisher{}
	logger := &testLogger{}
	tx := fakeTxManager{m: m}

	router := NewBoardRouter(companyStore{m}, boardStore{m}, columnStore{m}, provisionerStore{m}, pub, logger)
	seq := NewColumnSequencer(taskStore{m}, columnStore{m}, boardStore{m}, tx, pub, SequencerConfig{DropOffset: testDropOffset}, logger)

	return &fixture{
		store:     m,
		publisher: pub,
		logger:    logger,
		router:    router,
		sequencer: seq,
		tasks:     NewTaskService(taskStore{m}, router, seq, tx, pub, logger),
		columns:   NewColumnService(boardStore{m}, columnStore{m}, taskStore{m}, tx, logger),
	}
}

// indicatorsFor lays out one indicator per task, 100px apart, plus the sentinel
func indicatorsFor(ids ...string) []kanban.Indicator {
	out := make([]kanban.Indicator, 0, len(ids)+1)
	for i, id := range ids {
		out = append(out, kanban.Indicator{TaskID: id, Position: float64(i * 100)})
	}
	return append(out, kanban.Indicator{Position: float64(len(ids) * 100)})
}

// pointerAbove returns a pointer y that resolves to the indicator at index i
func pointerAbove(i int) float64 {
	return float64(i*100) + testDropOffset - 10
}

// pointerBelowAll returns a pointer y past every threshold of n tasks
func pointerBelowAll(n int) float64 {
	return float64(n*100) + testDropOffset + 10
}
