package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/domain/event"
	"github.com/garyjia/deptboard/internal/domain/kanban"
)

func TestBoardRouter_ResolveBoard_Unavailable(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		module  entity.ModuleTag
		company string
		setup   func(m *memStore)
	}{
		{name: "no company", module: entity.ModuleSales, company: ""},
		{name: "unmapped module", module: entity.ModuleTag("hr"), company: "co-1", setup: func(m *memStore) { m.addCompany("co-1", true) }},
		{name: "unknown company", module: entity.ModuleSales, company: "co-x"},
		{name: "inactive company", module: entity.ModuleSales, company: "co-1", setup: func(m *memStore) { m.addCompany("co-1", false) }},
		{name: "provisioning fails", module: entity.ModuleSales, company: "co-1", setup: func(m *memStore) {
			m.addCompany("co-1", true)
			m.failProvision = errors.New("constraint failed")
		}},
		{name: "board still missing after provisioning", module: entity.ModuleSales, company: "co-1", setup: func(m *memStore) {
			m.addCompany("co-1", true)
			m.provisionNoop = true
		}},
		{name: "board without columns", module: entity.ModuleSales, company: "co-1", setup: func(m *memStore) {
			m.addCompany("co-1", true)
			m.addBoard("co-1", entity.DepartmentSales)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setup != nil {
				tt.setup(f.store)
			}

			placement, err := f.router.ResolveBoard(ctx, tt.module, tt.company, "user-1")
			assert.Nil(t, placement)
			assert.ErrorIs(t, err, kanban.ErrRoutingUnavailable)
		})
	}
}

func TestBoardRouter_ResolveBoard_NoCompanySkipsStore(t *testing.T) {
	f := newFixture()
	_, err := f.router.ResolveBoard(context.Background(), entity.ModuleSales, "", "user-1")
	assert.ErrorIs(t, err, kanban.ErrRoutingUnavailable)
	assert.Zero(t, f.store.callCount())
}

func TestBoardRouter_ResolveBoard_ProvisionsOnFirstUse(t *testing.T) {
	f := newFixture()
	f.store.addCompany("co-1", true)

	placement, err := f.router.ResolveBoard(context.Background(), entity.ModuleSales, "co-1", "user-1")
	require.NoError(t, err)
	require.NotNil(t, placement)

	board := f.store.boards[placement.BoardID]
	assert.Equal(t, entity.DepartmentSales, board.Name)
	assert.Equal(t, "To Do", placement.ColumnName)
	assert.Equal(t, 0, f.store.columns[placement.ColumnID].Position)

	assert.Len(t, f.store.boards, len(entity.Departments))
	assert.Len(t, f.store.columns, len(entity.Departments)*len(entity.DefaultColumns))
	require.Len(t, f.store.perms, len(entity.Departments))
	for _, p := range f.store.perms {
		assert.Equal(t, "user-1", p.UserID)
		assert.Equal(t, entity.PermissionAdmin, p.Level)
	}

	events := f.publisher.ofType(event.TypeBoardsProvisioned)
	require.Len(t, events, 1)
	assert.Equal(t, len(entity.Departments), events[0].GetPayloadInt(event.KeyBoardCount))
}

func TestBoardRouter_ResolveBoard_ExistingBoard(t *testing.T) {
	f := newFixture()
	f.store.addCompany("co-1", true)
	board, cols := f.store.addBoard("co-1", entity.DepartmentLegal, "Intake", "Review")

	placement, err := f.router.ResolveBoard(context.Background(), entity.ModuleLegal, "co-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, board.ID, placement.BoardID)
	assert.Equal(t, cols[0].ID, placement.ColumnID)
	assert.Zero(t, f.store.provisionCalls)
	assert.Equal(t, entity.BoardLane(board.ID, cols[0].ID), placement.Lane())
}

func TestBoardRouter_ResolveBoard_LogsProvisioningFailure(t *testing.T) {
	f := newFixture()
	f.store.addCompany("co-1", true)
	f.store.failProvision = errors.New("boom")

	_, err := f.router.ResolveBoard(context.Background(), entity.ModuleSales, "co-1", "user-1")
	assert.ErrorIs(t, err, kanban.ErrRoutingUnavailable)
	assert.Equal(t, 1, f.store.provisionCalls, "provisioning is attempted once")
	assert.True(t, f.logger.hasError("Failed to provision departmental boards"))
}

func TestBoardRouter_EnsureDepartmentalBoards_Idempotent(t *testing.T) {
	f := newFixture()
	f.store.addCompany("co-1", true)
	ctx := context.Background()

	created, err := f.router.EnsureDepartmentalBoards(ctx, "co-1", "user-1")
	require.NoError(t, err)
	assert.Len(t, created, 6)

	created, err = f.router.EnsureDepartmentalBoards(ctx, "co-1", "user-1")
	require.NoError(t, err)
	assert.Empty(t, created)

	names := map[string]int{}
	for _, b := range f.store.boards {
		names[b.Name]++
	}
	for _, d := range entity.Departments {
		assert.Equal(t, 1, names[d], d)
	}
	assert.Len(t, f.publisher.ofType(event.TypeBoardsProvisioned), 1)
}

func TestBoardRouter_EnsureDepartmentalBoards_FillsGaps(t *testing.T) {
	f := newFixture()
	f.store.addCompany("co-1", true)
	f.store.addBoard("co-1", entity.DepartmentSales, "To Do")

	created, err := f.router.EnsureDepartmentalBoards(context.Background(), "co-1", "user-1")
	require.NoError(t, err)
	assert.Len(t, created, 5)
	for _, b := range created {
		assert.NotEqual(t, entity.DepartmentSales, b.Name)
	}
}

func TestBoardRouter_EnsureDepartmentalBoards_RejectsUnknownCompany(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.router.EnsureDepartmentalBoards(ctx, "", "user-1")
	assert.ErrorIs(t, err, kanban.ErrInvalidInput)

	_, err = f.router.EnsureDepartmentalBoards(ctx, "co-x", "user-1")
	assert.ErrorIs(t, err, kanban.ErrInvalidInput)
	assert.Zero(t, f.store.provisionCalls)
}

func TestBoardRouter_ListColumns(t *testing.T) {
	f := newFixture()
	board, _ := f.store.addBoard("co-1", "Custom", "B", "A")

	cols, err := f.router.ListColumns(context.Background(), board.ID)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "B", cols[0].Name)
	assert.Equal(t, 0, cols[0].Position)

	_, err = f.router.ListColumns(context.Background(), "missing")
	assert.ErrorIs(t, err, kanban.ErrBoardNotFound)
}

func TestBoardRouter_ListBoards(t *testing.T) {
	f := newFixture()
	f.store.addBoard("co-1", "A")
	f.store.addBoard("co-2", "B")

	boards, err := f.router.ListBoards(context.Background(), "co-1")
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, "A", boards[0].Name)

	all, err := f.router.ListBoards(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
