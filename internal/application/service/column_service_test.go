package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/domain/kanban"
)

func TestColumnService_CreateColumn(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()

	col, err := f.columns.CreateColumn(ctx, f.board.ID, " Blocked ")
	require.NoError(t, err)
	assert.Equal(t, "Blocked", col.Name)
	assert.Equal(t, 4, col.Position)

	_, err = f.columns.CreateColumn(ctx, "missing", "x")
	assert.ErrorIs(t, err, kanban.ErrBoardNotFound)

	_, err = f.columns.CreateColumn(ctx, f.board.ID, "")
	assert.ErrorIs(t, err, kanban.ErrInvalidInput)
}

func TestColumnService_RenameColumn(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()

	col, err := f.columns.RenameColumn(ctx, f.doing.ID, "Working")
	require.NoError(t, err)
	assert.Equal(t, "Working", col.Name)
	assert.Equal(t, "Working", f.store.columns[f.doing.ID].Name)

	_, err = f.columns.RenameColumn(ctx, "missing", "x")
	assert.ErrorIs(t, err, kanban.ErrColumnNotFound)
}

func TestColumnService_DeleteColumn_RejectsActiveTasks(t *testing.T) {
	f := newBoardFixture(t)
	f.store.seedLane(f.board.ID, f.doing.ID, "a")
	f.store.resetCalls()

	err := f.columns.DeleteColumn(context.Background(), f.doing.ID)
	assert.ErrorIs(t, err, kanban.ErrColumnNotEmpty)
	assert.Zero(t, f.store.writeCount())
	assert.Contains(t, f.store.columns, f.doing.ID)
}

func TestColumnService_DeleteColumn_MovesArchivedToEntryColumn(t *testing.T) {
	f := newBoardFixture(t)
	f.store.addTask(&entity.Task{ID: "old", BoardID: f.board.ID, ColumnID: f.doing.ID, Archived: true})

	require.NoError(t, f.columns.DeleteColumn(context.Background(), f.doing.ID))

	assert.NotContains(t, f.store.columns, f.doing.ID)
	old := f.store.task("old")
	assert.Equal(t, f.todo.ID, old.ColumnID)
	assert.Equal(t, f.board.ID, old.BoardID)
	assert.True(t, old.Archived)
}

func TestColumnService_DeleteColumn_LastColumnDetaches(t *testing.T) {
	f := newFixture()
	board, cols := f.store.addBoard("co-1", "Solo", "Only")
	f.store.addTask(&entity.Task{ID: "old", BoardID: board.ID, ColumnID: cols[0].ID, Archived: true})

	require.NoError(t, f.columns.DeleteColumn(context.Background(), cols[0].ID))

	old := f.store.task("old")
	assert.Empty(t, old.BoardID)
	assert.Empty(t, old.ColumnID)
}

func TestColumnService_DeleteColumn_Missing(t *testing.T) {
	f := newFixture()
	assert.ErrorIs(t, f.columns.DeleteColumn(context.Background(), "missing"), kanban.ErrColumnNotFound)
}
