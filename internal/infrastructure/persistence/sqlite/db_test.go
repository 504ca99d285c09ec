package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openDB(t *testing.T) *DB {
	t.Helper()
	raw, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "tx.db")+"?_txlock=immediate")
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	_, err = raw.Exec(`CREATE TABLE items (name TEXT PRIMARY KEY)`)
	require.NoError(t, err)
	return NewDB(raw, zap.NewNop())
}

func count(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func TestWithTransaction_CommitsAndRollsBack(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	require.NoError(t, db.WithTransaction(ctx, func(txCtx context.Context) error {
		_, err := Executor(txCtx, db.DB).ExecContext(txCtx, `INSERT INTO items VALUES ('a')`)
		return err
	}))
	assert.Equal(t, 1, count(t, db))

	boom := errors.New("boom")
	err := db.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := Executor(txCtx, db.DB).ExecContext(txCtx, `INSERT INTO items VALUES ('b')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, count(t, db))
}

func TestWithTransaction_NestedCallsJoinOuter(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.WithTransaction(ctx, func(outer context.Context) error {
		outerTx := ExtractTx(outer)
		require.NotNil(t, outerTx)

		require.NoError(t, db.WithTransaction(outer, func(inner context.Context) error {
			assert.Same(t, outerTx, ExtractTx(inner))
			_, err := Executor(inner, db.DB).ExecContext(inner, `INSERT INTO items VALUES ('c')`)
			return err
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count(t, db))
}

func TestExecutor_FallsBackToDB(t *testing.T) {
	db := openDB(t)
	assert.Nil(t, ExtractTx(context.Background()))
	assert.Equal(t, DBTX(db.DB), Executor(context.Background(), db.DB))
}
