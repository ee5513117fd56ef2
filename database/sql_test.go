package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockConn(t *testing.T) (*SQLConn, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	return NewSQLConn(conn), mock
}

func TestSQLConn_ExecAndQuery(t *testing.T) {
	ctx := context.Background()
	conn, mock := newMockConn(t)

	const insert = "insert into t (a) values (?)"
	mock.ExpectPrepare(insert).
		ExpectExec().WithArgs(1).WillReturnResult(sqlmock.NewResult(10, 1))

	stmt, err := conn.PrepareContext(ctx, insert, PrepareOptions{Keys: GeneratedKeys{Mode: KeysAll}})
	require.NoError(t, err)

	res, err := stmt.ExecContext(ctx, 1)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	assert.Equal(t, int64(10), id)

	const query = "select a from t where a = ?"
	mock.ExpectPrepare(query).
		ExpectQuery().WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"a"}).AddRow(1).AddRow(2))

	stmt, err = conn.PrepareContext(ctx, query, PrepareOptions{})
	require.NoError(t, err)
	rows, err := stmt.QueryContext(ctx, 1)
	require.NoError(t, err)

	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, cols)

	var got []int
	for rows.Next() {
		var a int
		require.NoError(t, rows.Scan(&a))
		got = append(got, a)
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	assert.Equal(t, []int{1, 2}, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLConn_ExecBatchStopsAtFailure(t *testing.T) {
	ctx := context.Background()
	conn, mock := newMockConn(t)

	const update = "update t set a = ? where id = ?"
	prep := mock.ExpectPrepare(update)
	prep.ExpectExec().WithArgs(1, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(2, 2).WillReturnResult(sqlmock.NewResult(0, 3))
	prep.ExpectExec().WithArgs(3, 3).WillReturnError(errors.New("boom"))

	stmt, err := conn.PrepareContext(ctx, update, PrepareOptions{})
	require.NoError(t, err)

	batch, ok := stmt.(BatchStmt)
	require.True(t, ok)

	counts, err := batch.ExecBatch(ctx, [][]any{{1, 1}, {2, 2}, {3, 3}, {4, 4}})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []int64{1, 3}, counts)
}

func TestSQLConn_ExecBatchUnknownCount(t *testing.T) {
	ctx := context.Background()
	conn, mock := newMockConn(t)

	const update = "update t set a = ?"
	prep := mock.ExpectPrepare(update)
	prep.ExpectExec().WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 2))
	prep.ExpectExec().WithArgs(2).WillReturnResult(sqlmock.NewErrorResult(errors.New("no count")))

	stmt, err := conn.PrepareContext(ctx, update, PrepareOptions{})
	require.NoError(t, err)

	counts, err := stmt.(BatchStmt).ExecBatch(ctx, [][]any{{1}, {2}})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, RowsUnknown}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLConn_Transaction(t *testing.T) {
	ctx := context.Background()
	conn, mock := newMockConn(t)

	assert.ErrorIs(t, conn.Commit(ctx), ErrNoTx)
	assert.ErrorIs(t, conn.Rollback(ctx), ErrNoTx)

	mock.ExpectBegin()
	require.NoError(t, conn.BeginTx(ctx))
	assert.ErrorIs(t, conn.BeginTx(ctx), ErrTxInProgress)

	mock.ExpectCommit()
	require.NoError(t, conn.Commit(ctx))

	mock.ExpectBegin()
	mock.ExpectRollback()
	require.NoError(t, conn.BeginTx(ctx))
	require.NoError(t, conn.Rollback(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLConn_CloseRollsBack(t *testing.T) {
	ctx := context.Background()
	conn, mock := newMockConn(t)

	mock.ExpectBegin()
	mock.ExpectRollback()
	require.NoError(t, conn.BeginTx(ctx))
	require.NoError(t, conn.Close())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGeneratedKeys(t *testing.T) {
	assert.Equal(t, "", GeneratedKeys{Mode: KeysAll}.Canonical())
	assert.Equal(t, "1,3", GeneratedKeys{Mode: KeysIndexes, Indexes: []int{1, 3}}.Canonical())
	assert.Equal(t, "2:id,4:code", GeneratedKeys{Mode: KeysNames, Names: []string{"id", "code"}}.Canonical())
	assert.NotEqual(t,
		GeneratedKeys{Mode: KeysNames, Names: []string{"a,b"}}.Canonical(),
		GeneratedKeys{Mode: KeysNames, Names: []string{"a", "b"}}.Canonical())
	assert.Equal(t, "names", KeysNames.String())

	res := CountResult(4)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	_, err = res.LastInsertId()
	assert.ErrorIs(t, err, ErrNotSupported)
}
