package sql_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/dialect"
	dsql "github.com/syssam/graphdl/dialect/sql"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// newMock returns a driver over sqlmock that checks every expectation was
// met when the test ends.
func newMock(t *testing.T, name string) (*dsql.Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return dsql.OpenDB(name, db), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestMockGetQueryError(t *testing.T) {
	t.Parallel()
	drv, mock := newMock(t, dialect.SQLite)
	errConn := errors.New("connection reset")
	mock.ExpectQuery(q("SELECT type, id, data FROM graphdl_entities WHERE type = ? AND id = ?")).
		WithArgs("Post", "p1").
		WillReturnError(errConn)

	_, err := dsql.NewProvider(drv).Get(context.Background(), "Post", "p1")
	assert.True(t, graphdl.IsQueryError(err))
	assert.ErrorIs(t, err, errConn)
	assert.False(t, graphdl.IsNotFound(err))
}

func TestMockPostgresPlaceholders(t *testing.T) {
	t.Parallel()
	drv, mock := newMock(t, dialect.Postgres)
	data, err := msgpack.Marshal(map[string]any{"name": "Ann"})
	require.NoError(t, err)
	mock.ExpectQuery(q("SELECT type, id, data FROM graphdl_entities WHERE type = $1 AND id IN ($2, $3)")).
		WithArgs("Author", "a1", "a2").
		WillReturnRows(sqlmock.NewRows([]string{"type", "id", "data"}).AddRow("Author", "a1", data))
	mock.ExpectExec(q("INSERT INTO graphdl_edges (from_type, from_id, field, to_type, to_id, meta) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := dsql.NewProvider(drv)
	recs, err := p.GetMany(context.Background(), "Author", []string{"a1", "a2"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Ann", recs[0]["name"])
	assert.Equal(t, "a1", recs[0].ID())

	err = p.Relate(context.Background(), graphdl.Relation{FromType: "Post", FromID: "p1", Field: "author", ToType: "Author", ToID: "a1"})
	require.NoError(t, err)
}

func TestMockInsertIgnore(t *testing.T) {
	t.Parallel()
	tests := []struct {
		dialect string
		stmt    string
	}{
		{dialect.SQLite, "INSERT OR IGNORE INTO graphdl_edges"},
		{dialect.MySQL, "INSERT IGNORE INTO graphdl_edges"},
		{dialect.Postgres, "ON CONFLICT DO NOTHING"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			t.Parallel()
			drv, mock := newMock(t, tt.dialect)
			mock.ExpectExec(q(tt.stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
			err := dsql.NewProvider(drv).Relate(context.Background(), graphdl.Relation{FromType: "A", FromID: "1", Field: "b", ToType: "B", ToID: "2"})
			require.NoError(t, err)
		})
	}
}

func TestMockCreateDuplicate(t *testing.T) {
	t.Parallel()
	drv, mock := newMock(t, dialect.MySQL)
	mock.ExpectExec(q("INSERT INTO graphdl_entities (type, id, data) VALUES (?, ?, ?)")).
		WithArgs("Post", "p1", sqlmock.AnyArg()).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'Post-p1' for key 'type'"))

	_, err := dsql.NewProvider(drv).Create(context.Background(), "Post", "p1", graphdl.Record{"title": "x"})
	assert.True(t, graphdl.IsMutationError(err))
	assert.True(t, graphdl.IsConstraintError(err))
}

func TestMockUpdate(t *testing.T) {
	t.Parallel()
	t.Run("missing rolls back", func(t *testing.T) {
		t.Parallel()
		drv, mock := newMock(t, dialect.SQLite)
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT type, id, data FROM graphdl_entities")).
			WillReturnRows(sqlmock.NewRows([]string{"type", "id", "data"}))
		mock.ExpectRollback()

		_, err := dsql.NewProvider(drv).Update(context.Background(), "Post", "p1", graphdl.Record{"title": "x"})
		assert.True(t, graphdl.IsNotFound(err))
	})
	t.Run("write failure rolls back", func(t *testing.T) {
		t.Parallel()
		drv, mock := newMock(t, dialect.SQLite)
		data, err := msgpack.Marshal(map[string]any{"title": "a"})
		require.NoError(t, err)
		errDisk := errors.New("disk full")
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT type, id, data FROM graphdl_entities")).
			WillReturnRows(sqlmock.NewRows([]string{"type", "id", "data"}).AddRow("Post", "p1", data))
		mock.ExpectExec(q("UPDATE graphdl_entities SET data = ? WHERE type = ? AND id = ?")).
			WillReturnError(errDisk)
		mock.ExpectRollback()

		_, err = dsql.NewProvider(drv).Update(context.Background(), "Post", "p1", graphdl.Record{"title": "b"})
		assert.ErrorIs(t, err, errDisk)
		assert.True(t, graphdl.IsMutationError(err))
	})
	t.Run("commits", func(t *testing.T) {
		t.Parallel()
		drv, mock := newMock(t, dialect.SQLite)
		data, err := msgpack.Marshal(map[string]any{"title": "a", "views": 1})
		require.NoError(t, err)
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT type, id, data FROM graphdl_entities")).
			WillReturnRows(sqlmock.NewRows([]string{"type", "id", "data"}).AddRow("Post", "p1", data))
		mock.ExpectExec(q("UPDATE graphdl_entities")).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rec, err := dsql.NewProvider(drv).Update(context.Background(), "Post", "p1", graphdl.Record{"title": "b"})
		require.NoError(t, err)
		assert.Equal(t, "b", rec["title"])
		assert.EqualValues(t, 1, rec["views"])
	})
}

func TestMockDeleteMissing(t *testing.T) {
	t.Parallel()
	drv, mock := newMock(t, dialect.SQLite)
	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM graphdl_entities WHERE type = ? AND id = ?")).
		WithArgs("Post", "p1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := dsql.NewProvider(drv).Delete(context.Background(), "Post", "p1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatsDriver(t *testing.T) {
	t.Parallel()
	drv, mock := newMock(t, dialect.SQLite)
	var buf bytes.Buffer
	stats := dsql.NewStatsDriver(drv,
		dsql.WithSlowThreshold(-time.Nanosecond),
		dsql.WithStatsLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)
	mock.ExpectQuery(q("SELECT type, id, data")).WillReturnError(errors.New("boom"))
	mock.ExpectExec(q("INSERT INTO graphdl_entities")).WillReturnResult(sqlmock.NewResult(1, 1))

	p := dsql.NewProvider(stats)
	_, err := p.Get(context.Background(), "Post", "p1")
	require.Error(t, err)
	_, err = p.Create(context.Background(), "Post", "p1", graphdl.Record{})
	require.NoError(t, err)

	snap := stats.QueryStats().Stats()
	assert.EqualValues(t, 1, snap.TotalQueries)
	assert.EqualValues(t, 1, snap.TotalExecs)
	assert.EqualValues(t, 1, snap.Errors)
	assert.EqualValues(t, 2, snap.SlowQueries)
	assert.Contains(t, buf.String(), "slow query detected")
	assert.Contains(t, snap.String(), "queries=1 execs=1")
}

func TestDebugDriver(t *testing.T) {
	t.Parallel()
	drv, mock := newMock(t, dialect.SQLite)
	var buf bytes.Buffer
	debug := dsql.NewDebugDriver(drv, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM graphdl_entities")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("DELETE FROM graphdl_edges")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := dsql.NewProvider(debug).Delete(context.Background(), "Post", "p1")
	require.NoError(t, err)
	assert.True(t, ok)
	for _, msg := range []string{"begin transaction", "tx exec", "commit transaction"} {
		assert.Contains(t, buf.String(), msg)
	}
}

func TestRebind(t *testing.T) {
	t.Parallel()
	tests := []struct {
		dialect, in, want string
	}{
		{dialect.Postgres, "a = ? AND b IN (?, ?)", "a = $1 AND b IN ($2, $3)"},
		{dialect.SQLite, "a = ?", "a = ?"},
		{dialect.MySQL, "a = ?", "a = ?"},
		{dialect.Postgres, "SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, dsql.Rebind(tt.dialect, tt.in))
	}
}

func TestDriverDialect(t *testing.T) {
	t.Parallel()
	for name, want := range map[string]string{
		"sqlite3":  dialect.SQLite,
		"postgres": dialect.Postgres,
		"mysql":    dialect.MySQL,
		"other":    "other",
	} {
		drv, _ := newMock(t, name)
		assert.Equal(t, want, drv.Dialect())
	}
}
