package idgen

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/sqlkit/database"
	"github.com/Konsultn-Engineering/sqlkit/dialect"
	"github.com/Konsultn-Engineering/sqlkit/engine"
)

func TestUUID(t *testing.T) {
	v, err := UUID{}.Generate(context.Background())
	require.NoError(t, err)
	id, ok := v.(uuid.UUID)
	require.True(t, ok)
	assert.Equal(t, uuid.Version(4), id.Version())
}

func TestULID_Monotonic(t *testing.T) {
	g := NewULID()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	a, err := g.Generate(context.Background())
	require.NoError(t, err)
	b, err := g.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, -1, a.(ulid.ULID).Compare(b.(ulid.ULID)))
	assert.Equal(t, ulid.Timestamp(fixed), a.(ulid.ULID).Time())
}

func TestSnowflake(t *testing.T) {
	ctx := context.Background()
	g := NewSnowflake(3)
	now := SnowflakeEpoch.Add(time.Second)
	g.now = func() time.Time { return now }

	a, err := g.Generate(ctx)
	require.NoError(t, err)
	b, err := g.Generate(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1000<<22|3<<12), a)
	assert.Equal(t, a.(int64)+1, b)

	now = now.Add(-time.Millisecond)
	_, err = g.Generate(ctx)
	assert.ErrorIs(t, err, ErrClockBackwards)
}

func TestNanoID(t *testing.T) {
	v, err := NewNanoID(10, "ab").Generate(context.Background())
	require.NoError(t, err)
	s := v.(string)
	assert.Len(t, s, 10)
	for _, c := range s {
		assert.Contains(t, "ab", string(c))
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"uuid", "ulid", "snowflake", "nanoid"} {
		g, ok := r.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, name, g.Type())
	}

	_, err := r.Generate(context.Background(), "serial")
	assert.ErrorIs(t, err, ErrUnknownGenerator)
}

func TestSequence(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	d := dialect.NewPostgresDialect()
	s := engine.New(d, engine.DefaultOptions()).Session(database.NewSQLConn(conn))
	defer s.Close()

	seq, err := NewSequence(d, s, "order_seq")
	require.NoError(t, err)
	assert.Equal(t, "SELECT nextval('order_seq')", seq.SQL())
	assert.Equal(t, "sequence", seq.Type())

	prep := mock.ExpectPrepare(seq.SQL())
	prep.ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(41))
	prep.ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(42))

	for _, want := range []int64{41, 42} {
		v, err := seq.Generate(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = NewSequence(dialect.NewMySQLDialect(), s, "order_seq")
	assert.ErrorIs(t, err, dialect.ErrUnsupported)
	_, err = NewSequence(d, s, "x'); drop table t; --")
	assert.ErrorIs(t, err, ErrSequenceName)
}
