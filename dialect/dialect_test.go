package dialect

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertCountSQL(t *testing.T) {
	assert.Equal(t,
		"SELECT COUNT(*) COUNT_ FROM (SELECT * FROM T) SUB_",
		NewDefaultDialect().ConvertCountSQL("SELECT * FROM T"))

	assert.Equal(t,
		"SELECT COUNT(*) COUNT_ FROM (SELECT * FROM T ORDER BY ID) SUB_",
		NewPostgresDialect().ConvertCountSQL("SELECT * FROM T ORDER BY ID"))

	for _, d := range []Dialect{NewSQLServerDialect(), NewOracleDialect()} {
		t.Run(d.Name(), func(t *testing.T) {
			assert.Equal(t,
				"SELECT COUNT(*) COUNT_ FROM (SELECT * FROM T) SUB_",
				d.ConvertCountSQL("SELECT * FROM T order  by id desc"))

			// Only the outermost ORDER BY is removed.
			assert.Equal(t,
				"SELECT COUNT(*) COUNT_ FROM (SELECT * FROM (SELECT * FROM T ORDER BY A) X) SUB_",
				d.ConvertCountSQL("SELECT * FROM (SELECT * FROM T ORDER BY A) X"))

			assert.Equal(t,
				"SELECT COUNT(*) COUNT_ FROM (SELECT * FROM (SELECT * FROM T ORDER BY A) X) SUB_",
				d.ConvertCountSQL("SELECT * FROM (SELECT * FROM T ORDER BY A) X ORDER BY B"))
		})
	}
}

func TestConvertPaginationSQL(t *testing.T) {
	const sql = "SELECT * FROM T"

	tests := []struct {
		dialect Dialect
		page    Pagination
		want    string
	}{
		{NewDefaultDialect(), Pagination{Offset: 10, Limit: 5}, sql},
		{NewPostgresDialect(), Pagination{Offset: 10, Limit: 5}, sql + " LIMIT 5 OFFSET 10"},
		{NewPostgresDialect(), Pagination{Limit: 5}, sql + " LIMIT 5"},
		{NewPostgresDialect(), Pagination{Offset: 10}, sql + " OFFSET 10"},
		{NewPostgresDialect(), Pagination{}, sql},
		{NewMySQLDialect(), Pagination{Offset: 10, Limit: 5}, sql + " LIMIT 5 OFFSET 10"},
		{NewMySQLDialect(), Pagination{Offset: 10}, sql + " LIMIT 18446744073709551615 OFFSET 10"},
		{NewTiDBDialect(), Pagination{Limit: 3}, sql + " LIMIT 3"},
		{NewSQLiteDialect(), Pagination{Offset: 10}, sql + " LIMIT -1 OFFSET 10"},
		{NewSQLiteDialect(), Pagination{Limit: 2}, sql + " LIMIT 2"},
		{NewSQLServerDialect(), Pagination{Offset: 10, Limit: 5}, sql + " ORDER BY (SELECT NULL) OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY"},
		{NewSQLServerDialect(), Pagination{Limit: 5}, sql + " ORDER BY (SELECT NULL) OFFSET 0 ROWS FETCH NEXT 5 ROWS ONLY"},
		{NewSQLServerDialect(), Pagination{}, sql},
		{NewOracleDialect(), Pagination{Offset: 10, Limit: 5}, sql + " OFFSET 10 ROWS FETCH FIRST 5 ROWS ONLY"},
		{NewOracleDialect(), Pagination{Limit: 5}, sql + " FETCH FIRST 5 ROWS ONLY"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d/%d", tt.dialect.Name(), tt.page.Offset, tt.page.Limit), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.ConvertPaginationSQL(sql, tt.page))
		})
	}

	assert.Equal(t,
		"SELECT * FROM T ORDER BY ID OFFSET 1 ROWS",
		NewSQLServerDialect().ConvertPaginationSQL("SELECT * FROM T ORDER BY ID", Pagination{Offset: 1}))
}

func TestCapabilities(t *testing.T) {
	tests := []struct {
		dialect                    Dialect
		identity, sequence, offset bool
		ping                       string
	}{
		{NewDefaultDialect(), false, false, false, "SELECT 1"},
		{NewPostgresDialect(), true, true, true, "SELECT 1"},
		{NewMySQLDialect(), true, false, true, "SELECT 1"},
		{NewTiDBDialect(), true, true, true, "SELECT 1"},
		{NewSQLiteDialect(), true, false, true, "SELECT 1"},
		{NewSQLServerDialect(), true, true, true, "SELECT 1"},
		{NewOracleDialect(), true, true, true, "SELECT 1 FROM DUAL"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.Name(), func(t *testing.T) {
			assert.Equal(t, tt.identity, tt.dialect.SupportsIdentity())
			assert.Equal(t, tt.sequence, tt.dialect.SupportsSequence())
			assert.Equal(t, tt.offset, tt.dialect.SupportsOffset())
			assert.Equal(t, tt.ping, tt.dialect.PingSQL())

			seq, err := tt.dialect.BuildSequenceGeneratorSQL("user_seq")
			if tt.sequence {
				require.NoError(t, err)
				assert.Contains(t, seq, "user_seq")
			} else {
				assert.ErrorIs(t, err, ErrUnsupported)
			}
		})
	}

	seq, _ := NewPostgresDialect().BuildSequenceGeneratorSQL("s")
	assert.Equal(t, "SELECT nextval('s')", seq)
	seq, _ = NewSQLServerDialect().BuildSequenceGeneratorSQL("s")
	assert.Equal(t, "SELECT NEXT VALUE FOR s", seq)
	seq, _ = NewOracleDialect().BuildSequenceGeneratorSQL("s")
	assert.Equal(t, "SELECT s.NEXTVAL FROM DUAL", seq)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		dialect   Dialect
		code      ErrorCode
		duplicate bool
		timeout   bool
	}{
		{NewDefaultDialect(), ErrorCode{SQLState: "23505"}, false, false},
		{NewPostgresDialect(), ErrorCode{SQLState: "23505"}, true, false},
		{NewPostgresDialect(), ErrorCode{SQLState: "57014"}, false, true},
		{NewPostgresDialect(), ErrorCode{SQLState: "42P01"}, false, false},
		{NewMySQLDialect(), ErrorCode{SQLState: "23000", Vendor: 1062}, true, false},
		{NewMySQLDialect(), ErrorCode{Vendor: 1205}, false, true},
		{NewMySQLDialect(), ErrorCode{Vendor: 3024}, false, true},
		{NewMySQLDialect(), ErrorCode{Vendor: 1317}, false, true},
		{NewTiDBDialect(), ErrorCode{Vendor: 8175}, false, true},
		{NewTiDBDialect(), ErrorCode{Vendor: 1062}, true, false},
		{NewSQLiteDialect(), ErrorCode{Vendor: 2067}, true, false},
		{NewSQLiteDialect(), ErrorCode{Vendor: 1555}, true, false},
		{NewSQLiteDialect(), ErrorCode{Vendor: 5}, false, true},
		{NewSQLiteDialect(), ErrorCode{Vendor: 517}, false, true},
		{NewSQLiteDialect(), ErrorCode{Vendor: 19}, false, false},
		{NewSQLServerDialect(), ErrorCode{Vendor: 2627}, true, false},
		{NewSQLServerDialect(), ErrorCode{Vendor: 2601}, true, false},
		{NewSQLServerDialect(), ErrorCode{Vendor: -2}, false, true},
		{NewSQLServerDialect(), ErrorCode{Vendor: 1222}, false, true},
		{NewOracleDialect(), ErrorCode{Vendor: 1}, true, false},
		{NewOracleDialect(), ErrorCode{Vendor: 1013}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.Name()+"/"+tt.code.String(), func(t *testing.T) {
			assert.Equal(t, tt.duplicate, tt.dialect.IsDuplicateKeyError(tt.code))
			assert.Equal(t, tt.timeout, tt.dialect.IsTimeoutError(tt.code))
		})
	}
}

type stateErr string

func (e stateErr) Error() string    { return "state " + string(e) }
func (e stateErr) SQLState() string { return string(e) }

type vendorErr int

func (e vendorErr) Error() string { return fmt.Sprintf("vendor %d", int(e)) }

func TestCodeOf(t *testing.T) {
	assert.True(t, CodeOf(nil).IsZero())
	assert.True(t, CodeOf(errors.New("plain")).IsZero())

	wrapped := fmt.Errorf("exec: %w", stateErr("23505"))
	assert.Equal(t, ErrorCode{SQLState: "23505"}, CodeOf(wrapped))

	RegisterCodeExtractor(func(err error) (ErrorCode, bool) {
		var v vendorErr
		if errors.As(err, &v) {
			return ErrorCode{Vendor: int(v)}, true
		}
		return ErrorCode{}, false
	})
	assert.Equal(t, ErrorCode{Vendor: 1062}, CodeOf(fmt.Errorf("x: %w", vendorErr(1062))))
	assert.Equal(t, ErrorCode{SQLState: "57014"}, CodeOf(stateErr("57014")))

	assert.Equal(t, "23000/1062", ErrorCode{SQLState: "23000", Vendor: 1062}.String())
	assert.Equal(t, "unknown", ErrorCode{}.String())
}

func TestPlaceholder(t *testing.T) {
	tests := []struct {
		d    Dialect
		want []string
	}{
		{NewDefaultDialect(), []string{"?", "?"}},
		{NewMySQLDialect(), []string{"?", "?"}},
		{NewSQLiteDialect(), []string{"?", "?"}},
		{NewPostgresDialect(), []string{"$1", "$2"}},
		{NewSQLServerDialect(), []string{"@p1", "@p2"}},
		{NewOracleDialect(), []string{":1", ":2"}},
	}
	for _, tt := range tests {
		t.Run(tt.d.Name(), func(t *testing.T) {
			assert.Equal(t, tt.want, []string{tt.d.Placeholder(1), tt.d.Placeholder(2)})
		})
	}
}

func TestRegistry(t *testing.T) {
	d, err := Lookup("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = Lookup("mssql")
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", d.Name())

	_, err = Lookup("db2")
	assert.ErrorIs(t, err, ErrUnknownDialect)

	Register("custom", NewDefaultDialect())
	assert.Contains(t, Names(), "custom")
}

func TestValueConversion(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	v, err := NewDefaultDialect().ToDatabase(id)
	require.NoError(t, err)
	assert.Equal(t, id.String(), v)

	v, err = NewPostgresDialect().ToDatabase(id)
	require.NoError(t, err)
	assert.Equal(t, id, v)

	v, err = NewSQLServerDialect().ToDatabase(true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = NewOracleDialect().ToDatabase(false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	d := NewDefaultDialect()
	tests := []struct {
		in     any
		target reflect.Type
		want   any
	}{
		{int64(42), reflect.TypeOf(int32(0)), int32(42)},
		{[]byte("17"), reflect.TypeOf(0), 17},
		{"3.5", reflect.TypeOf(float64(0)), 3.5},
		{int64(1), reflect.TypeOf(false), true},
		{[]byte("hello"), reflect.TypeOf(""), "hello"},
		{int64(7), reflect.TypeOf(""), "7"},
		{"abc", reflect.TypeOf([]byte(nil)), []byte("abc")},
		{id.String(), reflect.TypeOf(uuid.UUID{}), id},
		{[]byte(id.String()), reflect.TypeOf(uuid.UUID{}), id},
		{nil, reflect.TypeOf(0), 0},
		{int64(5), reflect.TypeOf(uint8(0)), uint8(5)},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%T->%s", tt.in, tt.target), func(t *testing.T) {
			got, err := d.FromDatabase(tt.in, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	got, err := d.FromDatabase("2024-03-01T12:00:00Z", reflect.TypeOf(time.Time{}))
	require.NoError(t, err)
	assert.True(t, ts.Equal(got.(time.Time)))

	_, err = d.FromDatabase(int64(300), reflect.TypeOf(int8(0)))
	assert.ErrorIs(t, err, ErrConversion)

	_, err = d.FromDatabase("nope", reflect.TypeOf(0))
	assert.ErrorIs(t, err, ErrConversion)
}

func TestRenderValue(t *testing.T) {
	assert.Equal(t, "'O''Brien'", NewPostgresDialect().RenderValue("O'Brien"))
	assert.Equal(t, "NULL", NewMySQLDialect().RenderValue(nil))
	assert.Equal(t, "TRUE", NewPostgresDialect().RenderValue(true))
	assert.Equal(t, "1", NewSQLServerDialect().RenderValue(true))
	assert.Equal(t, "X'0aff'", NewMySQLDialect().RenderValue([]byte{0x0a, 0xff}))
	assert.Equal(t, "HEXTORAW('0aff')", NewOracleDialect().RenderValue([]byte{0x0a, 0xff}))
	assert.Equal(t, "2.5", NewSQLiteDialect().RenderValue(2.5))
}
