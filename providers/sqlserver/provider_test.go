package sqlserver

import (
	"fmt"
	"testing"
	"time"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/stretchr/testify/assert"

	"github.com/Konsultn-Engineering/sqlkit/connector"
	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("insert: %w", mssql.Error{Number: 2627, Message: "Violation of PRIMARY KEY constraint"})

	code := dialect.CodeOf(err)
	assert.Equal(t, dialect.ErrorCode{Vendor: 2627}, code)
	assert.True(t, dialect.NewSQLServerDialect().IsDuplicateKeyError(code))

	code = dialect.CodeOf(&mssql.Error{Number: 1222})
	assert.True(t, dialect.NewSQLServerDialect().IsTimeoutError(code))
}

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(connector.Config{
		Host:           "db",
		Database:       "app",
		Username:       "sa",
		Password:       "pw",
		ConnectTimeout: 3 * time.Second,
	})
	assert.Equal(t, "sqlserver://sa:pw@db:1433?database=app&dial+timeout=3", dsn)
}

func TestRegistered(t *testing.T) {
	d, err := connector.DialectOf("mssql")
	assert.NoError(t, err)
	assert.Equal(t, "sqlserver", d.Name())
}
