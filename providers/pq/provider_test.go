package pq

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/Konsultn-Engineering/sqlkit/connector"
	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("exec: %w", &pq.Error{Code: "57014", Message: "canceling statement due to statement timeout"})

	code := dialect.CodeOf(err)
	assert.Equal(t, dialect.ErrorCode{SQLState: "57014"}, code)
	assert.True(t, dialect.NewPostgresDialect().IsTimeoutError(code))
}

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(connector.Config{Host: "db", Port: 5433, Database: "app", Params: map[string]string{"sslmode": "verify-full"}})
	assert.Equal(t, "postgres://db:5433/app?connect_timeout=10&sslmode=verify-full", dsn)
}

func TestRegistered(t *testing.T) {
	d, err := connector.DialectOf("pq")
	assert.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
}
