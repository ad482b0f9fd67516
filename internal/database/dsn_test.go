package database

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "restaunax", Name: "restaunax"})
	require.NoError(t, err)
	require.Equal(t, "postgres://restaunax@localhost:5432/restaunax?sslmode=disable", dsn)

	parsed, err := pgconn.ParseConfig(dsn)
	require.NoError(t, err)
	require.Equal(t, "localhost", parsed.Host)
	require.Equal(t, uint16(5432), parsed.Port)
	require.Nil(t, parsed.TLSConfig)
}

func TestBuildPostgresDSNEscapesCredentials(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "chef",
		Password: "p@ss word/1",
		Name:     "kitchen",
		Host:     "db.example.com",
		Port:     6543,
		Options:  map[string]string{"search_path": "orders", "application_name": "restaunax"},
	})
	require.NoError(t, err)

	parsed, err := pgconn.ParseConfig(dsn)
	require.NoError(t, err)
	require.Equal(t, "db.example.com", parsed.Host)
	require.Equal(t, uint16(6543), parsed.Port)
	require.Equal(t, "chef", parsed.User)
	require.Equal(t, "p@ss word/1", parsed.Password)
	require.Equal(t, "kitchen", parsed.Database)
	require.Equal(t, "orders", parsed.RuntimeParams["search_path"])
	require.Equal(t, "restaunax", parsed.RuntimeParams["application_name"])
}

func TestBuildPostgresDSNOverrideAndValidation(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "host=/tmp dbname=x"})
	require.NoError(t, err)
	require.Equal(t, "host=/tmp dbname=x", dsn)

	_, err = buildPostgresDSN(Config{})
	require.ErrorContains(t, err, "requires user and database name")

	_, err = openPostgres(Config{DSN: "postgres://bad host:port"})
	require.ErrorContains(t, err, "postgres dsn")
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "restaunax", Name: "restaunax"})
	require.NoError(t, err)

	parsed, err := driver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "restaunax", parsed.User)
	require.Empty(t, parsed.Passwd)
	require.Equal(t, "127.0.0.1:3306", parsed.Addr)
	require.Equal(t, "restaunax", parsed.DBName)
	require.True(t, parsed.ParseTime)
	require.Equal(t, time.UTC, parsed.Loc)
	require.Equal(t, "utf8mb4", parsed.Params["charset"])
}

func TestBuildMySQLDSNWithOptions(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "chef",
		Password: "s3cr@t:pw",
		Name:     "kitchen",
		Host:     "db.example.com",
		Port:     3307,
		Options:  map[string]string{"tls": "skip-verify", "charset": "utf8"},
	})
	require.NoError(t, err)

	parsed, err := driver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "s3cr@t:pw", parsed.Passwd)
	require.Equal(t, "db.example.com:3307", parsed.Addr)
	require.Equal(t, "skip-verify", parsed.TLSConfig)
	require.Equal(t, "utf8", parsed.Params["charset"])
}

func TestBuildMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := buildMySQLDSN(Config{Host: "localhost"})
	require.ErrorContains(t, err, "requires user and database name")
}

func TestSQLiteDSN(t *testing.T) {
	dsn, memory, err := sqliteDSN(Config{})
	require.NoError(t, err)
	require.True(t, memory)
	require.True(t, strings.HasPrefix(dsn, "file:memdb-"), dsn)
	require.Contains(t, dsn, "cache=shared")
	require.Contains(t, dsn, "mode=memory")

	other, _, err := sqliteDSN(Config{Path: ":memory:"})
	require.NoError(t, err)
	require.NotEqual(t, dsn, other)

	path := filepath.Join(t.TempDir(), "nested", "restaunax.sqlite")
	dsn, memory, err = sqliteDSN(Config{Path: path})
	require.NoError(t, err)
	require.False(t, memory)
	require.Contains(t, dsn, "_journal_mode=WAL")
	require.Contains(t, dsn, "_foreign_keys=1")
	require.DirExists(t, filepath.Dir(path))

	dsn, memory, err = sqliteDSN(Config{DSN: " file::memory:?cache=shared "})
	require.NoError(t, err)
	require.True(t, memory)
	require.Equal(t, "file::memory:?cache=shared", dsn)
}
