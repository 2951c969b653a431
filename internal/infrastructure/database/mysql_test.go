package database

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ynput/ayon-backend-sub000/internal/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.Database{Host: "127.0.0.1", Port: "4000", User: "root", Password: "pw", Name: "ayon"})

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "root", parsed.User)
	assert.Equal(t, "pw", parsed.Passwd)
	assert.Equal(t, "127.0.0.1:4000", parsed.Addr)
	assert.Equal(t, "ayon", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Empty(t, parsed.TLSConfig)
}

func TestDSNWithTLS(t *testing.T) {
	dsn := DSN(config.Database{Host: "db.example.com", Port: "4000", User: "u", Name: "ayon", TLS: true})
	assert.Contains(t, dsn, "tls="+tlsConfigName)
}
