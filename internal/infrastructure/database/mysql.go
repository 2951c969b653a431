package database

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/ynput/ayon-backend-sub000/internal/config"
)

// Connection wraps the shared *sql.DB.
// sql.DB is already safe for concurrent use and pools connections, so
// no extra locking happens here.
type Connection struct {
	db *sql.DB
}

var tlsOnce sync.Once

const tlsConfigName = "settings-db"

// DSN builds the driver DSN for cfg
func DSN(cfg config.Database) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	if cfg.TLS {
		mc.TLSConfig = tlsConfigName
	}
	return mc.FormatDSN()
}

// Open connects to the database and verifies the connection
func Open(ctx context.Context, cfg config.Database) (*Connection, error) {
	if cfg.TLS {
		// registering the same name twice fails, so only once per process
		tlsOnce.Do(func() {
			if err := mysql.RegisterTLSConfig(tlsConfigName, &tls.Config{
				MinVersion: tls.VersionTLS12,
				ServerName: cfg.Host,
			}); err != nil {
				logrus.WithError(err).Error("failed to register TLS config")
			}
		})
	}

	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 50
	}
	// MaxIdleConns equal to MaxOpenConns avoids reconnect churn under load
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(3 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Connection{db: db}, nil
}

// Wrap adopts an existing *sql.DB (used by tests)
func Wrap(db *sql.DB) *Connection {
	return &Connection{db: db}
}

// DB returns the underlying *sql.DB
func (c *Connection) DB() *sql.DB {
	return c.db
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.db.Close()
}
