package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/ynput/ayon-backend-sub000/pkg/utils"
)

// Database holds connection settings for the MySQL/TiDB store
type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	// TLS is enabled automatically for non-local hosts
	TLS          bool
	MaxOpenConns int
}

// Config is the process configuration, read from the environment
type Config struct {
	Port       string
	LogLevel   string
	LogFormat  string
	JWTSecret  string
	AddonsDir  string
	AuditTrail bool
	// TxMaxRetries bounds deadlock retries of bundle transactions
	TxMaxRetries int
	Database     Database
}

// Load reads an optional .env file and then the environment.
// Files are tried in order and missing ones are ignored.
func Load(envFiles ...string) *Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err == nil {
			logrus.WithField("file", f).Debug("loaded env file")
		}
	}

	host := getenv("DB_HOST", "127.0.0.1")
	return &Config{
		Port:         getenv("PORT", "5000"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogFormat:    getenv("LOG_FORMAT", "text"),
		JWTSecret:    getenv("JWT_SECRET", "default-secret-change-in-production"),
		AddonsDir:    getenv("ADDONS_DIR", "addons"),
		AuditTrail:   utils.ToBool(getenv("AUDIT_TRAIL", "false")),
		TxMaxRetries: getenvInt("TX_MAX_RETRIES", 3),
		Database: Database{
			Host:         host,
			Port:         getenv("DB_PORT", "4000"),
			User:         getenv("DB_USER", "root"),
			Password:     os.Getenv("DB_PASSWORD"),
			Name:         getenv("DB_NAME", "ayon"),
			TLS:          !isLocalHost(host),
			MaxOpenConns: getenvInt("DB_MAX_OPEN_CONNS", 50),
		},
	}
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithField("key", key).Warnf("invalid integer %q, using %d", v, fallback)
		return fallback
	}
	return n
}

func isLocalHost(host string) bool {
	switch strings.ToLower(host) {
	case "", "127.0.0.1", "localhost", "::1":
		return true
	}
	return false
}
