package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/ynput/ayon-backend-sub000/internal/domain/ports"
)

// Executor is re-exported so repositories read like the rest of the package
type Executor = ports.Executor

// TransactionManager handles database transactions with retry logic for deadlocks
type TransactionManager struct {
	db         *sql.DB
	maxRetries int
}

var _ ports.TxRunner = (*TransactionManager)(nil)

// NewTransactionManager creates a new TransactionManager.
// maxRetries bounds WithTransaction retries on deadlock; values below 1 mean no retry.
func NewTransactionManager(db *sql.DB, maxRetries int) *TransactionManager {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &TransactionManager{db: db, maxRetries: maxRetries}
}

// Executor returns the non-transactional executor
func (tm *TransactionManager) Executor() Executor {
	return tm.db
}

// WithTransaction runs fn in a transaction, retrying on deadlock.
// fn must therefore be safe to run more than once.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(exec Executor) error) error {
	return tm.WithRetry(ctx, func(tx *sql.Tx) error { return fn(tx) }, tm.maxRetries)
}

// Run executes a function within a single database transaction.
// The transaction is rolled back if the function returns an error or panics,
// and committed if the function returns nil.
func (tm *TransactionManager) Run(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w (rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WithRetry executes a function within a transaction with automatic retry on deadlock.
// Deadlocks are retried up to maxRetries times with exponential backoff.
// Other errors are returned immediately without retry.
func (tm *TransactionManager) WithRetry(ctx context.Context, fn func(tx *sql.Tx) error, maxRetries int) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := tm.Run(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isDeadlock(err) {
			return err
		}

		if attempt < maxRetries-1 {
			backoff := time.Millisecond * time.Duration(100*(1<<uint(attempt)))
			logrus.WithError(err).WithField("attempt", attempt+1).Warn("deadlock detected, retrying transaction")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	if maxRetries == 1 {
		return lastErr
	}
	return fmt.Errorf("transaction failed after %d retries: %w", maxRetries, lastErr)
}

// WithIsolationLevel executes a function within a transaction with a specific isolation level.
func (tm *TransactionManager) WithIsolationLevel(ctx context.Context, level IsolationLevel, fn func(exec Executor) error) error {
	return tm.Run(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET TRANSACTION ISOLATION LEVEL %s", level)); err != nil {
			return fmt.Errorf("failed to set isolation level: %w", err)
		}
		return fn(tx)
	})
}

// IsolationLevel represents SQL transaction isolation levels
type IsolationLevel string

const (
	ReadCommitted  IsolationLevel = "READ COMMITTED"
	RepeatableRead IsolationLevel = "REPEATABLE READ"
	Serializable   IsolationLevel = "SERIALIZABLE"
)

// MySQL/TiDB error numbers
const (
	errDuplicateEntry  = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// isDeadlock checks if an error is a deadlock or lock wait timeout
func isDeadlock(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == errDeadlock || myErr.Number == errLockWaitTimeout
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "deadlock") || strings.Contains(errMsg, "lock wait timeout")
}

// isDuplicateKey checks for a unique-key violation
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDuplicateEntry
}
