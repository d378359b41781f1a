package database

import (
	"fmt"
	"log"
	"strings"

	"github.com/abamen95/CRUD-COPASI/internal/config"
	"github.com/abamen95/CRUD-COPASI/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StorageError is any failure raised by the persistence layer while running
// a statement.
type StorageError struct {
	Query string
	Err   error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one statement. Rows is only filled for SELECT
// statements. When Err is set nothing else is meaningful.
type Result struct {
	Rows         []model.Student
	RowsAffected int64
	Err          error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Store owns the single connection to the students table.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database and makes sure the students
// table exists. Calling it on an existing database is safe.
func Open(cfg config.Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DBDSN)
	default:
		dialector = sqlite.Open(cfg.DBPath)
	}

	level := logger.Silent
	if cfg.LogSQL {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(level)})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	// One long-lived connection. This also keeps ":memory:" databases alive
	// for the lifetime of the store.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.AutoMigrate(&model.Student{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("create students table: %w", err)
	}

	return &Store{db: db}, nil
}

// Execute runs one parameterized statement. Writes are committed before it
// returns. Only row-returning statements (see isSelect) fill Result.Rows.
// Failures are reported in the Result, never panicked or returned
// separately, so callers must check Result.OK before using Rows.
func (s *Store) Execute(query string, args ...any) Result {
	if isSelect(query) {
		var rows []model.Student
		tx := s.db.Raw(query, args...).Scan(&rows)
		if tx.Error != nil {
			return s.fail(query, tx.Error)
		}
		return Result{Rows: rows, RowsAffected: tx.RowsAffected}
	}

	tx := s.db.Exec(query, args...)
	if tx.Error != nil {
		return s.fail(query, tx.Error)
	}
	return Result{RowsAffected: tx.RowsAffected}
}

// FetchAll returns every record in the order the database yields them.
func (s *Store) FetchAll() Result {
	return s.Execute("SELECT * FROM students")
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) fail(query string, err error) Result {
	log.Printf("Database error running %q: %v", query, err)
	return Result{Err: &StorageError{Query: query, Err: err}}
}

// isSelect reports whether query returns rows: a SELECT, a WITH ... SELECT
// common table expression, or either wrapped in parentheses. Any other
// statement, PRAGMA included, runs through Exec and yields no rows.
func isSelect(query string) bool {
	q := strings.TrimLeft(query, " \t\r\n(")
	return hasKeyword(q, "SELECT") || hasKeyword(q, "WITH")
}

func hasKeyword(q, keyword string) bool {
	if len(q) < len(keyword) || !strings.EqualFold(q[:len(keyword)], keyword) {
		return false
	}
	if len(q) == len(keyword) {
		return true
	}
	next := q[len(keyword)]
	return next == ' ' || next == '\t' || next == '\r' || next == '\n' || next == '(' || next == '*'
}
