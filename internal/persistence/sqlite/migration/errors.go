package migration

import (
	"errors"
	"fmt"
)

// Sentinels callers match with errors.Is.
var (
	ErrMigrationFailed      = errors.New("migration: execution failed")
	ErrInvalidMigrationFile = errors.New("migration: invalid file")
	ErrVersionConflict      = errors.New("migration: version conflict")
	ErrDuplicateVersion     = errors.New("migration: duplicate version")
	// ErrChecksumMismatch means an applied file was edited afterwards.
	ErrChecksumMismatch = errors.New("migration: checksum mismatch")
)

// MigrationError ties a failure to the file it came from.
type MigrationError struct {
	Version   string
	FilePath  string
	Operation string
	Err       error
}

func (e *MigrationError) Error() string {
	subject := e.FilePath
	if e.Version != "" {
		subject = e.Version + " (" + e.FilePath + ")"
	}
	return fmt.Sprintf("migration %s: %s: %v", subject, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// NewMigrationError builds a MigrationError.
func NewMigrationError(version, filePath, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, FilePath: filePath, Operation: operation, Err: err}
}

// DatabaseError is a driver failure while applying or reading migrations.
type DatabaseError struct {
	Version   string
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("migration store: %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("migration store: %s (version %s): %v", e.Operation, e.Version, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// NewDatabaseError builds a DatabaseError.
func NewDatabaseError(version, operation string, err error) *DatabaseError {
	return &DatabaseError{Version: version, Operation: operation, Err: err}
}
