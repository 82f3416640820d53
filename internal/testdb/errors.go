package testdb

import (
	"errors"
	"fmt"
)

// Step names the phase of provisioning or teardown that failed.
type Step string

// Provisioning steps.
const (
	StepCreate  Step = "create"
	StepConnect Step = "connect"
	StepMigrate Step = "migrate"
)

// Teardown steps.
const (
	StepClosePool    Step = "close_pool"
	StepAdminConnect Step = "admin_connect"
	StepTerminate    Step = "terminate"
	StepDrop         Step = "drop"
	StepWait         Step = "wait"
	StepRecover      Step = "recover"
)

var (
	// ErrCreateFailed is returned when the ephemeral database could not be created.
	ErrCreateFailed = errors.New("failed to create database")

	// ErrConnectFailed is returned when the new database could not be reached.
	ErrConnectFailed = errors.New("failed to connect to database")

	// ErrMigrationFailed is returned when the schema could not be applied.
	ErrMigrationFailed = errors.New("failed to migrate database")

	// ErrDatabaseMissing is returned by teardown when the database does not exist.
	ErrDatabaseMissing = errors.New("database does not exist")

	// ErrAlreadyReleased is returned by every Release after the first.
	ErrAlreadyReleased = errors.New("database handle already released")

	// ErrTeardownTimeout is returned when teardown does not report back in time.
	ErrTeardownTimeout = errors.New("teardown timed out")
)

// ProvisionError reports which provisioning step failed for which database.
// A test cannot run without its database, so callers treat it as fatal.
type ProvisionError struct {
	Step     Step
	Database string
	Err      error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision %s: step %s: %v", e.Database, e.Step, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// TeardownError reports a failed teardown. It means the database may have
// leaked; it is logged loudly but never fails the test.
type TeardownError struct {
	Database string
	Step     Step
	Err      error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("teardown %s: step %s: %v", e.Database, e.Step, e.Err)
}

func (e *TeardownError) Unwrap() error {
	return e.Err
}
