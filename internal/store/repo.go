// Package store persists imported students and their parent accounts.
//
// The Committer drives a Repo one student at a time, each in its own
// transaction, so one bad row never rolls back the rest of a batch.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/roster/internal/core"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Parent is a parent account. Placeholder accounts are created by imports
// and activated later by the parent.
type Parent struct {
	ID          uuid.UUID
	Email       string
	Placeholder bool
	CreatedAt   time.Time
}

// NewStudent is the input to Tx.CreateStudent.
type NewStudent struct {
	Data      core.ValidatedStudent
	ParentID  uuid.NullUUID
	CreatedBy string
}

// Student is a persisted student record.
type Student struct {
	ID        uuid.UUID
	ParentID  uuid.NullUUID
	Data      core.ValidatedStudent
	CreatedBy string
	CreatedAt time.Time
}

// ImportRun is the audit record written once per committed import.
type ImportRun struct {
	ID             uuid.UUID
	CreatedBy      string
	IPAddress      string
	UserAgent      string
	Total          int
	Success        int
	Failed         int
	CreatedParents int
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Tx is the set of writes allowed inside one student's transaction.
type Tx interface {
	// FindParentByEmail returns ErrNotFound when no account uses email.
	FindParentByEmail(ctx context.Context, email string) (Parent, error)
	CreateParent(ctx context.Context, email, passwordHash string) (Parent, error)
	CreateStudent(ctx context.Context, s NewStudent) (Student, error)
}

// Repo is the persistence surface used by the Committer.
type Repo interface {
	// WithinTx runs fn in one transaction. An error from fn rolls it back.
	WithinTx(ctx context.Context, fn func(Tx) error) error
	RecordImport(ctx context.Context, run ImportRun) error
	Ping(ctx context.Context) error
}
