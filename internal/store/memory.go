package store

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// MemoryRepo keeps everything in process. It backs STORE_DRIVER=memory and
// the tests, and reports constraint violations with the same errors Postgres
// would so commit failures map to the same user messages.
type MemoryRepo struct {
	mu       sync.Mutex
	parents  map[string]Parent // by email
	students map[studentKey]Student
	runs     []ImportRun
	now      func() time.Time
}

type studentKey struct {
	firstName, lastName, dateOfBirth, parentEmail string
}

// NewMemoryRepo returns an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		parents:  make(map[string]Parent),
		students: make(map[studentKey]Student),
		now:      time.Now,
	}
}

// WithinTx serializes transactions and applies fn's writes only when it
// returns nil.
func (r *MemoryRepo) WithinTx(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memTx{
		repo:     r,
		parents:  make(map[string]Parent),
		students: make(map[studentKey]Student),
	}
	if err := fn(tx); err != nil {
		return err
	}
	maps.Copy(r.parents, tx.parents)
	maps.Copy(r.students, tx.students)
	return nil
}

// RecordImport appends run to the in-memory audit trail.
func (r *MemoryRepo) RecordImport(_ context.Context, run ImportRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

// Ping always succeeds.
func (r *MemoryRepo) Ping(context.Context) error {
	return nil
}

// Students returns a snapshot of all stored students.
func (r *MemoryRepo) Students() []Student {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Student, 0, len(r.students))
	for _, s := range r.students {
		out = append(out, s)
	}
	return out
}

// Parent looks up a parent account by email.
func (r *MemoryRepo) Parent(email string) (Parent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parents[email]
	return p, ok
}

// AddParent seeds an existing (non-placeholder) parent account.
func (r *MemoryRepo) AddParent(email string) Parent {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := Parent{ID: uuid.New(), Email: email, CreatedAt: r.now()}
	r.parents[email] = p
	return p
}

// ImportRuns returns the recorded audit rows.
func (r *MemoryRepo) ImportRuns() []ImportRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ImportRun(nil), r.runs...)
}

// memTx stages writes on top of the repo's committed maps. The repo lock is
// held for the whole transaction.
type memTx struct {
	repo     *MemoryRepo
	parents  map[string]Parent
	students map[studentKey]Student
}

func (t *memTx) parent(email string) (Parent, bool) {
	if p, ok := t.parents[email]; ok {
		return p, true
	}
	p, ok := t.repo.parents[email]
	return p, ok
}

func (t *memTx) hasStudent(k studentKey) bool {
	_, staged := t.students[k]
	_, committed := t.repo.students[k]
	return staged || committed
}

func (t *memTx) FindParentByEmail(_ context.Context, email string) (Parent, error) {
	p, ok := t.parent(email)
	if !ok {
		return Parent{}, ErrNotFound
	}
	return p, nil
}

func (t *memTx) CreateParent(_ context.Context, email, _ string) (Parent, error) {
	if _, exists := t.parent(email); exists {
		return Parent{}, fmt.Errorf("store.CreateParent: %w", uniqueViolation("parents_email_key"))
	}
	p := Parent{ID: uuid.New(), Email: email, Placeholder: true, CreatedAt: t.repo.now()}
	t.parents[email] = p
	return p, nil
}

func (t *memTx) CreateStudent(_ context.Context, s NewStudent) (Student, error) {
	d := s.Data
	key := studentKey{d.FirstName, d.LastName, d.DateOfBirth, d.ParentEmail}
	if t.hasStudent(key) {
		return Student{}, fmt.Errorf("store.CreateStudent: %w", uniqueViolation("students_identity_key"))
	}
	st := Student{
		ID:        uuid.New(),
		ParentID:  s.ParentID,
		Data:      d,
		CreatedBy: s.CreatedBy,
		CreatedAt: t.repo.now(),
	}
	t.students[key] = st
	return st, nil
}

func uniqueViolation(constraint string) *pgconn.PgError {
	return &pgconn.PgError{
		Severity:       "ERROR",
		Code:           "23505",
		Message:        fmt.Sprintf("duplicate key value violates unique constraint %q", constraint),
		ConstraintName: constraint,
	}
}
