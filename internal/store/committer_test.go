package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/notify"
	"github.com/JonMunkholm/roster/internal/store"
)

func student(row int, first, email string) core.ValidatedStudent {
	return core.ValidatedStudent{
		Row:         row,
		FirstName:   first,
		LastName:    "Doe",
		DateOfBirth: "2015-03-15",
		ParentEmail: email,
	}
}

type recordingInviter struct {
	mu   sync.Mutex
	sent []notify.Invitation
	err  error
}

func (r *recordingInviter) Invite(_ context.Context, inv notify.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, inv)
	return r.err
}

func newCommitter(repo store.Repo, inviter notify.Inviter) *store.Committer {
	return store.NewCommitter(repo, inviter, store.WithBcryptCost(bcrypt.MinCost))
}

func TestCommitter_AllSucceed(t *testing.T) {
	repo := store.NewMemoryRepo()
	existing := repo.AddParent("known@example.com")
	c := newCommitter(repo, nil)

	res, err := c.BulkCreateStudents(context.Background(), []core.ValidatedStudent{
		student(1, "Jane", "known@example.com"),
		student(2, "John", "known@example.com"),
	}, core.CommitOptions{CreatedBy: "admin-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 0, res.Failed)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.CreatedParents)
	require.Len(t, res.Students, 2)
	assert.Equal(t, existing.ID.String(), res.Students[0].ParentID)
	assert.Equal(t, 2, res.Students[1].Row)
	assert.NotEmpty(t, res.Students[0].ID)

	assert.Len(t, repo.Students(), 2)
	for _, s := range repo.Students() {
		assert.Equal(t, "admin-1", s.CreatedBy)
	}
}

func TestCommitter_CreatesPlaceholderParentsOnce(t *testing.T) {
	repo := store.NewMemoryRepo()
	inviter := &recordingInviter{}
	c := newCommitter(repo, inviter)

	res, err := c.BulkCreateStudents(context.Background(), []core.ValidatedStudent{
		student(1, "Jane", "new@example.com"),
		student(2, "John", "new@example.com"),
		student(3, "Ann", "other@example.com"),
	}, core.CommitOptions{CreateParents: true})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Success)
	assert.Equal(t, []string{"new@example.com", "other@example.com"}, res.CreatedParents)
	assert.Empty(t, res.Warnings)

	p, ok := repo.Parent("new@example.com")
	require.True(t, ok)
	assert.True(t, p.Placeholder)
	assert.Equal(t, p.ID.String(), res.Students[0].ParentID)
	assert.Equal(t, p.ID.String(), res.Students[1].ParentID)

	require.Len(t, inviter.sent, 2)
	assert.Equal(t, "new@example.com", inviter.sent[0].Email)
	assert.Equal(t, "Jane Doe", inviter.sent[0].StudentName)
	assert.Len(t, inviter.sent[0].Token, 48)
}

func TestCommitter_NoParentWithoutCreateParentsWarns(t *testing.T) {
	repo := store.NewMemoryRepo()
	c := newCommitter(repo, nil)

	res, err := c.BulkCreateStudents(context.Background(), []core.ValidatedStudent{
		student(1, "Jane", "nobody@example.com"),
	}, core.CommitOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Success)
	assert.Empty(t, res.CreatedParents)
	assert.Empty(t, res.Students[0].ParentID)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Row 1")
	assert.Contains(t, res.Warnings[0], "nobody@example.com")

	_, ok := repo.Parent("nobody@example.com")
	assert.False(t, ok)
}

func TestCommitter_DuplicateStudentFailsOnlyThatRow(t *testing.T) {
	repo := store.NewMemoryRepo()
	repo.AddParent("p@example.com")
	c := newCommitter(repo, nil)

	res, err := c.BulkCreateStudents(context.Background(), []core.ValidatedStudent{
		student(1, "Jane", "p@example.com"),
		student(2, "Jane", "p@example.com"),
		student(3, "John", "p@example.com"),
	}, core.CommitOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)

	rowErr := res.Errors[0]
	assert.Equal(t, 2, rowErr.Row)
	require.Len(t, rowErr.Errors, 1)
	assert.Equal(t, "student", rowErr.Errors[0].Field)
	assert.Equal(t, "Jane Doe", rowErr.Errors[0].Value)
	assert.Contains(t, rowErr.Errors[0].Message, "DB001")
}

func TestCommitter_FailedRowRollsBackPlaceholderParent(t *testing.T) {
	repo := store.NewMemoryRepo()
	inviter := &recordingInviter{}
	c := newCommitter(&failingRepo{Repo: repo, failFirst: "Jane"}, inviter)

	res, err := c.BulkCreateStudents(context.Background(), []core.ValidatedStudent{
		student(1, "Jane", "fresh@example.com"),
		student(2, "John", "other@example.com"),
	}, core.CommitOptions{CreateParents: true})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Success)
	assert.Equal(t, []string{"other@example.com"}, res.CreatedParents)
	assert.Contains(t, res.Errors[0].Errors[0].Message, "DB007")

	_, ok := repo.Parent("fresh@example.com")
	assert.False(t, ok, "parent insert must roll back with the student")
	require.Len(t, inviter.sent, 1)
	assert.Equal(t, "other@example.com", inviter.sent[0].Email)
}

func TestCommitter_InvitationFailureIsWarning(t *testing.T) {
	repo := store.NewMemoryRepo()
	c := newCommitter(repo, &recordingInviter{err: errors.New("smtp down")})

	res, err := c.BulkCreateStudents(context.Background(), []core.ValidatedStudent{
		student(4, "Jane", "new@example.com"),
	}, core.CommitOptions{CreateParents: true})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Success)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, []string{"new@example.com"}, res.CreatedParents)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Row 4")
	assert.Contains(t, res.Warnings[0], "invitation")
}

func TestCommitter_RecordsImportRun(t *testing.T) {
	repo := store.NewMemoryRepo()
	c := newCommitter(repo, nil)

	ctx := core.ContextWithIPAddress(context.Background(), "203.0.113.7")
	ctx = core.ContextWithUserAgent(ctx, "curl/8")
	_, err := c.BulkCreateStudents(ctx, []core.ValidatedStudent{
		student(1, "Jane", "p@example.com"),
	}, core.CommitOptions{CreatedBy: "admin-1", CreateParents: true})
	require.NoError(t, err)

	runs := repo.ImportRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, "admin-1", runs[0].CreatedBy)
	assert.Equal(t, "203.0.113.7", runs[0].IPAddress)
	assert.Equal(t, "curl/8", runs[0].UserAgent)
	assert.Equal(t, 1, runs[0].Total)
	assert.Equal(t, 1, runs[0].Success)
	assert.Equal(t, 1, runs[0].CreatedParents)
	assert.False(t, runs[0].FinishedAt.Before(runs[0].StartedAt))
}

func TestCommitter_CancelledContextFailsEachRow(t *testing.T) {
	repo := store.NewMemoryRepo()
	c := newCommitter(repo, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := c.BulkCreateStudents(ctx, []core.ValidatedStudent{
		student(1, "Jane", "p@example.com"),
		student(2, "John", "p@example.com"),
	}, core.CommitOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Success)
	assert.Equal(t, 2, res.Failed)
	assert.Contains(t, res.Errors[0].Errors[0].Message, "IMP001")
	assert.Empty(t, repo.Students())
}

// failingRepo makes CreateStudent fail for students named failFirst after
// the rest of the transaction has run.
type failingRepo struct {
	store.Repo
	failFirst string
}

func (f *failingRepo) WithinTx(ctx context.Context, fn func(store.Tx) error) error {
	return f.Repo.WithinTx(ctx, func(tx store.Tx) error {
		return fn(&failingTx{Tx: tx, failFirst: f.failFirst})
	})
}

type failingTx struct {
	store.Tx
	failFirst string
}

func (f *failingTx) CreateStudent(ctx context.Context, s store.NewStudent) (store.Student, error) {
	if s.Data.FirstName == f.failFirst {
		return store.Student{}, errors.New("insert student: deadlock detected")
	}
	return f.Tx.CreateStudent(ctx, s)
}
