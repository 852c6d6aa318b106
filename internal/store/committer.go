package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/logging"
	"github.com/JonMunkholm/roster/internal/notify"
)

// Committer implements core.StudentCommitter on top of a Repo.
type Committer struct {
	repo       Repo
	inviter    notify.Inviter
	bcryptCost int
	now        func() time.Time
}

var _ core.StudentCommitter = (*Committer)(nil)

// CommitterOption configures a Committer.
type CommitterOption func(*Committer)

// WithBcryptCost sets the cost used to hash placeholder passwords.
func WithBcryptCost(cost int) CommitterOption {
	return func(c *Committer) {
		c.bcryptCost = cost
	}
}

// NewCommitter returns a Committer. A nil inviter disables invitations.
func NewCommitter(repo Repo, inviter notify.Inviter, opts ...CommitterOption) *Committer {
	c := &Committer{
		repo:       repo,
		inviter:    inviter,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BulkCreateStudents writes every student in its own transaction. A failed
// student is counted and reported in Errors; the rest of the batch carries
// on. Placeholder parents show up in CreatedParents only once their
// transaction has committed.
func (c *Committer) BulkCreateStudents(ctx context.Context, students []core.ValidatedStudent, opts core.CommitOptions) (core.BulkImportResult, error) {
	log := logging.WithFields(ctx, "created_by", opts.CreatedBy)
	res := core.NewBulkImportResult(len(students))
	started := c.now()

	for _, s := range students {
		out, err := c.commitOne(ctx, s, opts)
		if err != nil {
			log.Warn("student import failed", "row", s.Row, "error", err)
			res.Failed++
			res.Errors = append(res.Errors, core.RowError{
				Row: s.Row,
				Errors: []core.FieldError{{
					Field:   "student",
					Value:   s.FullName(),
					Message: core.FormatUserError(err),
				}},
			})
			continue
		}

		res.Success++
		summary := core.StudentSummary{
			ID:          out.student.ID.String(),
			Row:         s.Row,
			FirstName:   s.FirstName,
			LastName:    s.LastName,
			ParentEmail: s.ParentEmail,
		}
		if out.student.ParentID.Valid {
			summary.ParentID = out.student.ParentID.UUID.String()
		}
		res.Students = append(res.Students, summary)

		if !out.student.ParentID.Valid {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"Row %d: no parent account exists for %s; %s was created without a linked parent",
				s.Row, s.ParentEmail, s.FullName()))
		}
		if out.activationToken != "" {
			res.CreatedParents = append(res.CreatedParents, s.ParentEmail)
			if w := c.invite(ctx, s, out.activationToken); w != "" {
				res.Warnings = append(res.Warnings, w)
			}
		}
	}

	c.record(ctx, res, opts, started)
	return res, nil
}

// commitResult is what one student's transaction produced.
type commitResult struct {
	student Student
	// activationToken is set when a placeholder parent was created.
	activationToken string
}

func (c *Committer) commitOne(ctx context.Context, s core.ValidatedStudent, opts core.CommitOptions) (commitResult, error) {
	var out commitResult
	err := c.repo.WithinTx(ctx, func(tx Tx) error {
		out = commitResult{}

		parentID := uuid.NullUUID{}
		parent, err := tx.FindParentByEmail(ctx, s.ParentEmail)
		switch {
		case err == nil:
			parentID = uuid.NullUUID{UUID: parent.ID, Valid: true}
		case errors.Is(err, ErrNotFound) && opts.CreateParents:
			token, hash, err := c.activationSecret()
			if err != nil {
				return fmt.Errorf("create parent: %w", err)
			}
			parent, err = tx.CreateParent(ctx, s.ParentEmail, hash)
			if err != nil {
				return fmt.Errorf("create parent: %w", err)
			}
			parentID = uuid.NullUUID{UUID: parent.ID, Valid: true}
			out.activationToken = token
		case errors.Is(err, ErrNotFound):
			// Student is created unlinked.
		default:
			return fmt.Errorf("find parent: %w", err)
		}

		out.student, err = tx.CreateStudent(ctx, NewStudent{
			Data:      s,
			ParentID:  parentID,
			CreatedBy: opts.CreatedBy,
		})
		return err
	})
	if err != nil {
		return commitResult{}, err
	}
	return out, nil
}

// activationSecret returns a random token and its bcrypt hash. The hash
// becomes the placeholder password, the token goes into the invitation.
func (c *Committer) activationSecret() (token, hash string, err error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(raw)
	h, err := bcrypt.GenerateFromPassword([]byte(token), c.bcryptCost)
	if err != nil {
		return "", "", err
	}
	return token, string(h), nil
}

// invite sends the activation email and returns a warning on failure.
func (c *Committer) invite(ctx context.Context, s core.ValidatedStudent, token string) string {
	if c.inviter == nil {
		return ""
	}
	err := c.inviter.Invite(ctx, notify.Invitation{
		Email:       s.ParentEmail,
		StudentName: s.FullName(),
		Token:       token,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("parent invitation failed", "email", s.ParentEmail, "error", err)
		return fmt.Sprintf("Row %d: parent account for %s was created but the invitation email could not be sent",
			s.Row, s.ParentEmail)
	}
	return ""
}

// record writes the audit row. Failures are logged only; the students are
// already committed.
func (c *Committer) record(ctx context.Context, res core.BulkImportResult, opts core.CommitOptions, started time.Time) {
	run := ImportRun{
		ID:             uuid.New(),
		CreatedBy:      opts.CreatedBy,
		IPAddress:      core.IPAddressFromContext(ctx),
		UserAgent:      core.UserAgentFromContext(ctx),
		Total:          res.Total,
		Success:        res.Success,
		Failed:         res.Failed,
		CreatedParents: len(res.CreatedParents),
		StartedAt:      started,
		FinishedAt:     c.now(),
	}
	if err := c.repo.RecordImport(context.WithoutCancel(ctx), run); err != nil {
		logging.FromContext(ctx).Error("record import run failed", "error", err)
	}
}
