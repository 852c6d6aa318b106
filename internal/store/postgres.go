package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// db is satisfied by *pgxpool.Pool and pgx.Tx, so queries run the same way
// inside and outside a transaction.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepo is the Postgres implementation of Repo.
type PostgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresRepo returns a Repo backed by pool.
func NewPostgresRepo(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

// WithinTx runs fn inside pgx.BeginFunc.
func (r *PostgresRepo) WithinTx(ctx context.Context, fn func(Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{db: tx})
	})
}

// Ping checks the database is reachable.
func (r *PostgresRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RecordImport writes the audit row for a committed import.
func (r *PostgresRepo) RecordImport(ctx context.Context, run ImportRun) error {
	const q = `
		INSERT INTO import_runs (id, created_by, ip_address, user_agent, total, success,
			failed, created_parents, started_at, finished_at)
		VALUES (@id, @created_by, @ip_address, @user_agent, @total, @success,
			@failed, @created_parents, @started_at, @finished_at)`

	_, err := r.pool.Exec(ctx, q, pgx.NamedArgs{
		"id":              run.ID,
		"created_by":      run.CreatedBy,
		"ip_address":      run.IPAddress,
		"user_agent":      run.UserAgent,
		"total":           run.Total,
		"success":         run.Success,
		"failed":          run.Failed,
		"created_parents": run.CreatedParents,
		"started_at":      run.StartedAt,
		"finished_at":     run.FinishedAt,
	})
	if err != nil {
		return fmt.Errorf("store.PostgresRepo.RecordImport: %w", err)
	}
	return nil
}

// pgTx implements Tx over an open pgx transaction.
type pgTx struct {
	db db
}

func (t *pgTx) FindParentByEmail(ctx context.Context, email string) (Parent, error) {
	const q = `
		SELECT id, email, is_placeholder, created_at
		FROM parents
		WHERE email = @email`

	var p Parent
	err := t.db.QueryRow(ctx, q, pgx.NamedArgs{"email": email}).
		Scan(&p.ID, &p.Email, &p.Placeholder, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Parent{}, ErrNotFound
	}
	if err != nil {
		return Parent{}, fmt.Errorf("store.FindParentByEmail: %w", err)
	}
	return p, nil
}

func (t *pgTx) CreateParent(ctx context.Context, email, passwordHash string) (Parent, error) {
	const q = `
		INSERT INTO parents (id, email, password_hash, is_placeholder)
		VALUES (@id, @email, @password_hash, TRUE)
		RETURNING created_at`

	p := Parent{ID: uuid.New(), Email: email, Placeholder: true}
	err := t.db.QueryRow(ctx, q, pgx.NamedArgs{
		"id":            p.ID,
		"email":         email,
		"password_hash": passwordHash,
	}).Scan(&p.CreatedAt)
	if err != nil {
		return Parent{}, fmt.Errorf("store.CreateParent: %w", err)
	}
	return p, nil
}

func (t *pgTx) CreateStudent(ctx context.Context, s NewStudent) (Student, error) {
	const q = `
		INSERT INTO students (id, first_name, last_name, date_of_birth, parent_email, parent_id,
			gender, grade, school_name, school_district, prior_tamil_level, enrolling_grade,
			address, contacts, medical_notes, photo_consent, created_by)
		VALUES (@id, @first_name, @last_name, @date_of_birth, @parent_email, @parent_id,
			@gender, @grade, @school_name, @school_district, @prior_tamil_level, @enrolling_grade,
			@address, @contacts, @medical_notes, @photo_consent, @created_by)
		RETURNING parent_id, created_at`

	d := s.Data
	out := Student{ID: uuid.New(), Data: d, CreatedBy: s.CreatedBy}

	var (
		parentID  pgtype.UUID
		createdAt time.Time
	)
	err := t.db.QueryRow(ctx, q, pgx.NamedArgs{
		"id":                out.ID,
		"first_name":        d.FirstName,
		"last_name":         d.LastName,
		"date_of_birth":     d.DateOfBirth,
		"parent_email":      d.ParentEmail,
		"parent_id":         pgUUID(s.ParentID),
		"gender":            pgText(string(d.Gender)),
		"grade":             pgText(d.Grade),
		"school_name":       pgText(d.SchoolName),
		"school_district":   pgText(d.SchoolDistrict),
		"prior_tamil_level": pgText(d.PriorTamilLevel),
		"enrolling_grade":   pgText(d.EnrollingGrade),
		"address":           d.Address,
		"contacts":          d.Contacts,
		"medical_notes":     pgText(d.MedicalNotes),
		"photo_consent":     d.PhotoConsent,
		"created_by":        s.CreatedBy,
	}).Scan(&parentID, &createdAt)
	if err != nil {
		return Student{}, fmt.Errorf("store.CreateStudent: %w", err)
	}
	out.ParentID = nullUUID(parentID)
	out.CreatedAt = createdAt
	return out, nil
}
