package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/roster/internal/logging"
)

// StudentCommitter persists validated students. Implementations must
// isolate per-student failures and return only once every student's outcome
// is known. A returned error means the batch as a whole could not run.
type StudentCommitter interface {
	BulkCreateStudents(ctx context.Context, students []ValidatedStudent, opts CommitOptions) (BulkImportResult, error)
}

// Importer runs the bulk student import:
// parse, check columns, validate rows, then report or commit.
type Importer struct {
	schema    ImportSchema
	validator *RowValidator
	committer StudentCommitter
	limiter   *ImportLimiter
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithValidationWorkers bounds parallel row validation.
func WithValidationWorkers(n int) ImporterOption {
	return func(im *Importer) {
		im.validator = NewRowValidator(im.schema, n)
	}
}

// WithImportLimiter shares a limiter across importers.
func WithImportLimiter(l *ImportLimiter) ImporterOption {
	return func(im *Importer) {
		im.limiter = l
	}
}

// NewImporter creates an Importer. committer may be nil for offline use, in
// which case only dry runs succeed.
func NewImporter(schema ImportSchema, committer StudentCommitter, opts ...ImporterOption) *Importer {
	im := &Importer{
		schema:    schema,
		validator: NewRowValidator(schema, 0),
		committer: committer,
	}
	for _, opt := range opts {
		opt(im)
	}
	if im.limiter == nil {
		im.limiter = NewImportLimiter(DefaultMaxConcurrentImports, DefaultMaxImportWait)
	}
	return im
}

// Schema returns the schema the importer validates against.
func (im *Importer) Schema() ImportSchema {
	return im.schema
}

// Import runs a full import of req.CSVData.
//
// Failures before the commit step come back as *ImportError or, when rows
// are invalid and DryRun is false, as *ValidationFailure. Nothing is
// committed in either case.
func (im *Importer) Import(ctx context.Context, req ImportRequest) (Outcome, error) {
	if strings.TrimSpace(req.CSVData) == "" {
		return Outcome{}, invalidRequest("csvData is required")
	}

	sheet, err := ParseCSV(strings.NewReader(req.CSVData))
	if err != nil {
		return Outcome{}, err
	}

	return im.ImportSheet(ctx, sheet, req)
}

// ImportSheet runs the import on an already parsed sheet. req.CSVData is
// ignored.
func (im *Importer) ImportSheet(ctx context.Context, sheet *Sheet, req ImportRequest) (Outcome, error) {
	log := logging.WithFields(ctx, "dry_run", req.DryRun, "rows", len(sheet.Rows))

	if len(sheet.Rows) == 0 {
		return Outcome{}, &ImportError{Code: CodeEmptyCSV, Message: "CSV file contains no data rows"}
	}
	if err := im.schema.CheckColumns(sheet.Headers); err != nil {
		return Outcome{}, err
	}

	students, rowErrors, err := im.validator.ValidateAll(ctx, sheet.Rows)
	if err != nil {
		return Outcome{}, fmt.Errorf("validate rows: %w", err)
	}

	total := len(sheet.Rows)
	if req.DryRun {
		log.Info("import dry run complete", "valid", len(students), "invalid", len(rowErrors))
		return Outcome{DryRun: &DryRunReport{
			Total:   total,
			Valid:   len(students),
			Invalid: len(rowErrors),
			Errors:  rowErrors,
			Message: dryRunMessage(total, len(students), len(rowErrors)),
		}}, nil
	}

	if len(rowErrors) > 0 {
		log.Info("import rejected", "invalid", len(rowErrors))
		return Outcome{}, &ValidationFailure{
			Total:   total,
			Valid:   len(students),
			Invalid: len(rowErrors),
			Errors:  rowErrors,
		}
	}

	if im.committer == nil {
		return Outcome{}, errors.New("import: no committer configured")
	}

	if err := im.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, ErrTooManyImports) {
			return Outcome{}, &ImportError{Code: CodeTooManyImports, Message: err.Error(), Err: err}
		}
		return Outcome{}, fmt.Errorf("wait for import slot: %w", err)
	}
	defer im.limiter.Release()

	start := time.Now()
	result, err := im.committer.BulkCreateStudents(ctx, students, CommitOptions{
		CreateParents: req.CreateParents,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("commit students: %w", err)
	}

	log.Info("import committed",
		"success", result.Success,
		"failed", result.Failed,
		"created_parents", len(result.CreatedParents),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return Outcome{Commit: &CommitReport{
		BulkImportResult: result,
		AllSucceeded:     result.Failed == 0,
		Message:          commitMessage(result),
	}}, nil
}

func dryRunMessage(total, valid, invalid int) string {
	if invalid == 0 {
		return fmt.Sprintf("All %d %s are valid and ready to import", total, plural(total, "row"))
	}
	return fmt.Sprintf("%d of %d %s valid, %d %s errors",
		valid, total, plural(total, "row"), invalid, plural(invalid, "row has", "rows have"))
}

func commitMessage(r BulkImportResult) string {
	msg := fmt.Sprintf("Imported %d of %d %s", r.Success, r.Total, plural(r.Total, "student"))
	if r.Failed > 0 {
		msg += fmt.Sprintf(", %d failed", r.Failed)
	}
	if n := len(r.CreatedParents); n > 0 {
		msg += fmt.Sprintf(", created %d parent %s", n, plural(n, "account"))
	}
	return msg
}
