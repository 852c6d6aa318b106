package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = "firstName,lastName,dateOfBirth,parentEmail\n"

// fakeCommitter records calls and succeeds for every student unless failRows
// names the row.
type fakeCommitter struct {
	mu       sync.Mutex
	calls    int
	got      []ValidatedStudent
	opts     CommitOptions
	failRows map[int]bool
	err      error
	block    chan struct{}
}

func (f *fakeCommitter) BulkCreateStudents(ctx context.Context, students []ValidatedStudent, opts CommitOptions) (BulkImportResult, error) {
	f.mu.Lock()
	f.calls++
	f.got = students
	f.opts = opts
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return BulkImportResult{}, f.err
	}

	res := NewBulkImportResult(len(students))
	for _, s := range students {
		if f.failRows[s.Row] {
			res.Failed++
			res.Errors = append(res.Errors, RowError{Row: s.Row, Errors: []FieldError{{Field: "student", Value: s.FullName(), Message: "boom"}}})
			continue
		}
		res.Success++
		res.Students = append(res.Students, StudentSummary{ID: "id", Row: s.Row, FirstName: s.FirstName})
	}
	return res, nil
}

func (f *fakeCommitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestImport_DryRunExample(t *testing.T) {
	fc := &fakeCommitter{}
	im := NewImporter(DefaultStudentSchema(), fc)

	out, err := im.Import(context.Background(), ImportRequest{
		CSVData: testHeader + "Jane,Doe,2015-03-15,parent@example.com\n",
		DryRun:  true,
	})
	require.NoError(t, err)
	require.NotNil(t, out.DryRun)
	assert.Nil(t, out.Commit)

	assert.Equal(t, 1, out.DryRun.Total)
	assert.Equal(t, 1, out.DryRun.Valid)
	assert.Equal(t, 0, out.DryRun.Invalid)
	assert.NotNil(t, out.DryRun.Errors)
	assert.Empty(t, out.DryRun.Errors)
	assert.Equal(t, 0, fc.callCount())
}

func TestImport_DryRunWithErrorsNeverCommits(t *testing.T) {
	fc := &fakeCommitter{}
	im := NewImporter(DefaultStudentSchema(), fc)

	out, err := im.Import(context.Background(), ImportRequest{
		CSVData: testHeader + ",Doe,2015-03-15,bad-email\nJane,Doe,2015-03-15,p@example.com\n",
		DryRun:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.DryRun.Total)
	assert.Equal(t, 1, out.DryRun.Valid)
	assert.Equal(t, 1, out.DryRun.Invalid)
	require.Len(t, out.DryRun.Errors, 1)
	assert.Equal(t, 1, out.DryRun.Errors[0].Row)
	assert.Len(t, out.DryRun.Errors[0].Errors, 2)
	assert.Equal(t, 0, fc.callCount())
}

func TestImport_RequestErrors(t *testing.T) {
	im := NewImporter(DefaultStudentSchema(), &fakeCommitter{})

	tests := []struct {
		name string
		csv  string
		code ErrorCode
	}{
		{"blank csvData", "   ", CodeInvalidRequest},
		{"parse error", testHeader + "a,b\n", CodeCSVParse},
		{"no rows", testHeader, CodeEmptyCSV},
		{"missing column", "firstName,lastName,dateOfBirth\nJane,Doe,2015-03-15\n", CodeMissingColumns},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := im.Import(context.Background(), ImportRequest{CSVData: tt.csv, DryRun: true})
			requireImportError(t, err, tt.code)
			assert.Equal(t, tt.code, ErrorCodeOf(err))
		})
	}
}

func TestImport_MissingColumnMessage(t *testing.T) {
	im := NewImporter(DefaultStudentSchema(), nil)
	_, err := im.Import(context.Background(), ImportRequest{
		CSVData: "firstName,lastName,dateOfBirth\nJane,Doe,2015-03-15\n",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parentEmail")
}

func TestImport_AllOrNothing(t *testing.T) {
	fc := &fakeCommitter{}
	im := NewImporter(DefaultStudentSchema(), fc)

	_, err := im.Import(context.Background(), ImportRequest{
		CSVData: testHeader + "Jane,Doe,2015-03-15,p@example.com\nJohn,,2014-01-01,q@example.com\n",
	})

	var vf *ValidationFailure
	require.True(t, errors.As(err, &vf))
	assert.Equal(t, 2, vf.Total)
	assert.Equal(t, 1, vf.Valid)
	assert.Equal(t, 1, vf.Invalid)
	assert.Equal(t, 2, vf.Errors[0].Row)
	assert.Equal(t, CodeValidationErrors, ErrorCodeOf(err))
	assert.Equal(t, 0, fc.callCount())
}

func TestImport_Commit(t *testing.T) {
	fc := &fakeCommitter{}
	im := NewImporter(DefaultStudentSchema(), fc)

	out, err := im.Import(context.Background(), ImportRequest{
		CSVData:       testHeader + "Jane,Doe,2015-03-15,P@Example.com\nJohn,Roe,2014-01-01,q@example.com\n",
		CreateParents: true,
		CreatedBy:     "admin-1",
	})
	require.NoError(t, err)
	require.NotNil(t, out.Commit)
	assert.Nil(t, out.DryRun)

	assert.True(t, out.Commit.AllSucceeded)
	assert.Equal(t, 2, out.Commit.Success)
	assert.Equal(t, "Imported 2 of 2 students", out.Commit.Message)

	require.Len(t, fc.got, 2)
	assert.Equal(t, "p@example.com", fc.got[0].ParentEmail)
	assert.Equal(t, CommitOptions{CreateParents: true, CreatedBy: "admin-1"}, fc.opts)
}

func TestImport_PartialCommit(t *testing.T) {
	fc := &fakeCommitter{failRows: map[int]bool{2: true}}
	im := NewImporter(DefaultStudentSchema(), fc)

	out, err := im.Import(context.Background(), ImportRequest{
		CSVData: testHeader + "Jane,Doe,2015-03-15,p@example.com\nJohn,Roe,2014-01-01,q@example.com\n",
	})
	require.NoError(t, err)
	assert.False(t, out.Commit.AllSucceeded)
	assert.Equal(t, 1, out.Commit.Failed)
	assert.Equal(t, "Imported 1 of 2 students, 1 failed", out.Commit.Message)
}

func TestImport_CommitterError(t *testing.T) {
	fc := &fakeCommitter{err: errors.New("pool closed")}
	im := NewImporter(DefaultStudentSchema(), fc)

	_, err := im.Import(context.Background(), ImportRequest{
		CSVData: testHeader + "Jane,Doe,2015-03-15,p@example.com\n",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool closed")
	assert.Equal(t, CodeInternal, ErrorCodeOf(err))
}

func TestImport_TooManyImports(t *testing.T) {
	fc := &fakeCommitter{block: make(chan struct{})}
	limiter := NewImportLimiter(1, 20*time.Millisecond)
	im := NewImporter(DefaultStudentSchema(), fc, WithImportLimiter(limiter))
	req := ImportRequest{CSVData: testHeader + "Jane,Doe,2015-03-15,p@example.com\n"}

	done := make(chan error, 1)
	go func() {
		_, err := im.Import(context.Background(), req)
		done <- err
	}()
	require.Eventually(t, func() bool { return fc.callCount() == 1 }, time.Second, 5*time.Millisecond)

	_, err := im.Import(context.Background(), req)
	requireImportError(t, err, CodeTooManyImports)

	close(fc.block)
	require.NoError(t, <-done)
}

func TestImportSheet_FromRecords(t *testing.T) {
	im := NewImporter(DefaultStudentSchema(), nil, WithValidationWorkers(2))
	sheet, err := ParseRecords([][]string{
		{"firstName", "lastName", "dateOfBirth", "parentEmail"},
		{"Jane", "Doe", "2015-03-15", "p@example.com"},
		{"John", "Roe", "bad", "q@example.com"},
	})
	require.NoError(t, err)

	out, err := im.ImportSheet(context.Background(), sheet, ImportRequest{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, out.DryRun.Valid)
	assert.Equal(t, 1, out.DryRun.Invalid)
	assert.Equal(t, "1 of 2 rows valid, 1 row has errors", out.DryRun.Message)
}

func TestImport_NoCommitterConfigured(t *testing.T) {
	im := NewImporter(DefaultStudentSchema(), nil)
	_, err := im.Import(context.Background(), ImportRequest{
		CSVData: testHeader + "Jane,Doe,2015-03-15,p@example.com\n",
	})
	assert.Error(t, err)
}
