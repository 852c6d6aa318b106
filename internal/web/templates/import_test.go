package templates

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/roster/internal/core"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

var testRows = []core.RowError{
	{Row: 2, Errors: []core.FieldError{
		{Field: "dateOfBirth", Value: "bad", Message: "Date of birth must be in YYYY-MM-DD format"},
		{Field: "parentEmail", Value: "<x>", Message: "Invalid parent email format"},
	}},
}

func TestErrorAlert(t *testing.T) {
	html := render(t, ErrorAlert("VALIDATION_FAILED", `1 row has "errors"`, testRows))

	assert.Contains(t, html, `<div class="alert alert-error" role="alert" data-code="VALIDATION_FAILED">`)
	assert.Contains(t, html, `<p class="alert-message">1 row has &#34;errors&#34;</p>`)
	assert.Contains(t, html, `<p class="alert-code">Code: VALIDATION_FAILED</p>`)
	assert.Contains(t, html, `<tr><td>2</td><td>dateOfBirth</td><td>bad</td><td>Date of birth must be in YYYY-MM-DD format</td></tr>`)
	assert.Contains(t, html, `<td>&lt;x&gt;</td>`)
}

func TestErrorAlert_NoRows(t *testing.T) {
	html := render(t, ErrorAlert("EMPTY_CSV", "CSV has no data rows", nil))

	assert.Equal(t, `<div class="alert alert-error" role="alert" data-code="EMPTY_CSV">`+
		`<p class="alert-message">CSV has no data rows</p>`+
		`<p class="alert-code">Code: EMPTY_CSV</p></div>`, html)
}

func TestDryRunSummary(t *testing.T) {
	tests := []struct {
		name  string
		rep   *core.DryRunReport
		class string
	}{
		{"all valid", &core.DryRunReport{Total: 2, Valid: 2, Message: "All rows valid"}, "alert alert-success"},
		{"some invalid", &core.DryRunReport{Total: 3, Valid: 2, Invalid: 1, Errors: testRows, Message: "1 invalid"}, "alert alert-warning"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := render(t, DryRunSummary(tt.rep))

			assert.Contains(t, html, `<div class="`+tt.class+`" data-dry-run="true">`)
			assert.Contains(t, html, `<dt>Total</dt><dd>`)
			assert.Contains(t, html, `<dt>Invalid</dt>`)
			assert.Equal(t, tt.rep.Invalid > 0, bytes.Contains([]byte(html), []byte(`class="row-errors"`)))
		})
	}
}

func TestCommitSummary(t *testing.T) {
	rep := &core.CommitReport{
		BulkImportResult: core.BulkImportResult{
			Total:          2,
			Success:        1,
			Failed:         1,
			CreatedParents: []string{"p&q@example.com"},
			Warnings:       []string{"invitation not sent"},
			Errors:         testRows,
		},
		Message: "1 of 2 imported",
	}

	html := render(t, CommitSummary(rep))

	assert.Contains(t, html, `<div class="alert alert-warning">`)
	assert.Contains(t, html, `<dt>Imported</dt><dd>1</dd><dt>Failed</dt><dd>1</dd>`)
	assert.Contains(t, html, `<ul class="created-parents"><li>p&amp;q@example.com</li></ul>`)
	assert.Contains(t, html, `<ul class="warnings"><li>invitation not sent</li></ul>`)
	assert.Contains(t, html, `class="row-errors"`)
}

func TestCommitSummary_AllSucceeded(t *testing.T) {
	rep := &core.CommitReport{
		BulkImportResult: core.BulkImportResult{Total: 1, Success: 1},
		AllSucceeded:     true,
		Message:          "1 imported",
	}

	html := render(t, CommitSummary(rep))

	assert.Contains(t, html, `<div class="alert alert-success">`)
	assert.NotContains(t, html, "created-parents")
	assert.NotContains(t, html, "warnings")
	assert.NotContains(t, html, "row-errors")
}
