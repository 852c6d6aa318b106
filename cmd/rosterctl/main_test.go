package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/roster/internal/auth"
	"github.com/JonMunkholm/roster/internal/core"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValidateCSV(t *testing.T) {
	path := writeFile(t, "students.csv",
		"firstName,lastName,dateOfBirth,parentEmail\nJane,Doe,2015-03-15,parent@example.com\n")

	out, err := run(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "All 1 row are valid and ready to import")
}

func TestValidateCSVInvalidRows(t *testing.T) {
	path := writeFile(t, "students.csv",
		"firstName,lastName,dateOfBirth,parentEmail\nJane,Doe,2015-03-15,parent@example.com\n,Doe,2015-03-15,bad\n")

	out, err := run(t, "validate", path)
	require.ErrorIs(t, err, errRowsInvalid)
	assert.Contains(t, out, "row 2: firstName")
	assert.Contains(t, out, "Invalid email format")
}

func TestValidateJSON(t *testing.T) {
	path := writeFile(t, "students.csv",
		"firstName,lastName,dateOfBirth,parentEmail\nJane,Doe,03/15/2015,parent@example.com\n")

	out, err := run(t, "validate", "--json", path)
	require.ErrorIs(t, err, errRowsInvalid)

	var report core.DryRunReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Invalid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "dateOfBirth", report.Errors[0].Errors[0].Field)
}

func TestValidateParseError(t *testing.T) {
	path := writeFile(t, "students.csv", "firstName,lastName\nJane,Doe\n")

	_, err := run(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, core.CodeMissingColumns, core.ErrorCodeOf(err))
}

func TestValidateXLSX(t *testing.T) {
	book := excelize.NewFile()
	t.Cleanup(func() { _ = book.Close() })

	rows := [][]any{
		{"firstName", "lastName", "dateOfBirth", "parentEmail", "gender"},
		{"Jane", "Doe", "2015-03-15", "parent@example.com", "F"},
		{"John", "Doe", "2013-01-02", "parent@example.com"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "students.xlsx")
	require.NoError(t, book.SaveAs(path))

	out, err := run(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "All 2 rows are valid")

	_, err = run(t, "validate", "--sheet", "Missing", path)
	require.Error(t, err)
}

func TestTemplate(t *testing.T) {
	out, err := run(t, "template")
	require.NoError(t, err)

	header, _, _ := strings.Cut(out, "\n")
	assert.Equal(t, strings.Join(core.DefaultStudentSchema().Columns(), ","), header)

	path := filepath.Join(t.TempDir(), "template.csv")
	_, err = run(t, "template", "-o", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}

func TestToken(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("JWT_ISSUER", "")

	out, err := run(t, "token", "--sub", "ops-1", "--role", auth.RoleAdmin, "--email", "ops@example.org", "--ttl", "5m")
	require.NoError(t, err)

	guard := auth.NewGuard(secret, "roster", time.Hour)
	p, err := guard.RequireAuth("Bearer "+strings.TrimSpace(out), auth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "ops-1", p.Subject)
	assert.Equal(t, "ops@example.org", p.Email)
}

func TestTokenRejectsBadInput(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	_, err := run(t, "token", "--sub", "ops-1")
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	_, err = run(t, "token", "--sub", "ops-1", "--role", "janitor")
	require.Error(t, err)

	_, err = run(t, "token")
	require.Error(t, err, "--sub is required")
}

func TestMigrateNeedsDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")

	_, err := run(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
