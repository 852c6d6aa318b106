package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckColumns(t *testing.T) {
	schema := DefaultStudentSchema()

	tests := []struct {
		name        string
		headers     []string
		wantErr     bool
		wantMessage string
	}{
		{
			name:    "all required present",
			headers: []string{"firstName", "lastName", "dateOfBirth", "parentEmail"},
		},
		{
			name:    "extra and optional columns ignored",
			headers: []string{"nickname", "firstName", "gender", "lastName", "dateOfBirth", "parentEmail"},
		},
		{
			name:    "headers are trimmed",
			headers: []string{" firstName ", "lastName", "dateOfBirth", "parentEmail\t"},
		},
		{
			name:        "one missing",
			headers:     []string{"firstName", "lastName", "dateOfBirth"},
			wantErr:     true,
			wantMessage: "Missing required columns: parentEmail",
		},
		{
			name:        "several missing keep schema order",
			headers:     []string{"parentEmail", "lastName"},
			wantErr:     true,
			wantMessage: "Missing required columns: firstName, dateOfBirth",
		},
		{
			name:        "match is case sensitive",
			headers:     []string{"FirstName", "lastName", "dateOfBirth", "parentEmail"},
			wantErr:     true,
			wantMessage: "Missing required columns: firstName",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.CheckColumns(tt.headers)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var ie *ImportError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, CodeMissingColumns, ie.Code)
			assert.Equal(t, tt.wantMessage, ie.Message)
		})
	}
}

func TestImportSchema_WithRequired(t *testing.T) {
	base := DefaultStudentSchema()
	custom := base.WithRequired("firstName", "lastName")

	assert.Equal(t, []string{"firstName", "lastName"}, custom.RequiredColumns())
	assert.Len(t, custom.Columns(), len(base.Columns()))
	assert.NoError(t, custom.CheckColumns([]string{"firstName", "lastName"}))

	// The original is untouched.
	assert.Len(t, base.RequiredColumns(), 4)
	assert.Error(t, base.CheckColumns([]string{"firstName", "lastName"}))
}

func TestImportSchema_WithEmailPattern(t *testing.T) {
	schoolOnly := DefaultStudentSchema().WithEmailPattern(regexp.MustCompile(`@school\.org$`))
	v := NewRowValidator(schoolOnly, 1)

	_, err := v.ValidateRow(validRow("parent@example.com"), 0)
	assert.Error(t, err)
	_, err = v.ValidateRow(validRow("parent@school.org"), 0)
	assert.NoError(t, err)
}

func TestCanonicalGender(t *testing.T) {
	schema := DefaultStudentSchema()
	tests := map[string]Gender{
		"BOY": GenderBoy, "m": GenderBoy, "Male": GenderBoy,
		"girl": GenderGirl, "F": GenderGirl, " female ": GenderGirl,
		"Other": GenderOther,
	}
	for raw, want := range tests {
		got, ok := schema.canonicalGender(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := schema.canonicalGender("unknown")
	assert.False(t, ok)
}

func TestTemplate(t *testing.T) {
	schema := DefaultStudentSchema()
	data, err := schema.Template()
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, schema.Columns(), records[0])
	assert.Equal(t, "Jane", records[1][0])

	// The template must itself import cleanly.
	sheet, err := ParseCSV(bytes.NewReader(data))
	require.NoError(t, err)
	require.NoError(t, schema.CheckColumns(sheet.Headers))
	_, err = NewRowValidator(schema, 1).ValidateRow(sheet.Rows[0], 0)
	assert.NoError(t, err)
}

func validRow(email string) StudentRow {
	return StudentRow{
		FirstName:   Cell{Value: "Jane", Present: true},
		LastName:    Cell{Value: "Doe", Present: true},
		DateOfBirth: Cell{Value: "2015-03-15", Present: true},
		ParentEmail: Cell{Value: email, Present: true},
	}
}
