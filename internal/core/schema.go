package core

import (
	"bytes"
	"encoding/csv"
	"regexp"
	"slices"
	"strings"
)

// Column names recognized in a student import file.
const (
	ColFirstName   = "firstName"
	ColLastName    = "lastName"
	ColDateOfBirth = "dateOfBirth"
	ColParentEmail = "parentEmail"
	ColGender      = "gender"

	ColGrade           = "grade"
	ColSchoolName      = "schoolName"
	ColSchoolDistrict  = "schoolDistrict"
	ColPriorTamilLevel = "priorTamilLevel"
	ColEnrollingGrade  = "enrollingGrade"

	ColStreet  = "street"
	ColCity    = "city"
	ColZipCode = "zipCode"

	ColMotherName     = "motherName"
	ColMotherEmail    = "motherEmail"
	ColMotherPhone    = "motherPhone"
	ColMotherEmployer = "motherEmployer"
	ColFatherName     = "fatherName"
	ColFatherEmail    = "fatherEmail"
	ColFatherPhone    = "fatherPhone"
	ColFatherEmployer = "fatherEmployer"

	ColMedicalNotes = "medicalNotes"
	ColPhotoConsent = "photoConsent"
)

// rowFields maps each recognized column to its slot on StudentRow.
var rowFields = map[string]func(*StudentRow) *Cell{
	ColFirstName:       func(r *StudentRow) *Cell { return &r.FirstName },
	ColLastName:        func(r *StudentRow) *Cell { return &r.LastName },
	ColDateOfBirth:     func(r *StudentRow) *Cell { return &r.DateOfBirth },
	ColParentEmail:     func(r *StudentRow) *Cell { return &r.ParentEmail },
	ColGender:          func(r *StudentRow) *Cell { return &r.Gender },
	ColGrade:           func(r *StudentRow) *Cell { return &r.Grade },
	ColSchoolName:      func(r *StudentRow) *Cell { return &r.SchoolName },
	ColSchoolDistrict:  func(r *StudentRow) *Cell { return &r.SchoolDistrict },
	ColPriorTamilLevel: func(r *StudentRow) *Cell { return &r.PriorTamilLevel },
	ColEnrollingGrade:  func(r *StudentRow) *Cell { return &r.EnrollingGrade },
	ColStreet:          func(r *StudentRow) *Cell { return &r.Street },
	ColCity:            func(r *StudentRow) *Cell { return &r.City },
	ColZipCode:         func(r *StudentRow) *Cell { return &r.ZipCode },
	ColMotherName:      func(r *StudentRow) *Cell { return &r.MotherName },
	ColMotherEmail:     func(r *StudentRow) *Cell { return &r.MotherEmail },
	ColMotherPhone:     func(r *StudentRow) *Cell { return &r.MotherPhone },
	ColMotherEmployer:  func(r *StudentRow) *Cell { return &r.MotherEmployer },
	ColFatherName:      func(r *StudentRow) *Cell { return &r.FatherName },
	ColFatherEmail:     func(r *StudentRow) *Cell { return &r.FatherEmail },
	ColFatherPhone:     func(r *StudentRow) *Cell { return &r.FatherPhone },
	ColFatherEmployer:  func(r *StudentRow) *Cell { return &r.FatherEmployer },
	ColMedicalNotes:    func(r *StudentRow) *Cell { return &r.MedicalNotes },
	ColPhotoConsent:    func(r *StudentRow) *Cell { return &r.PhotoConsent },
}

// ImportSchema describes which columns an import file must and may carry and
// how field values are recognized. A schema is a value: every With* method
// returns a modified copy, so one schema can be shared across goroutines.
type ImportSchema struct {
	required      []string
	optional      []string
	datePattern   *regexp.Regexp
	emailPattern  *regexp.Regexp
	genderAliases map[string]Gender
	consentValues map[string]bool
}

// DefaultStudentSchema returns the schema used by the bulk student import.
func DefaultStudentSchema() ImportSchema {
	return ImportSchema{
		required: []string{ColFirstName, ColLastName, ColDateOfBirth, ColParentEmail},
		optional: []string{
			ColGender,
			ColGrade, ColSchoolName, ColSchoolDistrict, ColPriorTamilLevel, ColEnrollingGrade,
			ColStreet, ColCity, ColZipCode,
			ColMotherName, ColMotherEmail, ColMotherPhone, ColMotherEmployer,
			ColFatherName, ColFatherEmail, ColFatherPhone, ColFatherEmployer,
			ColMedicalNotes, ColPhotoConsent,
		},
		// Format only: 2024-13-45 is accepted.
		datePattern:  regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		emailPattern: regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`),
		genderAliases: map[string]Gender{
			"boy":    GenderBoy,
			"m":      GenderBoy,
			"male":   GenderBoy,
			"girl":   GenderGirl,
			"f":      GenderGirl,
			"female": GenderGirl,
			"other":  GenderOther,
		},
		consentValues: map[string]bool{"yes": true, "true": true, "1": true, "y": true},
	}
}

// WithRequired returns a copy of s whose required column set is cols.
// Columns dropped from the required set stay recognized as optional.
func (s ImportSchema) WithRequired(cols ...string) ImportSchema {
	all := s.Columns()
	s.required = slices.Clone(cols)
	s.optional = nil
	for _, c := range all {
		if !slices.Contains(s.required, c) {
			s.optional = append(s.optional, c)
		}
	}
	return s
}

// WithEmailPattern returns a copy of s that checks emails against re.
func (s ImportSchema) WithEmailPattern(re *regexp.Regexp) ImportSchema {
	s.emailPattern = re
	return s
}

// RequiredColumns returns the required column names in template order.
func (s ImportSchema) RequiredColumns() []string {
	return slices.Clone(s.required)
}

// Columns returns every recognized column, required first.
func (s ImportSchema) Columns() []string {
	return append(slices.Clone(s.required), s.optional...)
}

// CheckColumns verifies every required column is present in headers.
// Matching is exact and case-sensitive on trimmed header names.
func (s ImportSchema) CheckColumns(headers []string) error {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[strings.TrimSpace(h)] = struct{}{}
	}

	var missing []string
	for _, col := range s.required {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &ImportError{
			Code:    CodeMissingColumns,
			Message: "Missing required columns: " + strings.Join(missing, ", "),
		}
	}
	return nil
}

// canonicalGender maps a raw gender value onto its canonical form.
func (s ImportSchema) canonicalGender(raw string) (Gender, bool) {
	g, ok := s.genderAliases[strings.ToLower(strings.TrimSpace(raw))]
	return g, ok
}

func (s ImportSchema) consent(raw string) bool {
	return s.consentValues[strings.ToLower(strings.TrimSpace(raw))]
}

// templateSample is the example row shipped with the downloadable template.
var templateSample = map[string]string{
	ColFirstName:       "Jane",
	ColLastName:        "Doe",
	ColDateOfBirth:     "2015-03-15",
	ColParentEmail:     "parent@example.com",
	ColGender:          "Girl",
	ColGrade:           "3",
	ColSchoolName:      "Lincoln Elementary",
	ColSchoolDistrict:  "Springfield USD",
	ColPriorTamilLevel: "Beginner",
	ColEnrollingGrade:  "Level 2",
	ColStreet:          "123 Main St",
	ColCity:            "Springfield",
	ColZipCode:         "12345",
	ColMotherName:      "Mary Doe",
	ColMotherEmail:     "mary@example.com",
	ColMotherPhone:     "555-0100",
	ColFatherName:      "John Doe",
	ColFatherPhone:     "555-0101",
	ColPhotoConsent:    "yes",
}

// Template renders a CSV file with every recognized column and one sample row.
func (s ImportSchema) Template() ([]byte, error) {
	cols := s.Columns()
	sample := make([]string, len(cols))
	for i, c := range cols {
		sample[i] = templateSample[c]
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll([][]string{cols, sample}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
