package core

import "strconv"

// Cell is one raw CSV value for a known column.
// Present is false when the column does not exist in the file at all, which
// lets callers tell an absent column apart from a column left blank.
type Cell struct {
	Value   string
	Present bool
}

// Blank reports whether the cell is absent or empty after trimming.
func (c Cell) Blank() bool {
	return cleanCell(c.Value) == ""
}

// Trimmed returns the trimmed value ("" when absent).
func (c Cell) Trimmed() string {
	return cleanCell(c.Value)
}

// StudentRow is one parsed CSV data line keyed by the recognized columns.
// Unknown columns are dropped during parsing.
type StudentRow struct {
	FirstName   Cell
	LastName    Cell
	DateOfBirth Cell
	ParentEmail Cell
	Gender      Cell

	Grade           Cell
	SchoolName      Cell
	SchoolDistrict  Cell
	PriorTamilLevel Cell
	EnrollingGrade  Cell

	Street  Cell
	City    Cell
	ZipCode Cell

	MotherName     Cell
	MotherEmail    Cell
	MotherPhone    Cell
	MotherEmployer Cell
	FatherName     Cell
	FatherEmail    Cell
	FatherPhone    Cell
	FatherEmployer Cell

	MedicalNotes Cell
	PhotoConsent Cell
}

// Gender is the canonical gender value stored on a student.
type Gender string

const (
	GenderBoy   Gender = "Boy"
	GenderGirl  Gender = "Girl"
	GenderOther Gender = "Other"
)

// Address is included on a student only when at least one part was given.
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
}

// ParentContact holds the contact details of one parent.
type ParentContact struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Employer string `json:"employer,omitempty"`
}

// Contacts groups the optional mother and father contacts.
type Contacts struct {
	Mother *ParentContact `json:"mother,omitempty"`
	Father *ParentContact `json:"father,omitempty"`
}

// ValidatedStudent is the normalized form of a row that passed every
// required-field check. It is only ever built by RowValidator.
type ValidatedStudent struct {
	// Row is the 1-indexed CSV data row the student came from.
	Row int `json:"-"`

	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
	ParentEmail string `json:"parentEmail"`
	Gender      Gender `json:"gender,omitempty"`

	Grade           string `json:"grade,omitempty"`
	SchoolName      string `json:"schoolName,omitempty"`
	SchoolDistrict  string `json:"schoolDistrict,omitempty"`
	PriorTamilLevel string `json:"priorTamilLevel,omitempty"`
	EnrollingGrade  string `json:"enrollingGrade,omitempty"`

	Address  *Address  `json:"address,omitempty"`
	Contacts *Contacts `json:"contacts,omitempty"`

	MedicalNotes string `json:"medicalNotes,omitempty"`
	PhotoConsent bool   `json:"photoConsent"`
}

// FullName returns "First Last".
func (s ValidatedStudent) FullName() string {
	return s.FirstName + " " + s.LastName
}

// FieldError describes one invalid field on one row.
type FieldError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// RowError bundles every field problem found on a single CSV row.
// Row is 1-indexed and matches the data line number (header excluded).
type RowError struct {
	Row    int          `json:"row"`
	Errors []FieldError `json:"errors"`
}

func (e *RowError) Error() string {
	if len(e.Errors) == 0 {
		return "row " + strconv.Itoa(e.Row) + ": invalid"
	}
	return "row " + strconv.Itoa(e.Row) + ": " + e.Errors[0].Field + ": " + e.Errors[0].Message
}

// StudentSummary is returned for every student created during a commit.
type StudentSummary struct {
	ID          string `json:"id"`
	Row         int    `json:"row"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	ParentEmail string `json:"parentEmail"`
	ParentID    string `json:"parentId,omitempty"`
}

// BulkImportResult is the aggregate outcome of committing validated students.
// Success, Failed and Total are counts.
type BulkImportResult struct {
	Success        int              `json:"success"`
	Failed         int              `json:"failed"`
	Total          int              `json:"total"`
	Students       []StudentSummary `json:"students"`
	Errors         []RowError       `json:"errors"`
	Warnings       []string         `json:"warnings"`
	CreatedParents []string         `json:"createdParents"`
}

// NewBulkImportResult returns a result with non-nil slices so it encodes as
// empty JSON arrays.
func NewBulkImportResult(total int) BulkImportResult {
	return BulkImportResult{
		Total:          total,
		Students:       []StudentSummary{},
		Errors:         []RowError{},
		Warnings:       []string{},
		CreatedParents: []string{},
	}
}

// CommitOptions controls how validated students are persisted.
type CommitOptions struct {
	CreateParents bool
	// CreatedBy is the subject of the principal running the import.
	CreatedBy string
}

// ImportRequest is one bulk import call.
type ImportRequest struct {
	CSVData       string
	DryRun        bool
	CreateParents bool
	CreatedBy     string
}

// DryRunReport is returned when an import runs with DryRun set.
type DryRunReport struct {
	Total   int        `json:"total"`
	Valid   int        `json:"valid"`
	Invalid int        `json:"invalid"`
	Errors  []RowError `json:"errors"`
	Message string     `json:"message"`
}

// CommitReport is returned after validated students were handed to the committer.
type CommitReport struct {
	BulkImportResult
	AllSucceeded bool   `json:"allSucceeded"`
	Message      string `json:"message"`
}

// Outcome is the terminal state of a successful Import call.
// Exactly one of DryRun and Commit is set.
type Outcome struct {
	DryRun *DryRunReport
	Commit *CommitReport
}
