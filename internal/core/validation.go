package core

// validation.go turns parsed StudentRows into ValidatedStudents.
//
// Every rule runs for every row so a single RowError lists all of the row's
// problems at once. Rows are independent, which lets ValidateAll spread them
// over a bounded worker pool while keeping results in source order.

import (
	"context"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Field error messages shown to the person fixing the CSV.
const (
	msgFirstNameRequired = "First name is required"
	msgLastNameRequired  = "Last name is required"
	msgDOBRequired       = "Date of birth is required"
	msgDOBFormat         = "Date of birth must be in YYYY-MM-DD format"
	msgEmailRequired     = "Parent email is required"
	msgEmailFormat       = "Invalid email format"
	msgGenderInvalid     = "Gender must be Boy, Girl, Other, M, F, Male, or Female"
)

// RowValidator validates student rows against an ImportSchema.
type RowValidator struct {
	schema  ImportSchema
	workers int
}

// NewRowValidator creates a validator. workers bounds ValidateAll's
// parallelism; values below 1 mean GOMAXPROCS.
func NewRowValidator(schema ImportSchema, workers int) *RowValidator {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &RowValidator{schema: schema, workers: workers}
}

// ValidateRow checks one row. index is the 0-based position among data rows;
// the reported row number is index+1. Exactly one of the results is set: a
// ValidatedStudent with a nil error, or a *RowError.
func (v *RowValidator) ValidateRow(row StudentRow, index int) (ValidatedStudent, error) {
	s, rowErr := v.validate(row, index)
	if rowErr != nil {
		return ValidatedStudent{}, rowErr
	}
	return s, nil
}

func (v *RowValidator) validate(row StudentRow, index int) (ValidatedStudent, *RowError) {
	var errs []FieldError
	fail := func(field string, c Cell, msg string) {
		errs = append(errs, FieldError{Field: field, Value: c.Value, Message: msg})
	}

	if row.FirstName.Blank() {
		fail(ColFirstName, row.FirstName, msgFirstNameRequired)
	}
	if row.LastName.Blank() {
		fail(ColLastName, row.LastName, msgLastNameRequired)
	}

	dob := row.DateOfBirth.Trimmed()
	switch {
	case dob == "":
		fail(ColDateOfBirth, row.DateOfBirth, msgDOBRequired)
	case !v.schema.datePattern.MatchString(dob):
		fail(ColDateOfBirth, row.DateOfBirth, msgDOBFormat)
	}

	email := row.ParentEmail.Trimmed()
	switch {
	case email == "":
		fail(ColParentEmail, row.ParentEmail, msgEmailRequired)
	case !v.schema.emailPattern.MatchString(email):
		fail(ColParentEmail, row.ParentEmail, msgEmailFormat)
	}

	var gender Gender
	if !row.Gender.Blank() {
		g, ok := v.schema.canonicalGender(row.Gender.Value)
		if !ok {
			fail(ColGender, row.Gender, msgGenderInvalid)
		}
		gender = g
	}

	if len(errs) > 0 {
		return ValidatedStudent{}, &RowError{Row: index + 1, Errors: errs}
	}

	return ValidatedStudent{
		Row:             index + 1,
		FirstName:       row.FirstName.Trimmed(),
		LastName:        row.LastName.Trimmed(),
		DateOfBirth:     dob,
		ParentEmail:     strings.ToLower(email),
		Gender:          gender,
		Grade:           row.Grade.Trimmed(),
		SchoolName:      row.SchoolName.Trimmed(),
		SchoolDistrict:  row.SchoolDistrict.Trimmed(),
		PriorTamilLevel: row.PriorTamilLevel.Trimmed(),
		EnrollingGrade:  row.EnrollingGrade.Trimmed(),
		Address:         buildAddress(row),
		Contacts:        buildContacts(row),
		MedicalNotes:    row.MedicalNotes.Trimmed(),
		PhotoConsent:    v.schema.consent(row.PhotoConsent.Value),
	}, nil
}

func buildAddress(row StudentRow) *Address {
	if row.Street.Blank() && row.City.Blank() && row.ZipCode.Blank() {
		return nil
	}
	return &Address{
		Street:  row.Street.Trimmed(),
		City:    row.City.Trimmed(),
		ZipCode: row.ZipCode.Trimmed(),
	}
}

// buildContact returns nil unless name, email or phone is given. Employer
// alone does not create a contact.
func buildContact(name, email, phone, employer Cell) *ParentContact {
	if name.Blank() && email.Blank() && phone.Blank() {
		return nil
	}
	return &ParentContact{
		Name:     name.Trimmed(),
		Email:    email.Trimmed(),
		Phone:    phone.Trimmed(),
		Employer: employer.Trimmed(),
	}
}

func buildContacts(row StudentRow) *Contacts {
	mother := buildContact(row.MotherName, row.MotherEmail, row.MotherPhone, row.MotherEmployer)
	father := buildContact(row.FatherName, row.FatherEmail, row.FatherPhone, row.FatherEmployer)
	if mother == nil && father == nil {
		return nil
	}
	return &Contacts{Mother: mother, Father: father}
}

// rowOutcome is the per-slot result written by ValidateAll workers.
type rowOutcome struct {
	student ValidatedStudent
	err     *RowError
}

// ValidateAll validates every row, never stopping at the first bad one, and
// partitions the results into students and row errors. Both slices keep
// source order. An error is returned only when ctx is cancelled.
func (v *RowValidator) ValidateAll(ctx context.Context, rows []StudentRow) ([]ValidatedStudent, []RowError, error) {
	outcomes := make([]rowOutcome, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	for i := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i].student, outcomes[i].err = v.validate(rows[i], i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	students := make([]ValidatedStudent, 0, len(rows))
	rowErrors := []RowError{}
	for _, o := range outcomes {
		if o.err != nil {
			rowErrors = append(rowErrors, *o.err)
			continue
		}
		students = append(students, o.student)
	}
	return students, rowErrors, nil
}
