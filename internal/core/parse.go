package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxReportedParseErrors caps how many parser problems end up in the
// CSV_PARSE_ERROR message.
const maxReportedParseErrors = 5

// Sheet is a parsed import file: trimmed header names plus one StudentRow per
// non-blank data line, in source order.
type Sheet struct {
	Headers []string
	Rows    []StudentRow
}

// sheetBuilder accumulates rows for ParseCSV and ParseRecords.
type sheetBuilder struct {
	sheet    Sheet
	index    map[string]int // recognized column -> position
	dataRows int            // non-blank data records seen, including bad ones
	problems []string
}

func (b *sheetBuilder) hasHeader() bool {
	return b.index != nil
}

func (b *sheetBuilder) setHeader(record []string) {
	b.index = make(map[string]int, len(record))
	b.sheet.Headers = make([]string, len(record))
	for i, h := range record {
		h = strings.TrimSpace(h)
		b.sheet.Headers[i] = h
		if _, known := rowFields[h]; !known {
			continue
		}
		if _, dup := b.index[h]; !dup {
			b.index[h] = i
		}
	}
}

func (b *sheetBuilder) addRow(record []string) {
	var row StudentRow
	for col, pos := range b.index {
		cell := rowFields[col](&row)
		cell.Present = true
		if pos < len(record) {
			cell.Value = record[pos]
		}
	}
	b.sheet.Rows = append(b.sheet.Rows, row)
}

func (b *sheetBuilder) problem(msg string) {
	if b.hasHeader() {
		b.problems = append(b.problems, fmt.Sprintf("Row %d: %s", b.dataRows, msg))
		return
	}
	b.problems = append(b.problems, "Header: "+msg)
}

func (b *sheetBuilder) finish() (*Sheet, error) {
	if len(b.problems) > 0 {
		reported := b.problems
		if len(reported) > maxReportedParseErrors {
			reported = reported[:maxReportedParseErrors]
		}
		return nil, &ImportError{
			Code:    CodeCSVParse,
			Message: strings.Join(reported, "; "),
		}
	}
	if len(b.sheet.Rows) == 0 {
		return nil, &ImportError{
			Code:    CodeEmptyCSV,
			Message: "CSV file contains no data rows",
		}
	}
	return &b.sheet, nil
}

// ParseCSV reads a CSV document whose first non-blank line is the header.
//
// Fully blank lines are skipped. A record with a different field count than
// the header, or with a quoting error, is a parse problem; reading continues
// so every problem is known, then the call fails with CSV_PARSE_ERROR. A file
// with no data rows fails with EMPTY_CSV.
func ParseCSV(r io.Reader) (*Sheet, error) {
	cr := csv.NewReader(WrapInput(r))
	cr.FieldsPerRecord = -1

	var b sheetBuilder
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, fmt.Errorf("read csv: %w", err)
			}
			if b.hasHeader() {
				b.dataRows++
			}
			b.problem(pe.Err.Error())
			if !b.hasHeader() {
				// Without a header nothing after this line can be keyed.
				break
			}
			continue
		}

		if isEmptyRow(record) {
			continue
		}
		if !b.hasHeader() {
			b.setHeader(record)
			continue
		}

		b.dataRows++
		want := len(b.sheet.Headers)
		switch got := len(record); {
		case got < want:
			b.problem(fmt.Sprintf("Too few fields: expected %d fields but parsed %d", want, got))
		case got > want:
			b.problem(fmt.Sprintf("Too many fields: expected %d fields but parsed %d", want, got))
		default:
			b.addRow(record)
		}
	}
	return b.finish()
}

// ParseRecords builds a Sheet from records that were already split into
// cells, such as spreadsheet rows. Spreadsheets drop trailing empty cells, so
// short rows are padded instead of rejected.
func ParseRecords(records [][]string) (*Sheet, error) {
	var b sheetBuilder
	for _, record := range records {
		if isEmptyRow(record) {
			continue
		}
		if !b.hasHeader() {
			b.setHeader(record)
			continue
		}
		b.dataRows++
		b.addRow(record)
	}
	return b.finish()
}
