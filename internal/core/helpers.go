package core

import "strings"

// cleanCell trims surrounding whitespace from a raw CSV value.
// Values are otherwise kept verbatim.
func cleanCell(s string) string {
	return strings.TrimSpace(s)
}

// isEmptyRow reports whether every cell of a record is blank.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// plural picks the singular form when n is 1. With one form it appends "s";
// with two forms the second is the plural.
func plural(n int, forms ...string) string {
	if n == 1 {
		return forms[0]
	}
	if len(forms) > 1 {
		return forms[1]
	}
	return forms[0] + "s"
}
