// Package features holds runtime feature flags read from configuration.
//
// Flags are on unless disabled. A disable entry is either a bare feature
// name, which turns it off for everyone, or "role:feature", which turns it
// off for one role only:
//
//	FEATURES_DISABLED="studentBulkImport,teacher:grades"
package features

import (
	"net/http"
	"strings"
)

// Feature names.
const (
	StudentBulkImport = "studentBulkImport"
)

// Error reports a disabled feature.
type Error struct {
	Feature string
	Role    string
}

func (e *Error) Error() string {
	return "Feature " + e.Feature + " is disabled"
}

// HTTPStatus returns 403.
func (e *Error) HTTPStatus() int { return http.StatusForbidden }

// ErrorCode returns FEATURE_DISABLED.
func (e *Error) ErrorCode() string { return "FEATURE_DISABLED" }

// Flags answers whether a feature is enabled for a role.
type Flags struct {
	global map[string]bool
	byRole map[string]map[string]bool
}

// Parse builds Flags from disable entries. Blank entries are ignored.
func Parse(disabled []string) *Flags {
	f := &Flags{
		global: make(map[string]bool),
		byRole: make(map[string]map[string]bool),
	}
	for _, entry := range disabled {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		role, feature, scoped := strings.Cut(entry, ":")
		if !scoped {
			f.global[entry] = true
			continue
		}
		role, feature = strings.TrimSpace(role), strings.TrimSpace(feature)
		if f.byRole[role] == nil {
			f.byRole[role] = make(map[string]bool)
		}
		f.byRole[role][feature] = true
	}
	return f
}

// Enabled reports whether feature is on for role.
func (f *Flags) Enabled(role, feature string) bool {
	if f == nil {
		return true
	}
	return !f.global[feature] && !f.byRole[role][feature]
}

// RequireFeature returns *Error when feature is disabled for role.
func (f *Flags) RequireFeature(role, feature string) error {
	if f.Enabled(role, feature) {
		return nil
	}
	return &Error{Feature: feature, Role: role}
}
