package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/logging"
	mw "github.com/JonMunkholm/roster/internal/web/middleware"
	"github.com/JonMunkholm/roster/internal/web/templates"
)

// bulkImportRequest is the body of POST /v1/admin/students/bulk-import.
type bulkImportRequest struct {
	CSVData       string `json:"csvData" validate:"required"`
	DryRun        bool   `json:"dryRun"`
	CreateParents bool   `json:"createParents"`
}

// dryRunBody is the 200 response of a dry run.
type dryRunBody struct {
	Success bool `json:"success"`
	DryRun  bool `json:"dryRun"`
	*core.DryRunReport
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeBulkImport reads and validates the request body. An oversized body
// returns the *http.MaxBytesError unchanged.
func decodeBulkImport(body io.Reader) (bulkImportRequest, error) {
	var req bulkImportRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, err
		}
		return req, &core.ImportError{Code: core.CodeInvalidRequest, Message: "Request body must be valid JSON", Err: err}
	}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			msg := fmt.Sprintf("%s is invalid", fe.Field())
			if fe.Tag() == "required" {
				msg = fmt.Sprintf("%s is required", fe.Field())
			}
			return req, &core.ImportError{Code: core.CodeInvalidRequest, Message: msg, Err: err}
		}
		return req, fmt.Errorf("validate request: %w", err)
	}
	return req, nil
}

// handleBulkImport validates a CSV of students and, unless it is a dry run,
// creates them. Authentication and the feature flag are checked by
// middleware before this runs.
func (s *Server) handleBulkImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxBodyBytes)

	req, err := decodeBulkImport(r.Body)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	principal, _ := mw.PrincipalFromContext(r.Context())
	ctx := withRequestMetadata(r.Context(), r)

	logging.FromContext(ctx).Info("bulk import received",
		"dry_run", req.DryRun,
		"create_parents", req.CreateParents,
		"bytes", len(req.CSVData),
		"principal", principal.Subject,
	)

	outcome, err := s.importer.Import(ctx, core.ImportRequest{
		CSVData:       req.CSVData,
		DryRun:        req.DryRun,
		CreateParents: req.CreateParents,
		CreatedBy:     principal.Subject,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	switch {
	case outcome.DryRun != nil:
		if isHTMX(r) {
			renderFragment(w, r, http.StatusOK, templates.DryRunSummary(outcome.DryRun))
			return
		}
		writeJSON(w, http.StatusOK, dryRunBody{Success: true, DryRun: true, DryRunReport: outcome.DryRun})

	case outcome.Commit != nil:
		status := http.StatusOK
		if !outcome.Commit.AllSucceeded {
			status = http.StatusMultiStatus
		}
		if isHTMX(r) {
			renderFragment(w, r, status, templates.CommitSummary(outcome.Commit))
			return
		}
		writeJSON(w, status, outcome.Commit)

	default:
		s.respondError(w, r, errors.New("import finished without an outcome"))
	}
}

// handleDownloadTemplate returns a CSV with every recognized column and one
// sample row.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := s.importer.Schema().Template()
	if err != nil {
		s.respondError(w, r, fmt.Errorf("build template: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="students_template.csv"`)
	_, _ = w.Write(data)
}

const healthPingTimeout = 2 * time.Second

// handleHealth reports liveness and, when configured, store reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if err := s.health.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  core.MapError(err).Message,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
