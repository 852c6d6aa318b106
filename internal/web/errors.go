package web

// errors.go turns handler and middleware errors into responses.
//
// Typed errors carry their own status: auth and feature errors expose
// HTTPStatus/ErrorCode, import errors carry a core.ErrorCode, and anything
// unrecognized becomes a logged 500. HTMX callers get an HTML fragment with
// the same status instead of JSON.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/logging"
	"github.com/JonMunkholm/roster/internal/web/templates"
)

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// validationBody is returned when rows failed validation on a commit.
type validationBody struct {
	errorBody
	Total   int             `json:"total"`
	Valid   int             `json:"valid"`
	Invalid int             `json:"invalid"`
	Errors  []core.RowError `json:"errors"`
}

// statusCoder is implemented by errors that choose their own response.
type statusCoder interface {
	HTTPStatus() int
	ErrorCode() string
}

// errorStatus maps err to a status code and response body.
func errorStatus(err error) (int, errorBody) {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus(), errorBody{Code: sc.ErrorCode(), Message: err.Error()}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, errorBody{
			Code:    "PAYLOAD_TOO_LARGE",
			Message: fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit),
		}
	}

	var vf *core.ValidationFailure
	if errors.As(err, &vf) {
		return http.StatusBadRequest, errorBody{Code: string(core.CodeValidationErrors), Message: vf.Error()}
	}

	var ie *core.ImportError
	if errors.As(err, &ie) {
		status := http.StatusBadRequest
		if ie.Code == core.CodeTooManyImports {
			status = http.StatusTooManyRequests
		}
		return status, errorBody{Code: string(ie.Code), Message: ie.Message}
	}

	return http.StatusInternalServerError, errorBody{Code: string(core.CodeInternal), Message: err.Error()}
}

// respondError logs err and writes the matching response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorStatus(err)
	logger := logging.FromContext(r.Context())

	if status >= http.StatusInternalServerError {
		logger.Error("request error",
			"path", r.URL.Path,
			"method", r.Method,
			"status", status,
			"error", err.Error(),
			"support_code", core.MapError(err).Code,
		)
	} else {
		logger.Info("request rejected",
			"path", r.URL.Path,
			"status", status,
			"code", body.Code,
		)
	}

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", retryAfter(s.cfg.Import.MaxWaitTime))
	}

	var vf *core.ValidationFailure
	hasRows := errors.As(err, &vf)

	if isHTMX(r) {
		var rows []core.RowError
		if hasRows {
			rows = vf.Errors
		}
		renderFragment(w, r, status, templates.ErrorAlert(body.Code, body.Message, rows))
		return
	}

	if hasRows {
		writeJSON(w, status, validationBody{
			errorBody: body,
			Total:     vf.Total,
			Valid:     vf.Valid,
			Invalid:   vf.Invalid,
			Errors:    vf.Errors,
		})
		return
	}
	writeJSON(w, status, body)
}

// writeJSON encodes v as the response body.
// Encoding errors are only logged since the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
