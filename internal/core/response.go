// Package core provides the API chassis for the InvoiceStudio backend: the
// chi router, the cross-cutting middleware, and the single boundary that
// translates raised errors into the wire contract the monday Automation host
// consumes.
package core

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"invoicestudio/internal/types"
)

// maxRequestBodySize is the maximum allowed size of a request body (2 MB,
// leaving headroom for archived invoice HTML).
const maxRequestBodySize = 2 << 20

// APIResponse is the envelope for successful responses.
type APIResponse struct {
	Data any `json:"data,omitempty"`
}

// Responder writes responses and is the error-translation boundary. Any error
// raised through the action error model is serialized with its severity
// payload and transport status; anything else becomes a 500 whose description
// leaks nothing in production.
type Responder struct {
	Logger     *slog.Logger
	Production bool
}

// NewResponder creates a Responder. A nil logger falls back to slog.Default.
func NewResponder(logger *slog.Logger, production bool) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{Logger: logger, Production: production}
}

// JSON writes a JSON response with the given status code and body.
func (rp *Responder) JSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		rp.Logger.ErrorContext(r.Context(), "failed to marshal response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(types.Recoverable(
			"Internal error",
			"an unexpected error occurred",
		))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// Error translates err into the Automation host's wire contract:
//
//   - A *types.ActionError anywhere in the chain is serialized with its exact
//     five-field payload and its HTTPStatus (422/410 defaults, 402 override
//     for plan denials).
//   - Any other error is an unclassified fault: transport 500 with a generic
//     description. Outside production the runtime description carries the
//     real message to aid debugging.
func (rp *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	var actionErr *types.ActionError
	if errors.As(err, &actionErr) {
		rp.Logger.WarnContext(r.Context(), "action error",
			"severity", int(actionErr.Severity),
			"status", actionErr.HTTPStatus(),
			"title", actionErr.Title,
			"error", err,
		)
		rp.JSON(w, r, actionErr.HTTPStatus(), actionErr)
		return
	}

	rp.Logger.ErrorContext(r.Context(), "unclassified error", "error", err)

	fallback := types.Recoverable("Something went wrong", "an unexpected error occurred")
	if !rp.Production {
		fallback = fallback.WithRuntimeDescription(err.Error())
	}
	rp.JSON(w, r, http.StatusInternalServerError, fallback)
}

// DecodeJSON reads the request body into dst, enforcing the size cap.
// Malformed bodies surface as recoverable action errors so the Automation
// host prompts the user instead of disabling the recipe.
func (rp *Responder) DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return types.Recoverable(
			"Invalid request",
			"the request body could not be parsed",
		).WithCause(err)
	}
	return nil
}
