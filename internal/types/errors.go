package types

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Severity is the two-level error classification required by the monday
// Automation host. A failure is classified exactly once, at the point it is
// raised; there is no transition between severities.
type Severity int

const (
	// SeverityRecoverable (4000) means the user can fix their configuration
	// or input and retry the action.
	SeverityRecoverable Severity = 4000

	// SeverityUnrecoverable (6000) means the consuming automation must be
	// disabled until a human intervenes.
	SeverityUnrecoverable Severity = 6000
)

// ActionError is the structured error surfaced to monday Automations.
// All action endpoints express domain failures as ActionError so the HTTP
// boundary can serialize the fixed payload the Automation host expects.
type ActionError struct {
	Severity           Severity
	Title              string
	Description        string
	RuntimeDescription string
	// DisableDescription explains why the automation is being disabled.
	// Serialized only for SeverityUnrecoverable.
	DisableDescription string
	Status             int
	Err                error `json:"-"`
}

// Error implements the error interface.
func (e *ActionError) Error() string {
	return fmt.Sprintf("%d: %s: %s", e.Severity, e.Title, e.Description)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *ActionError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the transport status for this error: the explicit
// override if one was set, otherwise the severity default (422 recoverable,
// 410 unrecoverable).
func (e *ActionError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	if e.Severity == SeverityUnrecoverable {
		return http.StatusGone
	}
	return http.StatusUnprocessableEntity
}

// actionErrorPayload is the wire form mandated by the Automation host.
// disableErrorDescription must be absent below severity 6000, which is why
// ActionError does not expose json tags directly.
type actionErrorPayload struct {
	SeverityCode                 Severity `json:"severityCode"`
	NotificationErrorTitle       string   `json:"notificationErrorTitle"`
	NotificationErrorDescription string   `json:"notificationErrorDescription"`
	RuntimeErrorDescription      string   `json:"runtimeErrorDescription"`
	DisableErrorDescription      string   `json:"disableErrorDescription,omitempty"`
}

// MarshalJSON serializes the exact five-field payload, dropping
// disableErrorDescription unless the error is unrecoverable.
func (e *ActionError) MarshalJSON() ([]byte, error) {
	p := actionErrorPayload{
		SeverityCode:                 e.Severity,
		NotificationErrorTitle:       e.Title,
		NotificationErrorDescription: e.Description,
		RuntimeErrorDescription:      e.RuntimeDescription,
	}
	if e.Severity == SeverityUnrecoverable {
		p.DisableErrorDescription = e.DisableDescription
	}
	return json.Marshal(p)
}

// Recoverable constructs a severity-4000 error. RuntimeDescription defaults
// to the notification description; use WithRuntimeDescription to override.
func Recoverable(title, description string) *ActionError {
	return &ActionError{
		Severity:           SeverityRecoverable,
		Title:              title,
		Description:        description,
		RuntimeDescription: description,
	}
}

// Unrecoverable constructs a severity-6000 error carrying the explanation
// shown when the automation is disabled.
func Unrecoverable(title, description, disableDescription string) *ActionError {
	return &ActionError{
		Severity:           SeverityUnrecoverable,
		Title:              title,
		Description:        description,
		RuntimeDescription: description,
		DisableDescription: disableDescription,
	}
}

// WithStatus overrides the transport status, e.g. 402 for plan denials.
func (e *ActionError) WithStatus(status int) *ActionError {
	e.Status = status
	return e
}

// WithRuntimeDescription overrides the runtime description sent to the
// Automation host's execution log.
func (e *ActionError) WithRuntimeDescription(desc string) *ActionError {
	e.RuntimeDescription = desc
	return e
}

// WithCause attaches the underlying error for logging and errors.Is chains.
// The cause is never serialized to the client.
func (e *ActionError) WithCause(err error) *ActionError {
	e.Err = err
	return e
}
