// Package handlers contains the HTTP handler implementations for the
// InvoiceStudio API: the automation custom-action endpoint and the billing
// read surface.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"invoicestudio/internal/billing"
	"invoicestudio/internal/core"
	"invoicestudio/internal/db"
	"invoicestudio/internal/metrics"
	"invoicestudio/internal/types"
)

// PlanService is the policy façade contract the handlers depend on. Defined
// locally and injected via the constructor so tests can mock it.
type PlanService interface {
	AccountPlanStatus(ctx context.Context, accountID string) (types.PlanState, error)
	CanExportPDF(ctx context.Context, accountID string) (types.PdfPolicy, error)
	VerifySource(ctx context.Context) error
}

// exportActionRequest is the custom-action callback body monday posts. The
// client app renders the invoice and sends the HTML for archival; the board
// item id ties the export back to its source row.
type exportActionRequest struct {
	Payload struct {
		InputFields struct {
			ItemID       string `json:"itemId"`
			BoardID      string `json:"boardId"`
			FileName     string `json:"fileName"`
			DocumentHTML string `json:"documentHtml"`
		} `json:"inputFields"`
	} `json:"payload"`
}

// exportActionResponse acknowledges a recorded export.
type exportActionResponse struct {
	Status    string `json:"status"`
	ExportID  string `json:"export_id"`
	Plan      string `json:"plan"`
	Remaining *int   `json:"remaining,omitempty"`
}

// ExportHandler serves the gated billable action: exporting an invoice as a
// PDF document.
type ExportHandler struct {
	plans     PlanService
	exports   db.ExportRepository
	responder *core.Responder
	logger    *slog.Logger
}

// NewExportHandler creates an ExportHandler with the provided dependencies.
func NewExportHandler(plans PlanService, exports db.ExportRepository, responder *core.Responder, logger *slog.Logger) *ExportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportHandler{
		plans:     plans,
		exports:   exports,
		responder: responder,
		logger:    logger,
	}
}

// RegisterRoutes mounts the action endpoints.
func (h *ExportHandler) RegisterRoutes(r chi.Router) {
	r.Post("/action/export-pdf", h.Export)
}

// Export handles POST /v1/action/export-pdf.
//
// The action is gated in order: source health, plan policy, free-tier quota.
// Plan and quota denials are recoverable with transport 402 so the host can
// present an upgrade path; a vanished AMP board is unrecoverable, since the
// automation cannot succeed until a human re-points the configuration. Any
// other failure is unclassified and surfaces as 500.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := types.GetActor(ctx)
	if !ok {
		h.responder.Error(w, r, types.Recoverable(
			"Missing credentials",
			"the request did not carry a monday session token",
		).WithStatus(http.StatusUnauthorized))
		return
	}

	var req exportActionRequest
	if err := h.responder.DecodeJSON(w, r, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if err := h.plans.VerifySource(ctx); err != nil {
		if errors.Is(err, billing.ErrSourceMissing) {
			metrics.ExportDecisions.WithLabelValues("error").Inc()
			h.responder.Error(w, r, types.Unrecoverable(
				"Billing source unavailable",
				"the app's plan board no longer exists",
				"This automation was disabled because the app's billing configuration points at a deleted board. Reinstall the app or contact support.",
			).WithCause(err))
			return
		}
		metrics.UpstreamQueryFailures.Inc()
		metrics.ExportDecisions.WithLabelValues("error").Inc()
		h.responder.Error(w, r, err)
		return
	}

	state, err := h.plans.AccountPlanStatus(ctx, actor.AccountID)
	if err != nil {
		metrics.UpstreamQueryFailures.Inc()
		metrics.ExportDecisions.WithLabelValues("error").Inc()
		h.responder.Error(w, r, err)
		return
	}
	metrics.PlanLookups.WithLabelValues(string(state)).Inc()

	policy, err := h.plans.CanExportPDF(ctx, actor.AccountID)
	if err != nil {
		metrics.UpstreamQueryFailures.Inc()
		metrics.ExportDecisions.WithLabelValues("error").Inc()
		h.responder.Error(w, r, err)
		return
	}

	if !policy.Allowed {
		metrics.ExportDecisions.WithLabelValues("denied_plan").Inc()
		h.responder.Error(w, r, types.Recoverable(
			"PDF export unavailable",
			"your subscription has been cancelled; resubscribe to export invoices",
		).WithStatus(http.StatusPaymentRequired))
		return
	}

	var remaining *int
	if policy.Limit > 0 {
		used, err := h.exports.CountSince(ctx, actor.AccountID, monthStart(time.Now().UTC()))
		if err != nil {
			metrics.ExportDecisions.WithLabelValues("error").Inc()
			h.responder.Error(w, r, err)
			return
		}
		if used >= policy.Limit {
			metrics.ExportDecisions.WithLabelValues("denied_quota").Inc()
			h.responder.Error(w, r, types.Recoverable(
				"Free plan limit reached",
				"the free plan includes 5 PDF exports per month; upgrade for unlimited exports",
			).WithStatus(http.StatusPaymentRequired))
			return
		}
		left := policy.Limit - used - 1
		remaining = &left
	}

	rec, err := h.exports.Record(ctx, actor.AccountID,
		req.Payload.InputFields.ItemID,
		req.Payload.InputFields.FileName,
		[]byte(req.Payload.InputFields.DocumentHTML),
	)
	if err != nil {
		metrics.ExportDecisions.WithLabelValues("error").Inc()
		h.responder.Error(w, r, err)
		return
	}

	metrics.ExportDecisions.WithLabelValues("allowed").Inc()
	h.logger.InfoContext(ctx, "export recorded",
		"account_id", actor.AccountID,
		"item_id", rec.ItemID,
		"export_id", rec.ID,
		"plan", string(state),
	)

	h.responder.JSON(w, r, http.StatusOK, core.APIResponse{Data: exportActionResponse{
		Status:    "recorded",
		ExportID:  rec.ID,
		Plan:      string(state),
		Remaining: remaining,
	}})
}

// monthStart returns the first instant of now's calendar month in UTC.
// The free-tier quota window is the calendar month.
func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
