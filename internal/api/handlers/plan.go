package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"invoicestudio/internal/core"
	"invoicestudio/internal/metrics"
	"invoicestudio/internal/types"
)

// planResponse is the billing status payload the client app polls to decide
// which features to render.
type planResponse struct {
	Plan types.PlanState `json:"plan"`
	Paid bool            `json:"paid"`
}

// PlanHandler serves the billing read surface.
type PlanHandler struct {
	plans     PlanService
	responder *core.Responder
	logger    *slog.Logger
}

// NewPlanHandler creates a PlanHandler with the provided dependencies.
func NewPlanHandler(plans PlanService, responder *core.Responder, logger *slog.Logger) *PlanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanHandler{
		plans:     plans,
		responder: responder,
		logger:    logger,
	}
}

// RegisterRoutes mounts the billing endpoints.
func (h *PlanHandler) RegisterRoutes(r chi.Router) {
	r.Get("/billing/plan", h.Plan)
	r.Get("/billing/pdf-policy", h.PdfPolicy)
}

// Plan handles GET /v1/billing/plan. The status is derived fresh on every
// call; a subscription change on the plan board is visible immediately.
func (h *PlanHandler) Plan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := types.GetActor(ctx)
	if !ok {
		h.responder.Error(w, r, types.Recoverable(
			"Missing credentials",
			"the request did not carry a monday session token",
		).WithStatus(http.StatusUnauthorized))
		return
	}

	state, err := h.plans.AccountPlanStatus(ctx, actor.AccountID)
	if err != nil {
		metrics.UpstreamQueryFailures.Inc()
		h.responder.Error(w, r, err)
		return
	}
	metrics.PlanLookups.WithLabelValues(string(state)).Inc()

	h.responder.JSON(w, r, http.StatusOK, core.APIResponse{Data: planResponse{
		Plan: state,
		Paid: state == types.PlanPaid,
	}})
}

// PdfPolicy handles GET /v1/billing/pdf-policy. The client uses it to gray
// out the export button before the user ever triggers the action.
func (h *PlanHandler) PdfPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := types.GetActor(ctx)
	if !ok {
		h.responder.Error(w, r, types.Recoverable(
			"Missing credentials",
			"the request did not carry a monday session token",
		).WithStatus(http.StatusUnauthorized))
		return
	}

	policy, err := h.plans.CanExportPDF(ctx, actor.AccountID)
	if err != nil {
		metrics.UpstreamQueryFailures.Inc()
		h.responder.Error(w, r, err)
		return
	}

	h.responder.JSON(w, r, http.StatusOK, core.APIResponse{Data: policy})
}
