// Package billing is the plan policy façade: it composes the AMP event
// source with the derivation engine and exposes the policy queries the
// action endpoints gate on.
//
// The façade behaves identically whether the AMP board is provisioned or
// not, modulo the data source. The event source is resolved through an
// explicit three-way policy:
//
//  1. configured board present  -> query it
//  2. absent and mock requested -> canned preset history
//  3. absent, no mock           -> empty list (the fallback plan, if any,
//     is applied at derivation time)
//
// Plan state is recomputed from a fresh fetch on every query. There is no
// cache: a billing-relevant check must never serve a stale "allowed".
package billing

import (
	"context"
	"errors"
	"strings"

	"invoicestudio/internal/amp"
	"invoicestudio/internal/monday"
	"invoicestudio/internal/plan"
	"invoicestudio/internal/types"
)

// ErrSourceMissing reports that the configured AMP board no longer exists on
// the monday side. Callers classify this as unrecoverable: the automation
// cannot work until a human re-points the configuration.
var ErrSourceMissing = errors.New("billing: configured amp board not found")

// Fallback controls behavior while the AMP board is unprovisioned.
type Fallback struct {
	// Plan, when non-empty, is returned verbatim for accounts the source
	// knows nothing about.
	Plan types.PlanState
	// UseMock substitutes a canned preset history when the source is
	// unconfigured.
	UseMock bool
	// Preset selects which canned history to use; empty defaults to free.
	Preset types.MockPreset
}

// Service answers plan policy queries for monday accounts.
type Service struct {
	cfg    types.AmpConfig
	runner monday.QueryRunner
	fb     Fallback
}

// NewService creates the façade. runner may be nil only when cfg is
// unconfigured, since an unconfigured source never issues queries.
func NewService(cfg types.AmpConfig, runner monday.QueryRunner, fb Fallback) *Service {
	return &Service{cfg: cfg, runner: runner, fb: fb}
}

// EventsForAccount resolves the event source per the three-way policy above
// and returns the raw (all-accounts) event list. Adapter errors propagate
// untouched.
func (s *Service) EventsForAccount(ctx context.Context, accountID string) ([]types.Event, error) {
	if !s.cfg.Configured() {
		if s.fb.UseMock {
			preset := s.fb.Preset
			if preset == "" {
				preset = types.PresetFree
			}
			return PresetEvents(preset, accountID), nil
		}
		return nil, nil
	}
	return amp.FetchEvents(ctx, s.cfg, s.runner)
}

// AccountPlanStatus derives the account's current plan state.
//
// A zero-event result from the unconfigured path short-circuits to the
// fallback plan (or free) without entering the engine: an empty mock result
// is a statement of "no data", not a history to be derived from.
func (s *Service) AccountPlanStatus(ctx context.Context, accountID string) (types.PlanState, error) {
	events, err := s.EventsForAccount(ctx, accountID)
	if err != nil {
		return "", err
	}

	if len(events) == 0 && !s.cfg.Configured() {
		return s.fallbackPlan(), nil
	}

	return plan.ForAccount(events, accountID, s.fb.Plan), nil
}

// IsPaidPlan reports whether the account is currently on the paid plan.
func (s *Service) IsPaidPlan(ctx context.Context, accountID string) (bool, error) {
	state, err := s.AccountPlanStatus(ctx, accountID)
	if err != nil {
		return false, err
	}
	return state == types.PlanPaid, nil
}

// CanExportPDF maps the account's plan state through the export policy.
func (s *Service) CanExportPDF(ctx context.Context, accountID string) (types.PdfPolicy, error) {
	events, err := s.EventsForAccount(ctx, accountID)
	if err != nil {
		return types.PdfPolicy{}, err
	}

	if len(events) == 0 && !s.cfg.Configured() {
		return plan.CanExportPDF(s.fallbackPlan()), nil
	}

	return plan.CanExportPDF(plan.ForAccount(events, accountID, s.fb.Plan)), nil
}

// VerifySource checks that the configured AMP board still exists, returning
// ErrSourceMissing when monday no longer resolves its id. Unconfigured
// sources pass vacuously.
func (s *Service) VerifySource(ctx context.Context) error {
	if !s.cfg.Configured() {
		return nil
	}

	res, err := s.runner.RunQuery(ctx, sourceProbeQuery, map[string]any{
		"boardId": []string{s.cfg.BoardID},
	})
	if err != nil {
		return err
	}
	if res == nil || res.Data == nil || len(res.Data.Boards) == 0 {
		return ErrSourceMissing
	}
	return nil
}

const sourceProbeQuery = `query ($boardId: [ID!]) {
  boards (ids: $boardId) {
    id
  }
}`

func (s *Service) fallbackPlan() types.PlanState {
	if p := types.PlanState(strings.TrimSpace(string(s.fb.Plan))); p != "" {
		return p
	}
	return types.PlanFree
}
