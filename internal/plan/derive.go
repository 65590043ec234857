// Package plan implements the plan-status derivation engine: a pure,
// deterministic fold from an account's event log to its current plan state.
// The package performs no I/O; event fetching and fallback policy live in
// internal/billing.
package plan

import (
	"sort"
	"strings"

	"invoicestudio/internal/types"
)

// FreeExportLimit is the monthly PDF export quota for the free tier.
const FreeExportLimit = 5

// transitionKey pairs a current state with an incoming event type.
type transitionKey struct {
	state types.PlanState
	event types.EventType
}

// transitions is the full state table. Missing entries mean the event leaves
// the state unchanged, which also covers unknown event types and
// app_installed / app_uninstalled.
//
// New tiers are added by extending this table, not by editing control flow.
// Note the deliberate asymmetry carried over from the production event log:
// subscription_cancelled only fires from paid, but subscription_started moves
// any state (including cancelled) to paid.
var transitions = map[transitionKey]types.PlanState{
	{types.PlanFree, types.EventTrialStarted}:  types.PlanTrial,
	{types.PlanTrial, types.EventTrialStarted}: types.PlanTrial,

	{types.PlanTrial, types.EventTrialEnded}: types.PlanFree,

	{types.PlanFree, types.EventSubscriptionStarted}:      types.PlanPaid,
	{types.PlanTrial, types.EventSubscriptionStarted}:     types.PlanPaid,
	{types.PlanPaid, types.EventSubscriptionStarted}:      types.PlanPaid,
	{types.PlanCancelled, types.EventSubscriptionStarted}: types.PlanPaid,

	{types.PlanPaid, types.EventSubscriptionCancelled}: types.PlanCancelled,
}

// Derive folds an account's events into its current plan state.
//
// Events are ordered by CreatedAt ascending using plain string comparison;
// ISO-8601 timestamps sort correctly lexicographically and rows with an empty
// CreatedAt sort first. The input slice is not modified. The result depends
// only on the event snapshot, never on wall-clock time, so a permutation of
// the same events always yields the same state.
func Derive(events []types.Event) types.PlanState {
	ordered := make([]types.Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt < ordered[j].CreatedAt
	})

	state := types.PlanFree
	for _, ev := range ordered {
		if next, ok := transitions[transitionKey{state, ev.Type}]; ok {
			state = next
		}
	}
	return state
}

// GroupByAccount partitions events by trimmed account id. Events with an
// empty account id are dropped.
func GroupByAccount(events []types.Event) map[string][]types.Event {
	grouped := make(map[string][]types.Event)
	for _, ev := range events {
		id := strings.TrimSpace(ev.AccountID)
		if id == "" {
			continue
		}
		grouped[id] = append(grouped[id], ev)
	}
	return grouped
}

// ForAccount derives the plan for one account out of a mixed event list.
//
// When the account has no events and fallback is non-empty, fallback is
// returned verbatim, bypassing derivation. This lets callers distinguish
// "the source was queried and knows nothing about this account" from
// "free by derivation". An empty fallback falls through to Derive, whose
// empty-input result is free.
func ForAccount(events []types.Event, accountID string, fallback types.PlanState) types.PlanState {
	slice := GroupByAccount(events)[strings.TrimSpace(accountID)]
	if len(slice) == 0 && fallback != "" {
		return fallback
	}
	return Derive(slice)
}

// CanExportPDF maps a plan state to its export policy. Free accounts may
// export up to FreeExportLimit documents per month; cancelled accounts may
// not export at all.
func CanExportPDF(state types.PlanState) types.PdfPolicy {
	switch state {
	case types.PlanPaid, types.PlanTrial:
		return types.PdfPolicy{Allowed: true}
	case types.PlanCancelled:
		return types.PdfPolicy{Allowed: false}
	default:
		return types.PdfPolicy{Allowed: true, Limit: FreeExportLimit}
	}
}
