package types

// PlanState is the derived billing state of a monday account.
// It is recomputed from the event log on every query, never stored.
type PlanState string

const (
	PlanFree      PlanState = "free"
	PlanTrial     PlanState = "trial"
	PlanPaid      PlanState = "paid"
	PlanCancelled PlanState = "cancelled"
)

// Valid reports whether s is one of the four known plan states.
func (s PlanState) Valid() bool {
	switch s {
	case PlanFree, PlanTrial, PlanPaid, PlanCancelled:
		return true
	}
	return false
}

// EventType identifies a lifecycle fact recorded on the AMP board.
// The set is closed for derivation purposes; unknown values are carried
// through the adapter untouched and ignored by the engine.
type EventType string

const (
	EventAppInstalled          EventType = "app_installed"
	EventTrialStarted          EventType = "trial_started"
	EventTrialEnded            EventType = "trial_ended"
	EventSubscriptionStarted   EventType = "subscription_started"
	EventSubscriptionCancelled EventType = "subscription_cancelled"
	EventAppUninstalled        EventType = "app_uninstalled"
)

// MockPreset selects a canned event history used when the AMP board has not
// been provisioned yet.
type MockPreset string

const (
	PresetFree      MockPreset = "free"
	PresetTrial     MockPreset = "trial"
	PresetPaid      MockPreset = "paid"
	PresetCancelled MockPreset = "cancelled"
)
