package billing

import "invoicestudio/internal/types"

// presetAccountPlaceholder marks where the caller's account id is substituted
// into a canned history.
const presetAccountPlaceholder = "__account__"

// mockEventsByPreset holds the four canned event histories used while the AMP
// board is unprovisioned. The map is never mutated at runtime; PresetEvents
// copies entries before substituting the account id.
var mockEventsByPreset = map[types.MockPreset][]types.Event{
	types.PresetFree: {
		{AccountID: presetAccountPlaceholder, Type: types.EventAppInstalled, CreatedAt: "2024-01-01T00:00:00Z"},
	},
	types.PresetTrial: {
		{AccountID: presetAccountPlaceholder, Type: types.EventAppInstalled, CreatedAt: "2024-01-01T00:00:00Z"},
		{AccountID: presetAccountPlaceholder, Type: types.EventTrialStarted, CreatedAt: "2024-01-02T00:00:00Z"},
	},
	types.PresetPaid: {
		{AccountID: presetAccountPlaceholder, Type: types.EventAppInstalled, CreatedAt: "2024-01-01T00:00:00Z"},
		{AccountID: presetAccountPlaceholder, Type: types.EventTrialStarted, CreatedAt: "2024-01-02T00:00:00Z"},
		{AccountID: presetAccountPlaceholder, Type: types.EventSubscriptionStarted, CreatedAt: "2024-01-10T00:00:00Z"},
	},
	types.PresetCancelled: {
		{AccountID: presetAccountPlaceholder, Type: types.EventAppInstalled, CreatedAt: "2024-01-01T00:00:00Z"},
		{AccountID: presetAccountPlaceholder, Type: types.EventSubscriptionStarted, CreatedAt: "2024-01-10T00:00:00Z"},
		{AccountID: presetAccountPlaceholder, Type: types.EventSubscriptionCancelled, CreatedAt: "2024-02-10T00:00:00Z"},
	},
}

// PresetEvents returns a copy of the canned history for the given preset with
// accountID substituted in. Unknown presets fall back to the free history.
func PresetEvents(preset types.MockPreset, accountID string) []types.Event {
	canned, ok := mockEventsByPreset[preset]
	if !ok {
		canned = mockEventsByPreset[types.PresetFree]
	}

	events := make([]types.Event, len(canned))
	for i, ev := range canned {
		ev.AccountID = accountID
		events[i] = ev
	}
	return events
}
