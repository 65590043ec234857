package types

// Event is one normalized row from the AMP board. Events are owned by the
// board, not by this service; a fetched slice is an immutable snapshot.
//
// CreatedAt is kept as the raw ISO-8601 string from the board. The derivation
// engine orders events lexicographically, which is correct for ISO-8601 and
// sidesteps parse failures on partially filled rows.
type Event struct {
	AccountID string    `json:"account_id"`
	Type      EventType `json:"event_type"`
	CreatedAt string    `json:"created_at"`
}

// PdfPolicy is the export decision derived from a plan state.
// Limit is the monthly export quota and is only set for the free tier.
type PdfPolicy struct {
	Allowed bool `json:"allowed"`
	Limit   int  `json:"limit,omitempty"`
}

// AmpColumns maps the three required (and one optional) AMP board columns to
// their monday column ids. The ids are assigned by monday when the board is
// provisioned, so they are always late-bound through configuration.
type AmpColumns struct {
	AccountID string
	EventType string
	Plan      string // optional, informational only
	CreatedAt string
}

// AmpConfig describes where plan events live. An unconfigured value is a
// normal pre-provisioning state, not an error: the policy façade substitutes
// mock or fallback data until the board exists.
type AmpConfig struct {
	BoardID string
	Columns AmpColumns
}

// Configured reports whether the board id and all required column ids are
// present. The plan column never participates in this check.
func (c AmpConfig) Configured() bool {
	return c.BoardID != "" &&
		c.Columns.AccountID != "" &&
		c.Columns.EventType != "" &&
		c.Columns.CreatedAt != ""
}
