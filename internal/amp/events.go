// Package amp adapts the externally owned App Management board into the
// normalized event list the plan engine consumes. The board's id and column
// ids are assigned by monday after a provisioning step outside this service's
// control, so every identifier in the query is late-bound from configuration.
package amp

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"invoicestudio/internal/monday"
	"invoicestudio/internal/types"
)

// itemsPageLimit bounds one fetch. The AMP board carries a handful of
// lifecycle rows per account, so a single page covers it.
const itemsPageLimit = 500

const eventsQuery = `query ($boardId: [ID!], $columnIds: [String!], $limit: Int!) {
  boards (ids: $boardId) {
    id
    items_page (limit: $limit) {
      cursor
      items {
        id
        name
        column_values (ids: $columnIds) {
          id
          type
          text
          value
        }
      }
    }
  }
}`

// FetchEvents reads the configured AMP board and returns one Event per usable
// row.
//
// An unconfigured source returns an empty list without touching the runner:
// pre-provisioning is an expected state, not a failure. Rows missing an
// account id or event type are dropped silently; unknown event types are kept
// (the engine ignores them, and dropping here would break forward
// compatibility). A runner failure propagates untouched; retries belong to
// whoever injected the runner.
func FetchEvents(ctx context.Context, cfg types.AmpConfig, run monday.QueryRunner) ([]types.Event, error) {
	if !cfg.Configured() {
		return nil, nil
	}

	columnIDs := []string{cfg.Columns.AccountID, cfg.Columns.EventType, cfg.Columns.CreatedAt}
	if cfg.Columns.Plan != "" {
		columnIDs = append(columnIDs, cfg.Columns.Plan)
	}

	res, err := run.RunQuery(ctx, eventsQuery, map[string]any{
		"boardId":   []string{cfg.BoardID},
		"columnIds": columnIDs,
		"limit":     itemsPageLimit,
	})
	if err != nil {
		return nil, err
	}

	var events []types.Event
	for _, item := range boardItems(res) {
		cells := make(map[string]monday.ColumnValue, len(item.ColumnValues))
		for _, cv := range item.ColumnValues {
			cells[cv.ID] = cv
		}

		accountID := strings.TrimSpace(columnText(cells[cfg.Columns.AccountID]))
		eventType := strings.ToLower(strings.TrimSpace(columnText(cells[cfg.Columns.EventType])))
		if accountID == "" || eventType == "" {
			continue
		}

		events = append(events, types.Event{
			AccountID: accountID,
			Type:      types.EventType(eventType),
			CreatedAt: strings.TrimSpace(columnText(cells[cfg.Columns.CreatedAt])),
		})
	}

	return events, nil
}

// boardItems walks the result envelope; any missing link in the chain means
// zero rows, never an error.
func boardItems(res *monday.QueryResult) []monday.Item {
	if res == nil || res.Data == nil || len(res.Data.Boards) == 0 {
		return nil
	}
	page := res.Data.Boards[0].ItemsPage
	if page == nil {
		return nil
	}
	return page.Items
}

// columnText extracts a usable scalar from a column value. monday cells carry
// a display Text plus a raw JSON Value whose shape varies by column type, so
// the unwrap order is: display text, then a text/value/id sub-field of a
// decoded object, then the decoded scalar, then the raw string.
func columnText(cv monday.ColumnValue) string {
	if cv.Text != "" {
		return cv.Text
	}

	raw := strings.TrimSpace(cv.Value)
	if raw == "" || raw == "null" {
		return ""
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return raw
	}

	switch v := decoded.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"text", "value", "id"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
		return raw
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return raw
	}
}
