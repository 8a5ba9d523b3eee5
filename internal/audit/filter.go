package audit

import (
	"encoding/json"

	"github.com/PaesslerAG/jsonpath"

	"github.com/aerocal/gaugecore/internal/model"
)

// filterByJSONPath keeps only entries whose after-payload (falling back to
// the before-payload) has a value at expr, letting callers filter
// query-by-entity/export results on an arbitrary field of the opaque
// payload blobs (e.g. "$.status") without the store needing a column for
// every possible payload shape.
func filterByJSONPath(entries []model.AuditEntry, expr string) []model.AuditEntry {
	var out []model.AuditEntry
	for _, e := range entries {
		if payloadMatchesJSONPath(e.After, expr) || payloadMatchesJSONPath(e.Before, expr) {
			out = append(out, e)
		}
	}
	return out
}

func payloadMatchesJSONPath(payload []byte, expr string) bool {
	if len(payload) == 0 {
		return false
	}
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return false
	}
	_, err := jsonpath.Get(expr, doc)
	return err == nil
}
