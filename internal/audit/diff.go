package audit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// DiffSummary renders a one-line human-readable summary of the fields that
// changed between an entry's before/after payloads, e.g.
// "status: available -> checked_out, location_ref: B12 -> C04". It reads
// each payload with gjson rather than unmarshalling into a struct, since
// the payload shape varies by entity type and the summary only needs a
// shallow field-by-field comparison.
func DiffSummary(before, after []byte) string {
	if len(before) == 0 || len(after) == 0 {
		return ""
	}
	beforeFields := topLevelFields(before)
	afterFields := topLevelFields(after)

	fieldSet := make(map[string]struct{}, len(beforeFields)+len(afterFields))
	for field := range beforeFields {
		fieldSet[field] = struct{}{}
	}
	for field := range afterFields {
		fieldSet[field] = struct{}{}
	}
	keys := make([]string, 0, len(fieldSet))
	for field := range fieldSet {
		keys = append(keys, field)
	}
	sort.Strings(keys)

	var changed []string
	for _, field := range keys {
		b := gjson.GetBytes(before, field)
		a := gjson.GetBytes(after, field)
		if b.Raw == a.Raw {
			continue
		}
		changed = append(changed, fmt.Sprintf("%s: %s -> %s", field, displayValue(b), displayValue(a)))
	}
	return strings.Join(changed, ", ")
}

func topLevelFields(payload []byte) map[string]struct{} {
	fields := make(map[string]struct{})
	gjson.ParseBytes(payload).ForEach(func(key, _ gjson.Result) bool {
		fields[key.String()] = struct{}{}
		return true
	})
	return fields
}

func displayValue(v gjson.Result) string {
	if !v.Exists() {
		return "(unset)"
	}
	return v.String()
}
