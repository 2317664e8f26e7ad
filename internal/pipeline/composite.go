package pipeline

import (
	"encoding/json"

	"github.com/dgallion1/chartmate/internal/schema"
)

// Completeness returns the percentage of the schema's expected leaf fields
// that carry a real value in the record. Error-marker sections contribute
// nothing to the numerator; the denominator is the fixed leaf count of the
// full catalog.
func Completeness(record CompositeRecord) float64 {
	total := schema.TotalLeafFields()
	if total == 0 {
		return 0
	}

	filled := 0
	for _, raw := range record.Responses {
		if isErrorMarker(raw) {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		filled += schema.CountFilledLeaves(v)
	}

	pct := float64(filled) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
