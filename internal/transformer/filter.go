package transformer

import "strings"

// Filter narrows a parsed record set. Zero values leave a constraint off.
type Filter struct {
	IDSubstring  string    // case-insensitive substring of the transformer ID
	Voltages     []float64 // keep records where either bus voltage matches an entry
	MinRatingMVA *float64  // keep records rated at least this; unrated records drop
}

// IsZero reports whether the filter keeps everything.
func (f *Filter) IsZero() bool {
	return f.IDSubstring == "" && len(f.Voltages) == 0 && f.MinRatingMVA == nil
}

// Apply returns the records passing every set constraint, in input order.
func (f *Filter) Apply(records []Record) []Record {
	if f.IsZero() {
		return records
	}

	kept := make([]Record, 0, len(records))
	for i := range records {
		if f.matches(&records[i]) {
			kept = append(kept, records[i])
		}
	}
	return kept
}

func (f *Filter) matches(r *Record) bool {
	if f.IDSubstring != "" &&
		!strings.Contains(strings.ToLower(r.ID), strings.ToLower(f.IDSubstring)) {
		return false
	}
	if len(f.Voltages) > 0 && !f.voltageMatch(r) {
		return false
	}
	if f.MinRatingMVA != nil {
		if r.RatingMVA == nil || *r.RatingMVA < *f.MinRatingMVA {
			return false
		}
	}
	return true
}

// voltageMatch reports whether either bus voltage equals a wanted value.
func (f *Filter) voltageMatch(r *Record) bool {
	for _, v := range f.Voltages {
		if busVoltageIs(r.VoltageBus0KV, v) || busVoltageIs(r.VoltageBus1KV, v) {
			return true
		}
	}
	return false
}

func busVoltageIs(bus *float64, want float64) bool {
	return bus != nil && *bus == want //nolint:gocritic // nominal voltage levels are discrete values
}
