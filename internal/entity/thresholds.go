package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// ThresholdSet is the set of reminder lead-times (in hours) already
// dispatched for a booking. It only ever grows. Stored as a single JSON
// column so the configured threshold list never requires a schema change.
type ThresholdSet []int

func (s ThresholdSet) Contains(hours int) bool {
	for _, h := range s {
		if h == hours {
			return true
		}
	}
	return false
}

// Add returns the set with hours included, largest lead-time first.
// Adding an existing member is a no-op.
func (s ThresholdSet) Add(hours int) ThresholdSet {
	if s.Contains(hours) {
		return s
	}
	out := append(ThresholdSet{}, s...)
	out = append(out, hours)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func (s ThresholdSet) Value() (driver.Value, error) {
	if s == nil {
		s = ThresholdSet{}
	}
	return json.Marshal(s)
}

func (s *ThresholdSet) Scan(value interface{}) error {
	if value == nil {
		*s = ThresholdSet{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan type %T into ThresholdSet", value)
	}
}
