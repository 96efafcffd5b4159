package models

import (
	"encoding/json"
	"math"
)

// MRollingSeries holds one slot per input row. Slots without a defined value
// (warm-up rows, zero-variance windows) are reported as null.
type MRollingSeries struct {
	Window  int
	values  []float64
	defined []bool
}

// -----------------------------------------------------------------------------

// NewRollingSeries allocates n undefined slots.
func NewRollingSeries(n, window int) MRollingSeries {
	values := make([]float64, n)
	for i := range values {
		values[i] = math.NaN()
	}
	return MRollingSeries{
		Window:  window,
		values:  values,
		defined: make([]bool, n),
	}
}

// -----------------------------------------------------------------------------

// Set stores a defined value at index i.
func (r *MRollingSeries) Set(i int, v float64) {
	r.values[i] = v
	r.defined[i] = true
}

// Len is the number of slots, defined or not.
func (r MRollingSeries) Len() int {
	return len(r.values)
}

// At returns the value at i and whether it is defined.
func (r MRollingSeries) At(i int) (float64, bool) {
	if i < 0 || i >= len(r.values) || !r.defined[i] {
		return math.NaN(), false
	}
	return r.values[i], true
}

// -----------------------------------------------------------------------------

// DefinedCount returns how many slots carry a value.
func (r MRollingSeries) DefinedCount() int {
	n := 0
	for _, ok := range r.defined {
		if ok {
			n++
		}
	}
	return n
}

// -----------------------------------------------------------------------------

// Last returns the most recent defined value.
func (r MRollingSeries) Last() (float64, bool) {
	for i := len(r.values) - 1; i >= 0; i-- {
		if r.defined[i] {
			return r.values[i], true
		}
	}
	return math.NaN(), false
}

// -----------------------------------------------------------------------------

func (r MRollingSeries) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(r.values))
	for i := range r.values {
		if r.defined[i] {
			v := r.values[i]
			out[i] = &v
		}
	}
	return json.Marshal(struct {
		Window int        `json:"window"`
		Values []*float64 `json:"values"`
	}{Window: r.Window, Values: out})
}

// -----------------------------------------------------------------------------

func (r *MRollingSeries) UnmarshalJSON(data []byte) error {
	var raw struct {
		Window int        `json:"window"`
		Values []*float64 `json:"values"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = NewRollingSeries(len(raw.Values), raw.Window)
	for i, v := range raw.Values {
		if v != nil {
			r.Set(i, *v)
		}
	}
	return nil
}
