package model

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// ErrMalformedAnswer is returned when an answer payload is neither a JSON
// string nor a JSON array of strings.
var ErrMalformedAnswer = errors.New("malformed answer value")

// Answer is a student's answer to one question. Exactly one form is used:
// Value holds a single option ID or free text, Values holds a set of option
// IDs for multi-choice questions. The zero Answer means unanswered.
type Answer struct {
	Value  string
	Values []string
}

// OptionAnswer builds a single-option (or free-text) answer.
func OptionAnswer(v string) Answer {
	return Answer{Value: v}
}

// OptionSetAnswer builds a multi-choice answer from option IDs.
func OptionSetAnswer(ids ...string) Answer {
	if ids == nil {
		ids = []string{}
	}
	return Answer{Values: ids}
}

// IsSet reports whether the answer is a set of option IDs.
func (a Answer) IsSet() bool {
	return a.Values != nil
}

// IsZero reports whether the answer is absent.
func (a Answer) IsZero() bool {
	return a.Values == nil && a.Value == ""
}

// Matches applies the grading equality rule: when the key is a set, the
// answer must be a set with exactly the same members, order-independent;
// otherwise plain value equality. A type-mismatched answer never matches.
func (a Answer) Matches(key Answer) bool {
	if key.IsSet() {
		if !a.IsSet() {
			return false
		}
		want := make(map[string]struct{}, len(key.Values))
		for _, id := range key.Values {
			want[id] = struct{}{}
		}
		got := make(map[string]struct{}, len(a.Values))
		for _, id := range a.Values {
			got[id] = struct{}{}
		}
		if len(got) != len(want) {
			return false
		}
		for id := range want {
			if _, ok := got[id]; !ok {
				return false
			}
		}
		return true
	}
	return !a.IsSet() && a.Value == key.Value
}

// MarshalJSON encodes the answer in the wire shape used by the exam client:
// a bare string or an array of option IDs.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.IsSet() {
		return json.Marshal(a.Values)
	}
	return json.Marshal(a.Value)
}

// UnmarshalJSON accepts either wire shape. Anything else is ErrMalformedAnswer.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Answer{Value: s}
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err == nil {
		if ids == nil {
			ids = []string{}
		}
		*a = Answer{Values: ids}
		return nil
	}
	return ErrMalformedAnswer
}

// ResponseSet maps question IDs to answers. Keys are unique; insertion order
// is irrelevant.
type ResponseSet map[uuid.UUID]Answer

// Clone returns an independent copy of the response set.
func (r ResponseSet) Clone() ResponseSet {
	out := make(ResponseSet, len(r))
	for id, a := range r {
		if a.IsSet() {
			vals := make([]string, len(a.Values))
			copy(vals, a.Values)
			a.Values = vals
		}
		out[id] = a
	}
	return out
}
