package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestAnswerUnmarshalString(t *testing.T) {
	var a Answer
	if err := json.Unmarshal([]byte(`"b"`), &a); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if a.IsSet() || a.Value != "b" {
		t.Fatalf("got %+v, want single value b", a)
	}
}

func TestAnswerUnmarshalArray(t *testing.T) {
	var a Answer
	if err := json.Unmarshal([]byte(`["a","c"]`), &a); err != nil {
		t.Fatalf("unmarshal array: %v", err)
	}
	if !a.IsSet() || len(a.Values) != 2 {
		t.Fatalf("got %+v, want set of 2", a)
	}
}

func TestAnswerUnmarshalEmptyArrayIsSet(t *testing.T) {
	var a Answer
	if err := json.Unmarshal([]byte(`[]`), &a); err != nil {
		t.Fatalf("unmarshal empty array: %v", err)
	}
	if !a.IsSet() {
		t.Fatal("empty array should still be a set answer")
	}
	if a.IsZero() {
		t.Fatal("empty set is an answer, not absence")
	}
}

func TestAnswerUnmarshalMalformed(t *testing.T) {
	for _, raw := range []string{`42`, `{"x":1}`, `[1,2]`, `null`} {
		var a Answer
		err := json.Unmarshal([]byte(raw), &a)
		if !errors.Is(err, ErrMalformedAnswer) {
			t.Fatalf("payload %s: got err %v, want ErrMalformedAnswer", raw, err)
		}
	}
}

func TestAnswerMarshalRoundTrip(t *testing.T) {
	single, err := json.Marshal(OptionAnswer("b"))
	if err != nil {
		t.Fatalf("marshal single: %v", err)
	}
	if string(single) != `"b"` {
		t.Fatalf("single wire shape = %s, want \"b\"", single)
	}

	set, err := json.Marshal(OptionSetAnswer("a", "c"))
	if err != nil {
		t.Fatalf("marshal set: %v", err)
	}
	if string(set) != `["a","c"]` {
		t.Fatalf("set wire shape = %s, want [\"a\",\"c\"]", set)
	}
}

func TestAnswerMatchesSetEquality(t *testing.T) {
	key := OptionSetAnswer("a", "c")

	cases := []struct {
		name   string
		answer Answer
		want   bool
	}{
		{"exact", OptionSetAnswer("a", "c"), true},
		{"order independent", OptionSetAnswer("c", "a"), true},
		{"missing member", OptionSetAnswer("a"), false},
		{"extra member", OptionSetAnswer("a", "c", "d"), false},
		{"empty set", OptionSetAnswer(), false},
		{"type mismatch", OptionAnswer("a"), false},
		{"zero answer", Answer{}, false},
	}
	for _, tc := range cases {
		if got := tc.answer.Matches(key); got != tc.want {
			t.Errorf("%s: Matches = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAnswerMatchesValueEquality(t *testing.T) {
	key := OptionAnswer("b")

	if !OptionAnswer("b").Matches(key) {
		t.Fatal("equal value should match")
	}
	if OptionAnswer("a").Matches(key) {
		t.Fatal("different value should not match")
	}
	if OptionSetAnswer("b").Matches(key) {
		t.Fatal("set answer against value key should not match")
	}
}

func TestResponseSetCloneIsIndependent(t *testing.T) {
	qid := uuid.New()
	orig := ResponseSet{qid: OptionSetAnswer("a", "b")}

	clone := orig.Clone()
	clone[qid].Values[0] = "z"

	if orig[qid].Values[0] != "a" {
		t.Fatal("mutating the clone leaked into the original")
	}
}
