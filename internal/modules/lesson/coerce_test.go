package lesson

import (
	"reflect"
	"testing"
)

func TestCoerceList_PassesArraysThrough(t *testing.T) {
	in := []any{"a", "b", float64(3)}
	got := coerceList(in)
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("expected passthrough, got %#v", got)
	}
}

func TestCoerceList_ObjectValuesInSortedKeyOrder(t *testing.T) {
	got := coerceList(map[string]any{
		"c": "third",
		"a": "first",
		"b": "second",
	})
	want := []any{"first", "second", "third"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected sorted-key values %v, got %v", want, got)
	}
}

func TestCoerceList_PrefersJSONParseOverCommaSplit(t *testing.T) {
	// The payload contains commas, so a comma split would mangle it. The JSON
	// branch must win.
	got := coerceList(`["first item", "second, with comma"]`)
	want := []any{"first item", "second, with comma"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected JSON parse to win, got %#v", got)
	}
}

func TestCoerceList_JSONScalarWrapsAsSingleton(t *testing.T) {
	got := coerceList(`5`)
	if len(got) != 1 {
		t.Fatalf("expected singleton, got %#v", got)
	}
	if n, ok := got[0].(float64); !ok || n != 5 {
		t.Fatalf("expected parsed number 5, got %#v", got[0])
	}
}

func TestCoerceList_CommaSplitTrims(t *testing.T) {
	got := coerceList("apple, banana , cherry")
	want := []any{"apple", "banana", "cherry"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCoerceList_NewlineSplitDropsBlankLines(t *testing.T) {
	got := coerceList("first line\n\nsecond line\n   \nthird line")
	want := []any{"first line", "second line", "third line"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCoerceList_PlainStringWrapsAsSingleton(t *testing.T) {
	got := coerceList("just one question")
	want := []any{"just one question"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCoerceList_NilAndEmptyString(t *testing.T) {
	if got := coerceList(nil); len(got) != 0 {
		t.Fatalf("expected empty list for nil, got %#v", got)
	}
	if got := coerceList("   "); len(got) != 0 {
		t.Fatalf("expected empty list for blank string, got %#v", got)
	}
}

func TestStringListFromAny_ObjectElementUsesFirstScalar(t *testing.T) {
	got := stringListFromAny([]any{
		"plain",
		map[string]any{"z": "never", "a": "picked"},
	})
	want := []string{"plain", "picked"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestIntFromAny_ParsesNumericStrings(t *testing.T) {
	if got := intFromAny("45", 0); got != 45 {
		t.Fatalf("expected 45, got %d", got)
	}
	if got := intFromAny("forty five", 60); got != 60 {
		t.Fatalf("expected default 60, got %d", got)
	}
	if got := intFromAny(float64(30), 0); got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}
}
