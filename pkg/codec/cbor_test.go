package codec

import (
	"bytes"
	"testing"
	"time"
)

func TestMarshalIsDeterministic(t *testing.T) {
	a := map[string]any{"pnr": "LTR4821931000", "seats": []string{"1A", "1B"}, "amount": 48150}
	b := map[string]any{"amount": 48150, "seats": []string{"1A", "1B"}, "pnr": "LTR4821931000"}

	first, err := Marshal(a)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Marshal(b)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding differs on run %d", i)
		}
	}
}

func TestUnmarshalUsesStringKeyedMaps(t *testing.T) {
	type record struct {
		Event   string         `cbor:"event"`
		At      time.Time      `cbor:"at"`
		Details map[string]any `cbor:"details"`
	}
	in := record{
		Event:   "PAYMENT_SUCCEEDED",
		At:      time.Date(2026, 3, 2, 6, 0, 0, 123, time.UTC),
		Details: map[string]any{"fare": map[string]any{"gross_fare": 48150}},
	}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out record
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.Event != in.Event || !out.At.Equal(in.At) {
		t.Fatalf("Unmarshal() = %+v", out)
	}
	if _, ok := out.Details["fare"].(map[string]any); !ok {
		t.Fatalf("nested map decoded as %T", out.Details["fare"])
	}
}
