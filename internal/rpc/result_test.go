package rpc

import (
	"bytes"
	"testing"
)

func TestResultRoundTrip(t *testing.T) {
	want := []Result{
		{URL: "https://a.example/", Title: "A Page", Score: 0.91},
		{URL: "https://b.example/", Title: "B Page", Score: 0.42},
	}
	var buf bytes.Buffer
	if err := WriteResults(&buf, want); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}
	got, err := ReadResults(&buf)
	if err != nil {
		t.Fatalf("ReadResults: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("result %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestResultRoundTripEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, nil); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}
	got, err := ReadResults(&buf)
	if err != nil {
		t.Fatalf("ReadResults: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d results, want 0", len(got))
	}
}
