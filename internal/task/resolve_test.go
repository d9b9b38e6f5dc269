package task

import (
	"errors"
	"testing"
)

func newResolveList() *List {
	l := NewList()
	l.Append([]Record{
		{Description: "Research current market trends"},
		{Description: "Write the summary report"},
		{Description: "Calculate the discount table"},
	})
	return l
}

func TestResolveExactID(t *testing.T) {
	l := newResolveList()
	rec, err := l.Resolve("2", 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != 2 {
		t.Errorf("expected task 2, got %d", rec.ID)
	}
}

func TestResolveExactDescription(t *testing.T) {
	l := newResolveList()
	rec, err := l.Resolve("Write the summary report", 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != 2 {
		t.Errorf("expected task 2, got %d", rec.ID)
	}
}

func TestResolveNormalizedSubstring(t *testing.T) {
	l := newResolveList()
	rec, err := l.Resolve("  MARKET   trends ", 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != 1 {
		t.Errorf("expected task 1, got %d", rec.ID)
	}
}

func TestResolveApproximate(t *testing.T) {
	l := newResolveList()
	// Close but not a substring: a typo'd near-full description.
	rec, err := l.Resolve("Wrote the sumary reprt", 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != 2 {
		t.Errorf("expected task 2, got %d", rec.ID)
	}
}

func TestResolveBelowThreshold(t *testing.T) {
	l := newResolveList()
	_, err := l.Resolve("launch the satellite", 0.6)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
