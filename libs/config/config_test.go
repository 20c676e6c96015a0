package config

import (
	"testing"
	"time"
)

func TestIntRejectsGarbage(t *testing.T) {
	t.Setenv("BB_TEST_INT", "twelve")
	if _, err := Int("BB_TEST_INT", 3); err == nil {
		t.Fatal("expected error for non-numeric value")
	}
	t.Setenv("BB_TEST_INT", "")
	n, err := Int("BB_TEST_INT", 3)
	if err != nil || n != 3 {
		t.Fatalf("expected fallback 3, got %d (%v)", n, err)
	}
}

func TestBoolAndDuration(t *testing.T) {
	t.Setenv("BB_TEST_BOOL", "Yes")
	if !Bool("BB_TEST_BOOL", false) {
		t.Fatal("expected true")
	}
	t.Setenv("BB_TEST_BOOL", "maybe")
	if Bool("BB_TEST_BOOL", false) {
		t.Fatal("expected fallback false for unknown value")
	}

	t.Setenv("BB_TEST_DUR", "90s")
	d, err := Duration("BB_TEST_DUR", time.Second)
	if err != nil || d != 90*time.Second {
		t.Fatalf("expected 90s, got %s (%v)", d, err)
	}
}

func TestList(t *testing.T) {
	t.Setenv("BB_TEST_LIST", " a, ,b ,")
	got := List("BB_TEST_LIST", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected list %q", got)
	}
}
