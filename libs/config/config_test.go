package config

import (
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "8085")
	p, err := Port("TEST_PORT", "1")
	if err != nil || p != "8085" {
		t.Fatalf("expected 8085, got %q (%v)", p, err)
	}

	t.Setenv("TEST_PORT", "70000")
	if _, err := Port("TEST_PORT", "1"); err == nil {
		t.Fatal("expected error for out of range port")
	}
}

func TestInt(t *testing.T) {
	n, err := Int("TEST_INT_UNSET", 5)
	if err != nil || n != 5 {
		t.Fatalf("expected fallback 5, got %d (%v)", n, err)
	}

	t.Setenv("TEST_INT", "abc")
	if _, err := Int("TEST_INT", 5); err == nil {
		t.Fatal("expected error for malformed int")
	}

	t.Setenv("TEST_INT", "0")
	if _, err := PositiveInt("TEST_INT", 5); err == nil {
		t.Fatal("expected error for non-positive int")
	}
}

func TestBool(t *testing.T) {
	cases := map[string]bool{"true": true, "1": true, "ON": true, "false": false, "no": false}
	for raw, want := range cases {
		t.Setenv("TEST_BOOL", raw)
		if got := Bool("TEST_BOOL", !want); got != want {
			t.Fatalf("Bool(%q) = %v, want %v", raw, got, want)
		}
	}
	t.Setenv("TEST_BOOL", "maybe")
	if !Bool("TEST_BOOL", true) {
		t.Fatal("expected fallback for unknown value")
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "5m")
	d, err := Duration("TEST_DUR", time.Second)
	if err != nil || d != 5*time.Minute {
		t.Fatalf("expected 5m, got %s (%v)", d, err)
	}
	t.Setenv("TEST_DUR", "-1s")
	if _, err := Duration("TEST_DUR", time.Second); err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestList(t *testing.T) {
	t.Setenv("TEST_LIST", " a, ,b ,c")
	got := List("TEST_LIST", "")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected list %v", got)
	}
}
