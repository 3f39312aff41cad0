package main

import "testing"

func TestWithSearchPath(t *testing.T) {
	const base = "postgres://etl@localhost:5432/football?sslmode=disable"

	if got := withSearchPath(base, "public"); got != base {
		t.Fatalf("public schema must leave url untouched, got %q", got)
	}
	if got := withSearchPath(base, "football"); got != "postgres://etl@localhost:5432/football?search_path=football&sslmode=disable" {
		t.Fatalf("unexpected url %q", got)
	}
	withPath := base + "&search_path=custom"
	if got := withSearchPath(withPath, "football"); got != withPath {
		t.Fatalf("explicit search_path must win, got %q", got)
	}
}

func TestParseSteps(t *testing.T) {
	if steps, err := parseSteps(nil); err != nil || steps != 1 {
		t.Fatalf("expected default 1 step, got %d err=%v", steps, err)
	}
	if steps, err := parseSteps([]string{" 3 "}); err != nil || steps != 3 {
		t.Fatalf("expected 3 steps, got %d err=%v", steps, err)
	}
	if _, err := parseSteps([]string{"0"}); err == nil {
		t.Fatalf("expected error for zero steps")
	}
}
