package main

import "testing"

func TestServeReturnsExitCodeInsteadOfExiting(t *testing.T) {
	t.Setenv("SUPERJWT_ENV", "production")
	t.Setenv("SUPERJWT_SECRET", "")
	if code := serve(); code != 2 {
		t.Fatalf("expected exit code 2 for bad config, got %d", code)
	}

	t.Setenv("SUPERJWT_ENV", "")
	t.Setenv("SUPERJWT_ADDR", "127.0.0.1:-1")
	if code := serve(); code != 1 {
		t.Fatalf("expected exit code 1 when the listener fails, got %d", code)
	}
}
