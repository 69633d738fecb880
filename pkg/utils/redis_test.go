package utils

import (
	"context"
	"testing"
	"time"
)

func TestThrottleScriptCompiles(t *testing.T) {
	// Compile-time smoke test: script should be initialized.
	if throttleScript == nil {
		t.Fatalf("expected script to be initialized")
	}
}

func TestThrottleAllow_ValidatesArgs(t *testing.T) {
	ctx := context.Background()
	if _, err := ThrottleAllow(ctx, nil, "k", 5, time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
