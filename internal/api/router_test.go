package api

import (
	"testing"
	"time"
)

func TestMutationLimits_UsesConfiguredValues(t *testing.T) {
	t.Parallel()

	limit, window := mutationLimits(&RouterDeps{
		MutationLimit:  5,
		MutationWindow: 10 * time.Second,
	})

	if limit != 5 {
		t.Errorf("limit = %d, want 5", limit)
	}
	if window != 10*time.Second {
		t.Errorf("window = %v, want 10s", window)
	}
}

func TestMutationLimits_DefaultsWhenUnset(t *testing.T) {
	t.Parallel()

	limit, window := mutationLimits(&RouterDeps{})

	if limit != defaultMutationLimit {
		t.Errorf("limit = %d, want default %d", limit, defaultMutationLimit)
	}
	if window != defaultMutationWindow {
		t.Errorf("window = %v, want default %v", window, defaultMutationWindow)
	}
}
