package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestKeyed_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{
			name:     "burst allows initial requests",
			rps:      1,
			burst:    3,
			calls:    3,
			wantPass: 3,
		},
		{
			name:     "exceeding burst blocks",
			rps:      1,
			burst:    2,
			calls:    5,
			wantPass: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)
			defer rl.Stop()

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if rl.Allow("session") {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyed_IndependentKeys(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	if !rl.Allow("a") {
		t.Error("first request for key a should pass")
	}
	if rl.Allow("a") {
		t.Error("second request for key a should be blocked")
	}
	if !rl.Allow("b") {
		t.Error("key b should have its own bucket")
	}
}

func TestKeyed_Forget(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	rl.Allow("session")
	if rl.Allow("session") {
		t.Fatal("bucket should be exhausted")
	}

	rl.Forget("session")
	if !rl.Allow("session") {
		t.Error("forgotten key should get a fresh bucket")
	}
}

func TestKeyed_WaitCanceled(t *testing.T) {
	rl := New(0.001, 1)
	defer rl.Stop()

	rl.Allow("slow") // drain the bucket

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx, "slow"); err == nil {
		t.Error("Wait should fail when the context expires first")
	}
}
