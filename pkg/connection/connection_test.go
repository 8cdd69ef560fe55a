package connection

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Run("CustomConfig", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{
			Initial:    100 * time.Millisecond,
			Max:        500 * time.Millisecond,
			Multiplier: 2.0,
			Jitter:     0, // No jitter for deterministic test
		})

		expected := []time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			400 * time.Millisecond,
			500 * time.Millisecond, // Max
			500 * time.Millisecond,
		}

		for i, exp := range expected {
			got := b.Next()
			if got != exp {
				t.Errorf("Attempt %d: got %v, want %v", i, got, exp)
			}
		}
	})

	t.Run("Jitter", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{
			Initial: 1 * time.Second,
			Max:     60 * time.Second,
			Jitter:  0.25,
		})

		samples := make([]time.Duration, 10)
		for i := range samples {
			samples[i] = b.addJitter(1 * time.Second)
		}

		for i, s := range samples {
			if s < 1*time.Second || s > time.Duration(float64(1*time.Second)*1.25)+time.Millisecond {
				t.Errorf("Sample %d: %v out of expected range [1s, 1.25s]", i, s)
			}
		}

		allSame := true
		for i := 1; i < len(samples); i++ {
			if samples[i] != samples[0] {
				allSame = false
				break
			}
		}
		if allSame {
			t.Error("All jittered samples are identical - jitter may not be working")
		}
	})

	t.Run("DefaultsApplied", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{})
		if b.current != defaultInitialBackoff {
			t.Errorf("current = %v, want default %v", b.current, defaultInitialBackoff)
		}
		if b.max != defaultMaxBackoff {
			t.Errorf("max = %v, want default %v", b.max, defaultMaxBackoff)
		}
		if b.multiplier != defaultMultiplier {
			t.Errorf("multiplier = %v, want default %v", b.multiplier, defaultMultiplier)
		}
	})
}
