package ratelimit

import (
	"errors"
	"testing"
)

func TestQuota_TryIncrement(t *testing.T) {
	for _, threshold := range []int{1, 3, 10} {
		q := NewQuota(threshold)

		for i := 0; i < threshold; i++ {
			if err := q.TryIncrement(); err != nil {
				t.Fatalf("threshold %d: request %d error = %v", threshold, i+1, err)
			}
		}

		err := q.TryIncrement()
		if !errors.Is(err, ErrQuotaExceeded) {
			t.Errorf("threshold %d: error = %v, want ErrQuotaExceeded", threshold, err)
		}
		if q.Count() != threshold {
			t.Errorf("threshold %d: Count() = %d after rejected increment", threshold, q.Count())
		}
	}
}

func TestQuota_ErrorCarriesThreshold(t *testing.T) {
	q := NewQuota(2)
	q.TryIncrement()
	q.TryIncrement()

	err := q.TryIncrement()

	var qe *QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("error = %T, want *QuotaExceededError", err)
	}
	if qe.Threshold != 2 {
		t.Errorf("Threshold = %d, want 2", qe.Threshold)
	}
}

func TestQuota_DefaultThreshold(t *testing.T) {
	tests := []struct {
		name string
		in   int
	}{
		{"zero", 0},
		{"negative", -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuota(tt.in)
			if q.Threshold() != DefaultQueryThreshold {
				t.Errorf("Threshold() = %d, want %d", q.Threshold(), DefaultQueryThreshold)
			}
		})
	}
}

func TestQuota_Remaining(t *testing.T) {
	q := NewQuota(3)

	if rem := q.Remaining(); rem != 3 {
		t.Errorf("Remaining() = %d, want 3", rem)
	}

	q.TryIncrement()
	q.TryIncrement()
	q.TryIncrement()
	q.TryIncrement()

	if rem := q.Remaining(); rem != 0 {
		t.Errorf("Remaining() = %d, want 0", rem)
	}
}

func TestQuota_Concurrent(t *testing.T) {
	q := NewQuota(100)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 20; j++ {
				q.TryIncrement()
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	if q.Count() != 100 {
		t.Errorf("Count() = %d, want 100 after concurrent access", q.Count())
	}
}
