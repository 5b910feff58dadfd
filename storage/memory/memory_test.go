package memory

import (
	"context"
	"sync"
	"testing"
)

func TestStore_Increment(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.IncrementViolations(ctx, "caller")
		if err != nil {
			t.Fatalf("IncrementViolations() error: %v", err)
		}
		if got != want {
			t.Errorf("IncrementViolations() = %d, want %d", got, want)
		}
	}

	count, err := s.Violations(ctx, "caller")
	if err != nil {
		t.Fatalf("Violations() error: %v", err)
	}
	if count != 3 {
		t.Errorf("Violations() = %d, want 3", count)
	}
}

func TestStore_UnknownIdentifier(t *testing.T) {
	s := NewStore(nil)

	count, err := s.Violations(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("Violations() error: %v", err)
	}
	if count != 0 {
		t.Errorf("Violations() = %d, want 0", count)
	}
}

func TestStore_Reset(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	s.IncrementViolations(ctx, "caller")
	s.IncrementViolations(ctx, "caller")

	if err := s.ResetViolations(ctx, "caller"); err != nil {
		t.Fatalf("ResetViolations() error: %v", err)
	}

	count, _ := s.Violations(ctx, "caller")
	if count != 0 {
		t.Errorf("Violations() after reset = %d, want 0", count)
	}
	if s.Size() != 0 {
		t.Errorf("Size() after reset = %d, want 0", s.Size())
	}
}

func TestStore_SeparateIdentifiers(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	s.IncrementViolations(ctx, "a")
	s.IncrementViolations(ctx, "a")
	s.IncrementViolations(ctx, "b")

	countA, _ := s.Violations(ctx, "a")
	countB, _ := s.Violations(ctx, "b")
	if countA != 2 || countB != 1 {
		t.Errorf("Violations() = (%d, %d), want (2, 1)", countA, countB)
	}
	if s.Size() != 2 {
		t.Errorf("Size() = %d, want 2", s.Size())
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.IncrementViolations(ctx, "shared")
			}
		}()
	}
	wg.Wait()

	count, _ := s.Violations(ctx, "shared")
	if count != 1000 {
		t.Errorf("Violations() = %d, want 1000", count)
	}
}
