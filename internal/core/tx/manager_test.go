package tx

import (
	"context"
	"errors"
	"testing"

	"tradebook/internal/core/apperror"
)

// passthroughManager runs the function without any transaction machinery.
type passthroughManager struct {
	calls int
}

func (m *passthroughManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

func TestRunWithRetrySucceedsFirstTry(t *testing.T) {
	m := &passthroughManager{}

	err := RunWithRetry(context.Background(), m, 3, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.calls != 1 {
		t.Errorf("calls = %d, want 1", m.calls)
	}
}

func TestRunWithRetryRetriesOnConflict(t *testing.T) {
	m := &passthroughManager{}
	fails := 2

	err := RunWithRetry(context.Background(), m, 3, func(ctx context.Context) error {
		if fails > 0 {
			fails--
			return apperror.NewConcurrentModification("bill", "x")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.calls != 3 {
		t.Errorf("calls = %d, want 3", m.calls)
	}
}

func TestRunWithRetryGivesUpAfterAttempts(t *testing.T) {
	m := &passthroughManager{}

	err := RunWithRetry(context.Background(), m, 2, func(ctx context.Context) error {
		return apperror.NewConcurrentModification("bill", "x")
	})
	if !apperror.IsConcurrentModification(err) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if m.calls != 2 {
		t.Errorf("calls = %d, want 2", m.calls)
	}
}

func TestRunWithRetryDoesNotRetryOtherErrors(t *testing.T) {
	m := &passthroughManager{}
	boom := errors.New("boom")

	err := RunWithRetry(context.Background(), m, 3, func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if m.calls != 1 {
		t.Errorf("calls = %d, want 1", m.calls)
	}
}

func TestRunWithRetryZeroAttemptsUsesDefault(t *testing.T) {
	m := &passthroughManager{}

	_ = RunWithRetry(context.Background(), m, 0, func(ctx context.Context) error {
		return apperror.NewConcurrentModification("bill", "x")
	})
	if m.calls != DefaultRetryAttempts {
		t.Errorf("calls = %d, want %d", m.calls, DefaultRetryAttempts)
	}
}
