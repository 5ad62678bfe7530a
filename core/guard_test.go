package core

import (
	"testing"
	"time"
)

func TestSubmitGuard(t *testing.T) {
	guard := NewSubmitGuard(2 * time.Second)

	now := time.Now()
	guard.nowFunc = func() time.Time { return now }

	if err := guard.Check("usr1"); err != nil {
		t.Fatalf("first submission: err = %v", err)
	}
	if err := guard.Check("usr1"); err != ErrSubmitTooSoon {
		t.Errorf("immediate resubmission: err = %v; want ErrSubmitTooSoon", err)
	}
	// a different actor is not throttled
	if err := guard.Check("usr2"); err != nil {
		t.Errorf("other actor: err = %v", err)
	}

	guard.nowFunc = func() time.Time { return now.Add(1 * time.Second) }
	if err := guard.Check("usr1"); err != ErrSubmitTooSoon {
		t.Errorf("within gap: err = %v; want ErrSubmitTooSoon", err)
	}

	guard.nowFunc = func() time.Time { return now.Add(2 * time.Second) }
	if err := guard.Check("usr1"); err != nil {
		t.Errorf("after gap: err = %v", err)
	}
}
