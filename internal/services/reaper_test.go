package services

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestReaperEvictsIdleSessions(t *testing.T) {
	r := newTestRegistry(t, make(chan savedReport, 1))
	now := testEpoch
	r.now = func() time.Time { return now }
	if _, err := r.Create("p-1", ""); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewReaper(zap.NewNop(), r, time.Minute, 10*time.Millisecond).Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for r.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("reaper did not evict the idle session")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
