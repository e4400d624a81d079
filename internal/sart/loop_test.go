package sart

import (
	"context"
	"slices"
	"testing"
	"time"
)

func TestLoopFiresInOrder(t *testing.T) {
	loop := NewManualLoop(testEpoch)
	var fired []string
	loop.Do(func() {
		loop.Schedule(30*time.Millisecond, "a", "third", func() { fired = append(fired, "third") })
		loop.Schedule(10*time.Millisecond, "a", "first", func() { fired = append(fired, "first") })
		loop.Schedule(10*time.Millisecond, "b", "second", func() { fired = append(fired, "second") })
	})

	if got := loop.PendingNames(); !slices.Equal(got, []string{"first", "second", "third"}) {
		t.Errorf("PendingNames() = %v", got)
	}
	loop.Advance(20 * time.Millisecond)
	if !slices.Equal(fired, []string{"first", "second"}) {
		t.Errorf("fired = %v after 20ms", fired)
	}
	loop.Advance(10 * time.Millisecond)
	if !slices.Equal(fired, []string{"first", "second", "third"}) {
		t.Errorf("fired = %v after 30ms", fired)
	}
	if got := loop.Now().Sub(testEpoch); got != 30*time.Millisecond {
		t.Errorf("clock at %v, want 30ms", got)
	}
}

func TestLoopChainedTimersFireWithinAdvance(t *testing.T) {
	loop := NewManualLoop(testEpoch)
	var at []time.Duration
	var tick func()
	tick = func() {
		at = append(at, loop.Now().Sub(testEpoch))
		if len(at) < 3 {
			loop.Schedule(time.Second, "tick", "tick", tick)
		}
	}
	loop.Do(func() { loop.Schedule(time.Second, "tick", "tick", tick) })

	loop.Advance(10 * time.Second)
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}
	if !slices.Equal(at, want) {
		t.Errorf("ticks at %v, want %v", at, want)
	}
}

func TestLoopCancel(t *testing.T) {
	loop := NewManualLoop(testEpoch)
	fired := 0
	var keep, drop TimerID
	loop.Do(func() {
		keep = loop.Schedule(time.Second, "phase/1", "keep", func() { fired++ })
		drop = loop.Schedule(time.Second, "phase/1", "drop", func() { fired += 100 })
		loop.Schedule(time.Second, "phase/2", "other", func() { fired += 10 })
	})

	loop.Do(func() {
		if !loop.Cancel(drop) {
			t.Error("Cancel(drop) = false")
		}
		if loop.Cancel(drop) {
			t.Error("second Cancel(drop) = true")
		}
	})
	if n := loop.PendingTag("phase/1"); n != 1 {
		t.Errorf("PendingTag(phase/1) = %d, want 1", n)
	}
	loop.Do(func() {
		if n := loop.CancelTag("phase/2"); n != 1 {
			t.Errorf("CancelTag(phase/2) = %d, want 1", n)
		}
	})

	loop.Advance(time.Second)
	if fired != 1 {
		t.Errorf("fired = %d, want only the kept timer", fired)
	}
	loop.Do(func() {
		if loop.Cancel(keep) {
			t.Error("Cancel after firing = true")
		}
	})
}

func TestLoopCancelAll(t *testing.T) {
	loop := NewManualLoop(testEpoch)
	loop.Do(func() {
		for i := 0; i < 5; i++ {
			loop.Schedule(time.Duration(i)*time.Second, "x", "x", func() { t.Error("cancelled timer fired") })
		}
		if n := loop.CancelAll(); n != 5 {
			t.Errorf("CancelAll() = %d, want 5", n)
		}
	})
	loop.Advance(time.Minute)
	if n := loop.Pending(); n != 0 {
		t.Errorf("Pending() = %d, want 0", n)
	}
}

func TestLoopRunRealTime(t *testing.T) {
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	fired := make(chan time.Duration, 1)
	start := time.Now()
	loop.Do(func() {
		loop.Schedule(20*time.Millisecond, "t", "t", func() { fired <- time.Since(start) })
	})

	select {
	case elapsed := <-fired:
		if elapsed < 20*time.Millisecond {
			t.Errorf("timer fired after %v, want at least 20ms", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
