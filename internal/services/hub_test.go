package services

import (
	"testing"

	"sart-go/internal/sart"
)

func TestHubCoalescesSnapshots(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("s-1")
	other := h.Subscribe("s-2")

	for i := 1; i <= 3; i++ {
		h.Publish("s-1", sart.Snapshot{Trial: i})
	}

	got := <-sub.C()
	if got.Trial != 3 {
		t.Errorf("received trial %d, want the latest (3)", got.Trial)
	}
	select {
	case s := <-other.C():
		t.Errorf("other session received %+v", s)
	default:
	}

	h.Unsubscribe("s-1", sub)
	h.Unsubscribe("s-1", sub)
	if h.Count("s-1") != 0 {
		t.Errorf("Count() = %d after Unsubscribe()", h.Count("s-1"))
	}
	h.Publish("s-1", sart.Snapshot{})

	h.CloseSession("s-2")
	if _, ok := <-other.C(); ok {
		t.Error("channel open after CloseSession()")
	}
	h.Unsubscribe("s-2", other)
}
