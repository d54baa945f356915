package pq

import "testing"

func TestEnqueueThenDrainPreservesOrder(t *testing.T) {
	q := New()
	for i := uint64(0); i < 5; i++ {
		if !q.Enqueue(0x1000 + i*64) {
			t.Fatalf("expected enqueue %d to succeed", i)
		}
	}
	if q.Pending() != 5 {
		t.Fatalf("expected 5 pending, got %d", q.Pending())
	}

	got := q.Drain(3)
	if len(got) != 3 {
		t.Fatalf("expected Drain(3) to return 3 requests, got %d", len(got))
	}
	want := []uint64{0x1000, 0x1040, 0x1080}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected oldest-first order %v, got %v", want, got)
		}
	}
	if q.Pending() != 2 {
		t.Fatalf("expected 2 requests left pending, got %d", q.Pending())
	}
}

func TestDrainWithoutEnoughPendingReturnsWhatItHas(t *testing.T) {
	q := New()
	q.Enqueue(0xAAAA)
	got := q.Drain(4)
	if len(got) != 1 {
		t.Fatalf("expected 1 request drained, got %d", len(got))
	}
	if q.Pending() != 0 {
		t.Fatalf("expected queue empty after draining everything pending")
	}
}

func TestEnqueueRefusesWhenWindowIsFull(t *testing.T) {
	q := New()
	for i := 0; i < WindowSize; i++ {
		if !q.Enqueue(uint64(i)) {
			t.Fatalf("expected slot %d to admit a request", i)
		}
	}
	if q.Enqueue(0xFFFF) {
		t.Fatalf("expected a full window to refuse further enqueues")
	}
	if q.Pending() != WindowSize {
		t.Fatalf("expected window to stay at capacity %d, got %d", WindowSize, q.Pending())
	}
}

func TestDrainFreesSlotsForReuse(t *testing.T) {
	q := New()
	for i := 0; i < WindowSize; i++ {
		q.Enqueue(uint64(i))
	}
	q.Drain(WindowSize)
	if q.Pending() != 0 {
		t.Fatalf("expected queue empty after full drain")
	}
	if !q.Enqueue(0x9999) {
		t.Fatalf("expected a freshly drained window to admit new requests")
	}
}
