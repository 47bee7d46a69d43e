package queue

import "testing"

func TestDropOldestEvictsHead(t *testing.T) {
	t.Parallel()

	q := NewDropOldest[int](2)
	if q.Push(1) || q.Push(2) {
		t.Fatalf("no drop expected while below capacity")
	}
	if !q.Push(3) {
		t.Fatalf("push into full queue should report a drop")
	}
	if q.Dropped() != 1 || q.Len() != 2 {
		t.Fatalf("dropped=%d len=%d", q.Dropped(), q.Len())
	}
	for _, want := range []int{2, 3} {
		got, ok := q.TryPop()
		if !ok || got != want {
			t.Fatalf("pop=%d,%v want %d", got, ok, want)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Fatalf("queue should be empty")
	}
}

func TestZeroSizeClampsToOne(t *testing.T) {
	t.Parallel()

	q := NewDropOldest[string](0)
	if q.Cap() != 1 {
		t.Fatalf("cap=%d", q.Cap())
	}
}
