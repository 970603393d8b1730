package ringbuf

import (
	"testing"

	"daytrader-systemv1/internal/model"
)

func tick(token string, price float64) model.Tick {
	return model.Tick{Token: token, Price: price}
}

func TestPushPopOrder(t *testing.T) {
	r := New(8)
	for i := 0; i < 5; i++ {
		if !r.Push(tick("tok", float64(i))) {
			t.Fatalf("push %d failed", i)
		}
	}
	if r.Len() != 5 {
		t.Errorf("Len = %d, want 5", r.Len())
	}
	for i := 0; i < 5; i++ {
		got, ok := r.Pop()
		if !ok {
			t.Fatalf("pop %d failed", i)
		}
		if got.Price != float64(i) {
			t.Errorf("pop %d = %v, want %v (FIFO)", i, got.Price, float64(i))
		}
	}
	if _, ok := r.Pop(); ok {
		t.Error("pop on empty buffer should fail")
	}
}

func TestOverflowDropsNewest(t *testing.T) {
	r := New(4)
	for i := 0; i < 4; i++ {
		if !r.Push(tick("tok", float64(i))) {
			t.Fatalf("push %d failed", i)
		}
	}
	if r.Push(tick("tok", 99)) {
		t.Error("push on full buffer should fail")
	}
	if r.Overflow() != 1 {
		t.Errorf("Overflow = %d, want 1", r.Overflow())
	}
	// Buffered ticks are intact.
	got, _ := r.Pop()
	if got.Price != 0 {
		t.Errorf("head = %v, want oldest tick", got.Price)
	}
}

func TestCapacityRoundsToPowerOfTwo(t *testing.T) {
	cases := map[int]int{1: 2, 2: 2, 3: 4, 5: 8, 8: 8, 100: 128}
	for in, want := range cases {
		if got := New(in).Cap(); got != want {
			t.Errorf("New(%d).Cap() = %d, want %d", in, got, want)
		}
	}
}

func TestWrapAround(t *testing.T) {
	r := New(4)
	for round := 0; round < 10; round++ {
		for i := 0; i < 3; i++ {
			if !r.Push(tick("tok", float64(round*10+i))) {
				t.Fatalf("round %d push %d failed", round, i)
			}
		}
		for i := 0; i < 3; i++ {
			got, ok := r.Pop()
			if !ok || got.Price != float64(round*10+i) {
				t.Fatalf("round %d pop %d = %v/%v", round, i, got.Price, ok)
			}
		}
	}
}
