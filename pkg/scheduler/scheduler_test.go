package scheduler

import (
	"testing"

	"github.com/pkg/errors"
)

func TestRunDrainsQueueInOrder(t *testing.T) {
	s := New(4)
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		s.Spawn(func() error {
			order = append(order, i)
			return nil
		})
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []int{0, 1, 2}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i, v := range want {
		if order[i] != v {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestSpawnReportsBackpressureWhenFull(t *testing.T) {
	s := New(1)
	if !s.Spawn(func() error { return nil }) {
		t.Fatal("first Spawn should succeed")
	}
	if s.Spawn(func() error { return nil }) {
		t.Fatal("second Spawn should report backpressure")
	}
}

func TestRunPropagatesTaskError(t *testing.T) {
	s := New(2)
	s.Spawn(func() error { return errors.New("boom") })
	err := s.Run()
	if err == nil {
		t.Fatal("expected error from failing task")
	}
}

func TestNestedSpawnRunsWithinSameRun(t *testing.T) {
	s := New(4)
	ran := false
	s.Spawn(func() error {
		s.Spawn(func() error {
			ran = true
			return nil
		})
		return nil
	})
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ran {
		t.Fatal("nested task never ran")
	}
}
