package buffer

import (
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestAddAndDrain(t *testing.T) {
	rb := New[int](5, zap.NewNop())

	for i := 1; i <= 3; i++ {
		rb.Add(i)
	}

	if rb.Size() != 3 {
		t.Errorf("Expected size 3, got %d", rb.Size())
	}

	items := rb.GetAllAndClear()
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	for i, item := range items {
		if item != i+1 {
			t.Errorf("Position %d: expected %d, got %d", i, i+1, item)
		}
	}

	if rb.Size() != 0 {
		t.Errorf("Expected empty buffer after drain, got size %d", rb.Size())
	}
}

func TestOverwriteWhenFull(t *testing.T) {
	rb := New[int](3, zap.NewNop())

	for i := 1; i <= 5; i++ {
		rb.Add(i)
	}

	if rb.Size() != 3 {
		t.Errorf("Expected size capped at 3, got %d", rb.Size())
	}
	if rb.Overwrites() != 2 {
		t.Errorf("Expected 2 overwrites, got %d", rb.Overwrites())
	}

	// The two oldest entries were overwritten; 3, 4, 5 remain oldest first
	items := rb.GetAllAndClear()
	expected := []int{3, 4, 5}
	for i, item := range items {
		if item != expected[i] {
			t.Errorf("Position %d: expected %d, got %d", i, expected[i], item)
		}
	}
}

func TestGetAllAndClearEmpty(t *testing.T) {
	rb := New[int](3, zap.NewNop())
	if items := rb.GetAllAndClear(); items != nil {
		t.Errorf("Expected nil for empty buffer, got %v", items)
	}
}

func TestReuseAfterDrain(t *testing.T) {
	rb := New[int](3, zap.NewNop())

	for i := 1; i <= 4; i++ {
		rb.Add(i)
	}
	rb.GetAllAndClear()

	rb.Add(10)
	rb.Add(11)

	items := rb.GetAllAndClear()
	if len(items) != 2 || items[0] != 10 || items[1] != 11 {
		t.Errorf("Expected [10 11] after reuse, got %v", items)
	}
}

func TestCapacity(t *testing.T) {
	rb := New[string](42, zap.NewNop())
	if rb.Capacity() != 42 {
		t.Errorf("Expected capacity 42, got %d", rb.Capacity())
	}
}

func TestConcurrentAdd(t *testing.T) {
	rb := New[int](1000, zap.NewNop())

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				rb.Add(i)
			}
		}()
	}
	wg.Wait()

	if rb.Size() != 1000 {
		t.Errorf("Expected 1000 entries, got %d", rb.Size())
	}
}
