package syncx

import (
	"sync"
	"testing"
)

func TestView(t *testing.T) {
	g := NewGuard([]int{1, 2, 3})

	n := View(g, func(v []int) int { return len(v) })
	if n != 3 {
		t.Errorf("View() = %d, want 3", n)
	}
}

func TestMutate(t *testing.T) {
	g := NewGuard([]string{"a", "b"})

	head := Mutate(g, func(v *[]string) string {
		h := (*v)[0]
		*v = (*v)[1:]
		return h
	})

	if head != "a" {
		t.Errorf("Mutate returned %q, want %q", head, "a")
	}
	if got := View(g, func(v []string) string { return v[0] }); got != "b" {
		t.Errorf("head after Mutate = %q, want %q", got, "b")
	}
}

func TestMutateStruct(t *testing.T) {
	type counter struct{ value int }
	g := NewGuard(counter{})

	Mutate(g, func(c *counter) struct{} {
		c.value = 42
		return struct{}{}
	})

	if got := View(g, func(c counter) int { return c.value }); got != 42 {
		t.Errorf("value = %d, want 42", got)
	}
}

func TestGuardConcurrentSafety(t *testing.T) {
	g := NewGuard(0)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Mutate(g, func(v *int) int {
				*v++
				return *v
			})
		}()
	}

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = View(g, func(v int) int { return v })
		}()
	}

	wg.Wait()

	if got := View(g, func(v int) int { return v }); got != 100 {
		t.Errorf("value = %d, want 100", got)
	}
}
