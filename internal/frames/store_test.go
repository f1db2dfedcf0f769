package frames

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/framecap/internal/resilience"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
}

func frameAt(dir string, i int) Frame {
	ts := Timestamp(time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local).Add(time.Duration(i) * time.Second))
	return Frame{Timestamp: ts, Image: fmt.Sprintf("img%d", i), Path: PathFor(dir, ts)}
}

func TestInsertEvictsOldestAndRemovesFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(50)

	var first Frame
	for i := 1; i <= 51; i++ {
		f := frameAt(dir, i)
		writePNG(t, f.Path)
		if i == 1 {
			first = f
		}
		evicted := s.Insert(context.Background(), f)
		if i <= 50 && evicted != nil {
			t.Fatalf("insert %d evicted %v before capacity reached", i, evicted.Timestamp)
		}
		if i == 51 && (evicted == nil || evicted.Timestamp != first.Timestamp) {
			t.Fatalf("insert 51 evicted %v, want %s", evicted, first.Timestamp)
		}
	}

	if s.Len() != 50 {
		t.Errorf("Len() = %d, want 50", s.Len())
	}
	if _, err := os.Stat(first.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("evicted file still exists: %v", err)
	}
	all := s.All()
	if all[0].Timestamp != frameAt(dir, 2).Timestamp {
		t.Errorf("oldest = %s, want frame 2", all[0].Timestamp)
	}
}

func TestInsertEvictionMissingFile(t *testing.T) {
	s := NewStore(1)
	s.Insert(context.Background(), Frame{Timestamp: "a", Path: filepath.Join(t.TempDir(), "gone.png")})

	evicted := s.Insert(context.Background(), Frame{Timestamp: "b"})
	if evicted == nil || evicted.Timestamp != "a" {
		t.Fatalf("evicted = %v, want a", evicted)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestInsertEvictionRemoveFailure(t *testing.T) {
	s := NewStore(1)
	s.retry.BaseDelay = time.Millisecond
	calls := 0
	s.remove = func(string) error {
		calls++
		return errors.New("device busy")
	}

	s.Insert(context.Background(), Frame{Timestamp: "a", Path: "a.png"})
	s.Insert(context.Background(), Frame{Timestamp: "b", Path: "b.png"})

	if calls != s.retry.MaxRetries+1 {
		t.Errorf("remove called %d times, want %d", calls, s.retry.MaxRetries+1)
	}
	if got := s.Recent(1); got[0].Timestamp != "b" {
		t.Errorf("Recent(1) = %v, want b", got)
	}
}

func TestInsertEvictionSkipsRemovalWhileBreakerOpen(t *testing.T) {
	s := NewStore(1)
	s.retry.BaseDelay = time.Millisecond
	calls := 0
	s.remove = func(string) error {
		calls++
		return errors.New("read-only file system")
	}

	for i := 0; i <= resilience.FileThreshold+1; i++ {
		s.Insert(context.Background(), Frame{Timestamp: fmt.Sprint(i), Path: fmt.Sprint(i)})
	}

	// First insert evicts nothing; the next FileThreshold evictions trip the
	// breaker and the last one is skipped.
	want := resilience.FileThreshold * (s.retry.MaxRetries + 1)
	if calls != want {
		t.Errorf("remove called %d times, want %d", calls, want)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestRecent(t *testing.T) {
	s := NewStore(50)
	for _, ts := range []string{"T1", "T2", "T3"} {
		s.Insert(context.Background(), Frame{Timestamp: ts})
	}

	tests := []struct {
		n    int
		want []string
	}{
		{2, []string{"T2", "T3"}},
		{6, []string{"T1", "T2", "T3"}},
		{0, nil},
	}
	for _, tt := range tests {
		got := s.Recent(tt.n)
		if len(got) != len(tt.want) {
			t.Errorf("Recent(%d) len = %d, want %d", tt.n, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i].Timestamp != tt.want[i] {
				t.Errorf("Recent(%d)[%d] = %s, want %s", tt.n, i, got[i].Timestamp, tt.want[i])
			}
		}
	}
}

func TestRecentEmpty(t *testing.T) {
	got := NewStore(50).Recent(6)
	if got == nil || len(got) != 0 {
		t.Errorf("Recent(6) = %v, want empty non-nil slice", got)
	}
}

func TestRecentReturnsCopy(t *testing.T) {
	s := NewStore(5)
	s.Insert(context.Background(), Frame{Timestamp: "T1"})

	got := s.Recent(1)
	got[0].Timestamp = "mutated"
	if s.Recent(1)[0].Timestamp != "T1" {
		t.Error("Recent() should not expose store internals")
	}
}

func TestConcurrentInsertAndRead(t *testing.T) {
	s := NewStore(10)
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Insert(context.Background(), Frame{Timestamp: fmt.Sprintf("%d-%d", i, j)})
			}
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if n := len(s.Recent(6)); n > 6 {
					t.Errorf("Recent(6) returned %d frames", n)
				}
			}
		}()
	}
	wg.Wait()

	if s.Len() != 10 {
		t.Errorf("Len() = %d, want 10", s.Len())
	}
}

func TestNewStoreDefaultCapacity(t *testing.T) {
	if c := NewStore(0).Capacity(); c != DefaultCapacity {
		t.Errorf("Capacity() = %d, want %d", c, DefaultCapacity)
	}
}
