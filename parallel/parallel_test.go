package parallel

import "context"
import "errors"
import "sync/atomic"
import "testing"

func TestForEachVisitsAll(t *testing.T) {
	for _, limit := range []int{0, 1, 3, 100} {
		var seen [50]atomic.Int32
		ForEach(len(seen), limit, func(i int) {
			seen[i].Add(1)
		})
		for i := range seen {
			if n := seen[i].Load(); n != 1 {
				t.Errorf("limit %d: index %d visited %d times", limit, i, n)
			}
		}
	}
}

func TestMapOrder(t *testing.T) {
	jobs := []int{5, 4, 3, 2, 1, 0}
	res, err := Map(context.Background(), jobs, 3, func(_ context.Context, j int) (int, error) {
		return j * j, nil
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	for i, j := range jobs {
		if res[i] != j*j {
			t.Errorf("res[%d] = %d, want %d", i, res[i], j*j)
		}
	}
}

func TestMapAborts(t *testing.T) {
	bad := errors.New("bad job")
	_, err := Map(context.Background(), []int{1, 2, 3, 4}, 2, func(_ context.Context, j int) (int, error) {
		if j == 3 {
			return 0, bad
		}
		return j, nil
	})
	if !errors.Is(err, bad) {
		t.Fatalf("Map error = %v, want %v", err, bad)
	}
}

func TestBarrierWaitsForAll(t *testing.T) {
	var done atomic.Int32
	fns := make([]func(context.Context) error, 4)
	for i := range fns {
		fns[i] = func(context.Context) error {
			done.Add(1)
			return nil
		}
	}
	if err := Barrier(context.Background(), fns...); err != nil {
		t.Fatalf("Barrier: %v", err)
	}
	if done.Load() != 4 {
		t.Errorf("done = %d, want 4", done.Load())
	}
}
