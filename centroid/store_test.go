package centroid

import "context"
import "testing"

func TestStoreRoundTrip(t *testing.T) {
	store, err := OpenStore(StoreOptions{InMemory: true})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	table := NewTable(3)
	_ = table.Set(0, []float64{1, 2, 3})
	_ = table.Set(7, []float64{-1, 0.5, 0})
	ctx := context.Background()
	if err := store.Save(ctx, table); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx, 3)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("Len = %d, want 2", got.Len())
	}
	for _, id := range table.IDs() {
		want, _ := table.Get(id)
		if row, _ := got.Get(id); !near(row, want) {
			t.Errorf("centroid[%d] = %v, want %v", id, row, want)
		}
	}
}

func TestStoreOnDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(StoreOptions{Dir: dir})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	table := NewTable(2)
	_ = table.Set(2, []float64{0.25, 0.75})
	if err := store.Save(context.Background(), table); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err = OpenStore(StoreOptions{Dir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	got, err := store.Load(context.Background(), 2)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if row, ok := got.Get(2); !ok || !near(row, []float64{0.25, 0.75}) {
		t.Errorf("centroid[2] = %v", row)
	}
}

func TestOpenStoreNeedsDir(t *testing.T) {
	if _, err := OpenStore(StoreOptions{}); err != ErrStore {
		t.Errorf("OpenStore = %v, want ErrStore", err)
	}
}
