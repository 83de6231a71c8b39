package memory

import "testing"

func TestRoomStoreReserveAndDelete(t *testing.T) {
	store := NewRoomStore()

	if !store.Reserve("12345", nil) {
		t.Fatalf("expected reservation to succeed")
	}
	if store.Reserve("12345", nil) {
		t.Fatalf("expected duplicate reservation to fail")
	}
	if _, ok := store.Get("12345"); !ok {
		t.Fatalf("expected room present")
	}
	if got := len(store.All()); got != 1 {
		t.Fatalf("expected 1 room, got %d", got)
	}

	store.Delete("12345")
	if _, ok := store.Get("12345"); ok {
		t.Fatalf("expected room removed")
	}
}
