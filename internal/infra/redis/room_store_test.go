package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRoomStoreSetsAndClearsReservations(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRoomStore(client, time.Minute)

	if !store.Reserve("12345", nil) {
		t.Fatalf("expected reservation to succeed")
	}
	if !mr.Exists("quiz:room:12345") {
		t.Fatalf("expected redis reservation key to be set")
	}

	store.Delete("12345")
	if mr.Exists("quiz:room:12345") {
		t.Fatalf("expected redis reservation key to be removed")
	}
}

func TestRoomStoreReservationSharedAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	first := NewRoomStore(client, time.Minute)
	second := NewRoomStore(client, time.Minute)

	if !first.Reserve("54321", nil) {
		t.Fatalf("expected first reservation to succeed")
	}
	if second.Reserve("54321", nil) {
		t.Fatalf("expected second instance to see the reservation")
	}
}
