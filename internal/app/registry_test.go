package app_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"relay-quiz-service/internal/app"
	"relay-quiz-service/internal/domain"
	"relay-quiz-service/internal/infra/memory"
)

func TestCreateRoomAllocatesFiveDigitID(t *testing.T) {
	registry := newTestRegistry(t, app.Config{})

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		session, err := registry.CreateRoom(player("u1", "Alice"), "History", "")
		if err != nil {
			t.Fatalf("create room: %v", err)
		}
		id := session.ID()
		if len(id) != 5 {
			t.Fatalf("expected 5-digit id, got %q", id)
		}
		for _, c := range id {
			if c < '0' || c > '9' {
				t.Fatalf("expected numeric id, got %q", id)
			}
		}
		if seen[id] {
			t.Fatalf("id %q assigned twice", id)
		}
		seen[id] = true
	}
}

func TestCreateRoomRequestedID(t *testing.T) {
	registry := newTestRegistry(t, app.Config{})

	session, err := registry.CreateRoom(player("u1", "Alice"), "History", "12345")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if session.ID() != "12345" {
		t.Fatalf("expected requested id, got %q", session.ID())
	}

	if _, err := registry.CreateRoom(player("u2", "Bob"), "History", "12345"); !errors.Is(err, domain.ErrRoomIDConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := registry.CreateRoom(player("u2", "Bob"), "History", "12ab5"); !errors.Is(err, domain.ErrInvalidRoomID) {
		t.Fatalf("expected invalid id, got %v", err)
	}
}

func TestCreateRoomRejectsBlankTopic(t *testing.T) {
	registry := newTestRegistry(t, app.Config{})

	if _, err := registry.CreateRoom(player("u1", "Alice"), "   ", ""); !errors.Is(err, domain.ErrInvalidTopic) {
		t.Fatalf("expected invalid topic, got %v", err)
	}
}

func TestJoinRoomIdempotent(t *testing.T) {
	registry := newTestRegistry(t, app.Config{})
	session := mustCreate(t, registry, "u1", "History")

	if _, err := registry.JoinRoom(session.ID(), player("u2", "Bob")); err != nil {
		t.Fatalf("join: %v", err)
	}
	state, err := registry.JoinRoom(session.ID(), player("u2", "Bob"))
	if err != nil {
		t.Fatalf("second join should be idempotent, got %v", err)
	}
	if len(state.Members) != 2 {
		t.Fatalf("expected 2 members after re-join, got %d", len(state.Members))
	}
}

func TestJoinRoomFull(t *testing.T) {
	registry := newTestRegistry(t, app.Config{})
	session := mustCreate(t, registry, "u1", "History")

	for i := 2; i <= 4; i++ {
		if _, err := registry.JoinRoom(session.ID(), player(fmt.Sprintf("u%d", i), fmt.Sprintf("P%d", i))); err != nil {
			t.Fatalf("join u%d: %v", i, err)
		}
	}
	if _, err := registry.JoinRoom(session.ID(), player("u5", "P5")); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("expected room full, got %v", err)
	}
	if got := len(session.Snapshot().Members); got != 4 {
		t.Fatalf("membership changed on rejected join: %d", got)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	registry := newTestRegistry(t, app.Config{})
	if _, err := registry.JoinRoom("99999", player("u1", "Alice")); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLeaveRoomPromotesCreatorAndEvictsEmpty(t *testing.T) {
	registry := newTestRegistry(t, app.Config{})
	session := mustCreate(t, registry, "u1", "History")
	mustJoin(t, registry, session.ID(), "u2", "Bob")

	if err := registry.LeaveRoom(session.ID(), "u1"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if got := session.CreatorID(); got != "u2" {
		t.Fatalf("expected next-joined member promoted to creator, got %q", got)
	}

	if err := registry.LeaveRoom(session.ID(), "u2"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, err := registry.JoinRoom(session.ID(), player("u3", "Cara")); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected empty room evicted, got %v", err)
	}
}

func TestLeaveRejectsNonMember(t *testing.T) {
	registry := newTestRegistry(t, app.Config{})
	session := mustCreate(t, registry, "u1", "History")

	if err := registry.LeaveRoom(session.ID(), "ghost"); !errors.Is(err, domain.ErrNotAMember) {
		t.Fatalf("expected not a member, got %v", err)
	}
}

func TestSweepEvictsIdleRooms(t *testing.T) {
	registry := newTestRegistry(t, app.Config{RoomIdleTTL: 10 * time.Millisecond})
	session := mustCreate(t, registry, "u1", "History")

	time.Sleep(30 * time.Millisecond)
	if n := registry.Sweep(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if _, err := registry.Snapshot(session.ID()); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected room gone after sweep, got %v", err)
	}
}

func player(id, name string) domain.Player {
	return domain.Player{ID: id, DisplayName: name}
}

func mustCreate(t *testing.T, registry *app.Registry, creatorID, topic string) *app.Session {
	t.Helper()
	session, err := registry.CreateRoom(player(creatorID, "Creator-"+creatorID), topic, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return session
}

func mustJoin(t *testing.T, registry *app.Registry, roomID, id, name string) {
	t.Helper()
	if _, err := registry.JoinRoom(roomID, player(id, name)); err != nil {
		t.Fatalf("join %s: %v", id, err)
	}
}

// newTestRegistry builds a registry over in-memory infrastructure with a
// 5-question History bank.
func newTestRegistry(t *testing.T, cfg app.Config) *app.Registry {
	t.Helper()
	return newTestRegistryWithSink(t, cfg, memory.NewResultSink())
}

func newTestRegistryWithSink(t *testing.T, cfg app.Config, sink app.ResultSink) *app.Registry {
	t.Helper()
	store := memory.NewRoomStore()
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(map[string][]domain.Question{
		"History": historyBank(5),
	}), 5*time.Minute)
	return app.NewRegistry(store, questions, sink, cfg)
}

func historyBank(n int) []domain.Question {
	bank := make([]domain.Question, n)
	for i := range bank {
		bank[i] = domain.Question{
			Prompt:  fmt.Sprintf("History question %d", i+1),
			Options: []string{rightAnswer(i), "wrong-a", "wrong-b", "wrong-c"},
			Answer:  rightAnswer(i),
			Topic:   "History",
		}
	}
	return bank
}

// rightAnswer is the correct option of question i in historyBank.
func rightAnswer(i int) string {
	return fmt.Sprintf("right-%d", i)
}
