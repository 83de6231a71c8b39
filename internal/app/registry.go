package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"relay-quiz-service/internal/domain"
)

// RoomStore abstracts how active rooms are tracked (in-memory, Redis, etc).
// Reserve must be atomic: two creates can never collide on the same id.
type RoomStore interface {
	Reserve(roomID string, session *Session) bool
	Get(roomID string) (*Session, bool)
	Delete(roomID string)
	All() []*Session
}

// ResultSink persists a finished game's scoreboard. Invoked once per game,
// best-effort.
type ResultSink interface {
	SaveResult(ctx context.Context, result domain.GameResult) error
}

// Config tunes the room engine.
type Config struct {
	TurnTimeout      time.Duration
	QuestionsPerGame int
	MaxPlayers       int
	MinPlayers       int
	RoomIdleTTL      time.Duration
}

// defaults fills zero fields with the engine defaults.
func (c Config) defaults() Config {
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = 20 * time.Second
	}
	if c.QuestionsPerGame <= 0 {
		c.QuestionsPerGame = 10
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = 4
	}
	if c.MinPlayers <= 0 {
		c.MinPlayers = 2
	}
	if c.RoomIdleTTL <= 0 {
		c.RoomIdleTTL = 5 * time.Minute
	}
	return c
}

// Registry owns the set of active rooms: it mediates create/join/leave and
// routes every game event to the owning session.
type Registry struct {
	store RoomStore
	feed  *QuestionFeed
	sink  ResultSink
	cfg   Config
	now   func() time.Time

	idmu sync.Mutex
	rnd  *rand.Rand
}

func NewRegistry(store RoomStore, questions QuestionRepository, sink ResultSink, cfg Config) *Registry {
	cfg = cfg.defaults()
	return &Registry{
		store: store,
		feed:  NewQuestionFeed(questions, cfg.QuestionsPerGame),
		sink:  sink,
		cfg:   cfg,
		now:   time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateRoom allocates a room with the creator as sole member. A requested id
// must be a free 5-digit number; otherwise a fresh unused id is drawn.
func (r *Registry) CreateRoom(creator domain.Player, topic, requestedID string) (*Session, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, domain.ErrInvalidTopic
	}

	if requestedID != "" {
		if !validRoomID(requestedID) {
			return nil, domain.ErrInvalidRoomID
		}
		session := r.newRoomSession(requestedID, topic, creator)
		if !r.store.Reserve(requestedID, session) {
			return nil, domain.ErrRoomIDConflict
		}
		return session, nil
	}

	for {
		id := r.randomRoomID()
		session := r.newRoomSession(id, topic, creator)
		if r.store.Reserve(id, session) {
			return session, nil
		}
	}
}

func (r *Registry) newRoomSession(id, topic string, creator domain.Player) *Session {
	return newSession(id, topic, creator, sessionSettings{
		turnTimeout: r.cfg.TurnTimeout,
		maxMembers:  r.cfg.MaxPlayers,
		minPlayers:  r.cfg.MinPlayers,
		now:         r.now,
		onFinish:    r.saveResult,
	})
}

func (r *Registry) saveResult(result domain.GameResult) {
	if r.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.sink.SaveResult(ctx, result); err != nil {
		log.Printf("save result for room %s: %v", result.RoomID, err)
	}
}

func (r *Registry) randomRoomID() string {
	r.idmu.Lock()
	defer r.idmu.Unlock()
	return fmt.Sprintf("%05d", 10000+r.rnd.Intn(90000))
}

func validRoomID(id string) bool {
	if len(id) != 5 {
		return false
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// JoinRoom adds the player to the room and returns the resulting snapshot.
// Joining a room you are already in succeeds without side effects.
func (r *Registry) JoinRoom(roomID string, p domain.Player) (domain.GameState, error) {
	session, ok := r.store.Get(roomID)
	if !ok {
		return domain.GameState{}, domain.ErrRoomNotFound
	}
	if err := session.Join(p); err != nil {
		return domain.GameState{}, err
	}
	return session.Snapshot(), nil
}

// LeaveRoom removes the member; an emptied room is evicted immediately.
func (r *Registry) LeaveRoom(roomID, playerID string) error {
	session, ok := r.store.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if err := session.Leave(playerID); err != nil {
		return err
	}
	if session.IsEmpty() {
		session.Close()
		r.store.Delete(roomID)
	}
	return nil
}

// StartGame routes a start request to the owning session.
func (r *Registry) StartGame(ctx context.Context, roomID, requesterID string) error {
	session, ok := r.store.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return session.Start(ctx, requesterID, r.feed)
}

// SubmitAnswer routes an answer to the owning session. A nil answer counts as
// a no-answer submission.
func (r *Registry) SubmitAnswer(roomID, requesterID string, answer *string) error {
	session, ok := r.store.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return session.Submit(requesterID, answer)
}

// EndGame routes an end request to the owning session.
func (r *Registry) EndGame(roomID, requesterID string) error {
	session, ok := r.store.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return session.End(requesterID)
}

// Subscribe attaches a broadcast listener to the room.
func (r *Registry) Subscribe(roomID string) (<-chan Event, func(), error) {
	session, ok := r.store.Get(roomID)
	if !ok {
		return nil, nil, domain.ErrRoomNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Snapshot returns the canonical state of a room.
func (r *Registry) Snapshot(roomID string) (domain.GameState, error) {
	session, ok := r.store.Get(roomID)
	if !ok {
		return domain.GameState{}, domain.ErrRoomNotFound
	}
	return session.Snapshot(), nil
}

// Sweep evicts empty rooms and rooms idle in waiting/finished beyond the
// configured TTL. Returns the number of evicted rooms.
func (r *Registry) Sweep() int {
	now := r.now()
	evicted := 0
	for _, session := range r.store.All() {
		if session.IsEmpty() || session.Idle(now, r.cfg.RoomIdleTTL) {
			session.Close()
			r.store.Delete(session.ID())
			evicted++
		}
	}
	return evicted
}

// RunSweeper periodically evicts stale rooms until ctx is canceled.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.Printf("evicted %d stale room(s)", n)
			}
		}
	}
}
