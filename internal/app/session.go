package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"relay-quiz-service/internal/domain"
)

// sessionSettings tunes one room's game.
type sessionSettings struct {
	turnTimeout time.Duration
	maxMembers  int
	minPlayers  int
	now         func() time.Time
	onFinish    func(domain.GameResult)
}

// Session owns all mutable state of a single room. Every mutation happens
// under mu, so per-room operations are strictly serialized while different
// rooms run independently. Broadcast delivery only enqueues to subscriber
// channels; no other I/O happens under the lock.
type Session struct {
	id        string
	topic     string
	createdAt time.Time

	turnTimeout time.Duration
	maxMembers  int
	minPlayers  int
	now         func() time.Time
	onFinish    func(domain.GameResult)

	mu         sync.Mutex
	creatorID  string
	status     domain.RoomStatus
	members    []domain.Player
	scores     map[string]int
	lastActive time.Time
	starting   bool

	questions     []domain.Question
	questionIndex int
	turnOrder     []string
	currentIdx    int

	// turnGen invalidates stale deadline callbacks: a timer only resolves the
	// turn it was armed for. First event processed under mu wins; the loser is
	// a no-op.
	turnGen   int
	turnTimer *time.Timer

	subscribers map[chan Event]struct{}
}

func newSession(id, topic string, creator domain.Player, settings sessionSettings) *Session {
	if settings.now == nil {
		settings.now = time.Now
	}
	now := settings.now()
	s := &Session{
		id:          id,
		topic:       topic,
		createdAt:   now,
		lastActive:  now,
		turnTimeout: settings.turnTimeout,
		maxMembers:  settings.maxMembers,
		minPlayers:  settings.minPlayers,
		now:         settings.now,
		onFinish:    settings.onFinish,
		creatorID:   creator.ID,
		status:      domain.StatusWaiting,
		members:     []domain.Player{creator},
		scores:      map[string]int{creator.ID: 0},
		subscribers: make(map[chan Event]struct{}),
	}
	return s
}

// ID returns the room id.
func (s *Session) ID() string { return s.id }

// Topic returns the room topic.
func (s *Session) Topic() string { return s.topic }

// CreatorID returns the id of the player currently holding creator privileges.
func (s *Session) CreatorID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creatorID
}

// Join adds a player to the room. Re-joining while already a member is
// idempotent: no duplicate entry, no error, no broadcast.
func (s *Session) Join(p domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusFinished {
		return domain.ErrGameFinished
	}
	if _, ok := s.memberLocked(p.ID); ok {
		s.lastActive = s.now()
		return nil
	}
	if len(s.members) >= s.maxMembers {
		return domain.ErrRoomFull
	}

	s.members = append(s.members, p)
	s.scores[p.ID] = 0
	s.lastActive = s.now()
	s.broadcastLocked(Event{Type: EventPlayerJoined, Payload: PlayerEvent{PlayerID: p.ID, DisplayName: p.DisplayName}})
	s.broadcastStateLocked()
	return nil
}

// Leave removes a member. If they held the current turn the rotation advances
// to the next eligible player without resolving the question; if they were the
// creator, the next-joined member is promoted.
func (s *Session) Leave(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	var departed domain.Player
	for i, m := range s.members {
		if m.ID == playerID {
			idx = i
			departed = m
			break
		}
	}
	if idx < 0 {
		return domain.ErrNotAMember
	}

	s.members = append(s.members[:idx], s.members[idx+1:]...)
	delete(s.scores, playerID)

	if s.creatorID == playerID && len(s.members) > 0 {
		s.creatorID = s.members[0].ID
	}

	if s.status == domain.StatusInProgress && s.turnOrder[s.currentIdx] == playerID {
		if s.advanceTurnLocked() {
			s.armTurnLocked()
		} else {
			// nobody from the frozen rotation is left; the game cannot continue
			s.finishLocked()
			s.broadcastLeaveLocked(departed)
			return nil
		}
	}

	if len(s.members) == 0 {
		s.stopTimerLocked()
	}

	s.lastActive = s.now()
	s.broadcastLeaveLocked(departed)
	return nil
}

func (s *Session) broadcastLeaveLocked(departed domain.Player) {
	s.broadcastLocked(Event{Type: EventPlayerLeft, Payload: PlayerEvent{PlayerID: departed.ID, DisplayName: departed.DisplayName}})
	s.broadcastStateLocked()
}

// GameStarted announces the frozen rotation and question count.
type GameStarted struct {
	TurnOrder     []string `json:"turnOrder"`
	QuestionCount int      `json:"questionCount"`
}

// Start transitions waiting -> in_progress. Only the creator may start, with
// at least minPlayers members. The question draw is external I/O, so it runs
// outside the lock with a starting guard against concurrent starts; members
// see a loading event in the meantime.
func (s *Session) Start(ctx context.Context, requesterID string, feed *QuestionFeed) error {
	s.mu.Lock()
	switch s.status {
	case domain.StatusInProgress:
		s.mu.Unlock()
		return domain.ErrGameInProgress
	case domain.StatusFinished:
		s.mu.Unlock()
		return domain.ErrGameFinished
	}
	if _, ok := s.memberLocked(requesterID); !ok {
		s.mu.Unlock()
		return domain.ErrNotAMember
	}
	if requesterID != s.creatorID {
		s.mu.Unlock()
		return domain.ErrNotCreator
	}
	if len(s.members) < s.minPlayers {
		s.mu.Unlock()
		return domain.ErrInsufficientPlayers
	}
	if s.starting {
		s.mu.Unlock()
		return domain.ErrGameInProgress
	}
	s.starting = true
	s.broadcastLocked(Event{Type: EventLoading, Payload: map[string]string{"roomId": s.id}})
	s.mu.Unlock()

	questions, err := feed.Draw(ctx, s.topic)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
	if err != nil {
		return err
	}
	// Re-validate: members may have left while the draw was in flight.
	if s.status != domain.StatusWaiting {
		return domain.ErrGameInProgress
	}
	if len(s.members) < s.minPlayers {
		return domain.ErrInsufficientPlayers
	}

	s.questions = questions
	s.questionIndex = 0
	s.turnOrder = make([]string, len(s.members))
	for i, m := range s.members {
		s.turnOrder[i] = m.ID
	}
	s.currentIdx = 0
	s.status = domain.StatusInProgress
	s.armTurnLocked()
	s.lastActive = s.now()

	s.broadcastLocked(Event{Type: EventGameStarted, Payload: GameStarted{TurnOrder: append([]string(nil), s.turnOrder...), QuestionCount: len(s.questions)}})
	s.broadcastStateLocked()
	return nil
}

// Submit resolves the current turn with the given answer. Only the turn-holder
// may submit; deadline expiry is the one system-initiated exception.
func (s *Session) Submit(requesterID string, answer *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case domain.StatusWaiting:
		return domain.ErrGameNotStarted
	case domain.StatusFinished:
		return domain.ErrGameFinished
	}
	if _, ok := s.memberLocked(requesterID); !ok {
		return domain.ErrNotAMember
	}
	if s.turnOrder[s.currentIdx] != requesterID {
		return domain.ErrNotYourTurn
	}

	s.resolveTurnLocked(answer)
	return nil
}

// End forces in_progress -> finished. Creator only.
func (s *Session) End(requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case domain.StatusWaiting:
		return domain.ErrGameNotStarted
	case domain.StatusFinished:
		return domain.ErrGameFinished
	}
	if _, ok := s.memberLocked(requesterID); !ok {
		return domain.ErrNotAMember
	}
	if requesterID != s.creatorID {
		return domain.ErrNotCreator
	}

	s.finishLocked()
	return nil
}

// resolveTurnLocked classifies the answer, applies the score delta, then
// advances question and rotation. A nil answer is a no-answer (timeout or
// absent submission): zero delta, but the turn still moves on.
func (s *Session) resolveTurnLocked(answer *string) {
	currentID := s.turnOrder[s.currentIdx]
	current, _ := s.memberLocked(currentID)
	outcome := domain.ClassifyAnswer(answer, s.questions[s.questionIndex].Answer)
	s.scores[currentID] += outcome.Delta()
	s.broadcastLocked(Event{Type: outcomeEventType(outcome), Payload: PlayerEvent{PlayerID: currentID, DisplayName: current.DisplayName}})

	s.questionIndex++
	// every resolution reports the aggregate scores, the final one included
	s.broadcastLocked(Event{Type: EventScoreUpdate, Payload: ScoreUpdate{Scores: s.scoresLocked()}})
	if s.questionIndex == len(s.questions) {
		s.finishLocked()
		return
	}
	if !s.advanceTurnLocked() {
		s.finishLocked()
		return
	}
	s.armTurnLocked()
	s.lastActive = s.now()
	s.broadcastStateLocked()
}

// advanceTurnLocked steps the rotation forward to the next id in turnOrder
// that is still a member, skipping departed players. Returns false when no
// eligible player remains.
func (s *Session) advanceTurnLocked() bool {
	for i := 0; i < len(s.turnOrder); i++ {
		s.currentIdx = (s.currentIdx + 1) % len(s.turnOrder)
		if _, ok := s.memberLocked(s.turnOrder[s.currentIdx]); ok {
			return true
		}
	}
	return false
}

func (s *Session) finishLocked() {
	s.status = domain.StatusFinished
	s.stopTimerLocked()
	s.lastActive = s.now()

	board := s.scoreboardLocked()
	s.broadcastLocked(Event{Type: EventGameEnded, Payload: GameEnded{Scoreboard: board}})
	s.broadcastStateLocked()

	if s.onFinish != nil {
		result := domain.GameResult{
			RoomID:     s.id,
			Topic:      s.topic,
			Scoreboard: board,
			FinishedAt: s.now(),
		}
		go s.onFinish(result)
	}
}

// armTurnLocked (re)arms the single turn deadline. Bumping turnGen first
// guarantees no two live timers can resolve turns for the same room.
func (s *Session) armTurnLocked() {
	s.turnGen++
	gen := s.turnGen
	s.stopTimerLocked()
	s.turnTimer = time.AfterFunc(s.turnTimeout, func() {
		s.expireTurn(gen)
	})
}

func (s *Session) stopTimerLocked() {
	if s.turnTimer != nil {
		s.turnTimer.Stop()
		s.turnTimer = nil
	}
}

// expireTurn is the deadline callback: resolve the armed turn as a no-answer,
// unless a submission (or anything else) already moved the game past it.
func (s *Session) expireTurn(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusInProgress || gen != s.turnGen {
		return
	}
	s.resolveTurnLocked(nil)
}

// scoreboardLocked builds the final board: scores descending, ties broken by
// original turn order; members outside the rotation sort after it in join order.
func (s *Session) scoreboardLocked() []domain.ScoreboardEntry {
	rank := make(map[string]int, len(s.members))
	for i, id := range s.turnOrder {
		rank[id] = i
	}
	for i, m := range s.members {
		if _, ok := rank[m.ID]; !ok {
			rank[m.ID] = len(s.turnOrder) + i
		}
	}

	entries := make([]domain.ScoreboardEntry, 0, len(s.members))
	for _, m := range s.members {
		entries = append(entries, domain.ScoreboardEntry{
			PlayerID:    m.ID,
			DisplayName: m.DisplayName,
			Score:       s.scores[m.ID],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return rank[entries[i].PlayerID] < rank[entries[j].PlayerID]
	})
	return entries
}

// Subscribe registers a listener for this room's broadcasts. The first event
// is always a full gameState snapshot; it is enqueued under the lock so no
// broadcast can slip ahead of it. The caller must invoke cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- Event{Type: EventGameState, Payload: s.snapshotLocked()}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// drop the oldest so a stale subscriber never blocks the room
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) broadcastStateLocked() {
	s.broadcastLocked(Event{Type: EventGameState, Payload: s.snapshotLocked()})
}

// Snapshot returns the canonical state of the room.
func (s *Session) Snapshot() domain.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.GameState {
	state := domain.GameState{
		RoomID:        s.id,
		Topic:         s.topic,
		Status:        s.status,
		Members:       append([]domain.Player(nil), s.members...),
		CreatorID:     s.creatorID,
		QuestionIndex: s.questionIndex,
		QuestionCount: len(s.questions),
		Scores:        s.scoresLocked(),
	}
	if s.status == domain.StatusInProgress && s.questionIndex < len(s.questions) {
		state.CurrentPlayerID = s.turnOrder[s.currentIdx]
		view := s.questions[s.questionIndex].View()
		state.CurrentQuestion = &view
	}
	return state
}

func (s *Session) scoresLocked() map[string]int {
	scores := make(map[string]int, len(s.scores))
	for id, score := range s.scores {
		scores[id] = score
	}
	return scores
}

func (s *Session) memberLocked(id string) (domain.Player, bool) {
	for _, m := range s.members {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Player{}, false
}

// IsEmpty reports whether the room has no members.
func (s *Session) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members) == 0
}

// Idle reports whether the room has sat in waiting/finished past ttl.
// In-progress rooms are never idle: the turn deadline keeps them moving.
func (s *Session) Idle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == domain.StatusInProgress {
		return false
	}
	return now.Sub(s.lastActive) > ttl
}

// Close cancels any armed turn timer. Called by the registry on eviction.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
}
