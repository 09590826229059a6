package session

import (
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

// Store holds the current Snapshot and tells a single subscriber about every
// change. It is the only place a snapshot is ever mutated.
type Store struct {
	// notify serialises store+callback so subscribers see changes in call order.
	notify sync.Mutex

	mu  sync.Mutex
	cur Snapshot
	sub func(Snapshot)

	log *slog.Logger
}

func NewStore(log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{log: log}
}

// Subscribe registers fn for every future Replace/Patch, dropping any
// previous subscriber. fn runs synchronously on the mutating goroutine and
// must not call Replace or Patch itself.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sub = fn
}

func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Replace discards the current snapshot in favour of snap.
func (s *Store) Replace(snap Snapshot) {
	s.notify.Lock()
	defer s.notify.Unlock()
	s.replaceLocked(snap)
}

// Patch shallow-merges p into the current snapshot. A round ending
// (in_game true -> false) always clears readiness.
func (s *Store) Patch(p Snapshot) {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	cur := s.cur
	s.mu.Unlock()

	merged := cur.Merge(p)
	if p.InGame != nil && !*p.InGame && cur.IsInGame() {
		merged.Ready = lo.ToPtr(false)
	}
	s.replaceLocked(merged)
}

func (s *Store) replaceLocked(snap Snapshot) {
	s.mu.Lock()
	s.cur = snap
	sub := s.sub
	s.mu.Unlock()

	s.log.Debug("new state",
		"game", snap.GameID(),
		"in_game", snap.IsInGame(),
		"role", snap.RoleOf(),
		"players", len(snap.Players),
		"winners", len(snap.Winners),
	)

	if sub != nil {
		sub(snap)
	}
}
