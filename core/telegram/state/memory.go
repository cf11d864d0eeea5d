package state

import "sync"

// Table stores one session of type S per user id and serialises work on a
// single user through Lock.
type Table[S any] struct {
	mu       sync.RWMutex
	sessions map[int64]S
	locks    map[int64]*sync.Mutex
}

// NewTable returns an empty Table.
func NewTable[S any]() *Table[S] {
	return &Table[S]{
		sessions: make(map[int64]S),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Lock blocks until the caller owns userID's session and returns the unlock
// function. Different users never contend.
func (t *Table[S]) Lock(userID int64) func() {
	t.mu.Lock()
	l, ok := t.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[userID] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Get returns the stored session, or the zero S when the user has none.
func (t *Table[S]) Get(userID int64) (S, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[userID]
	return s, ok
}

// Put replaces the user's session.
func (t *Table[S]) Put(userID int64, s S) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[userID] = s
}

// Clear drops the user's session.
func (t *Table[S]) Clear(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, userID)
}

// Len reports how many users have a stored session.
func (t *Table[S]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
