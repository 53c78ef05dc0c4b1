package lifecycle

import "sync"

// Journal is a per-entity stack of optimistic changes. Each Push records the
// entry that was applied locally together with the function that reverts it;
// Rollback reverts the most recent one.
type Journal[T any] struct {
	mu      sync.Mutex
	entries []journalEntry[T]
}

type journalEntry[T any] struct {
	applied T
	undo    func()
}

// Push records an applied optimistic change.
func (j *Journal[T]) Push(applied T, undo func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, journalEntry[T]{applied: applied, undo: undo})
}

// Rollback pops the most recent entry and runs its undo.
func (j *Journal[T]) Rollback() (T, bool) {
	e, ok := j.pop()
	if !ok {
		var zero T
		return zero, false
	}
	if e.undo != nil {
		e.undo()
	}
	return e.applied, true
}

// Commit pops the most recent entry without undoing it, once the server
// has accepted the change.
func (j *Journal[T]) Commit() (T, bool) {
	e, ok := j.pop()
	return e.applied, ok
}

// Len is the number of pending optimistic changes.
func (j *Journal[T]) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

func (j *Journal[T]) pop() (journalEntry[T], bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.entries) == 0 {
		return journalEntry[T]{}, false
	}
	last := j.entries[len(j.entries)-1]
	j.entries = j.entries[:len(j.entries)-1]
	return last, true
}
