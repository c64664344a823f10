package services

import "sync"

// TitleLocks serializes every mutation touching one title's stock counter,
// loans and reservation queue. Operations on different titles run in
// parallel; there is deliberately no process-wide lock. Entries are one
// mutex per title id and are never evicted, which is bounded by the size
// of the catalog.
type TitleLocks struct {
	m sync.Map // title id -> *sync.Mutex
}

func NewTitleLocks() *TitleLocks { return &TitleLocks{} }

// Lock acquires the mutex for titleID and returns its unlock func.
func (l *TitleLocks) Lock(titleID string) func() {
	mu, _ := l.m.LoadOrStore(titleID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
