package core

import (
	"sync"

	"attendance.service/internal/core/model"
)

// AttendanceStore holds the authoritative attendance record of every user.
// Callers read the whole record, decide, and put the whole record back; the
// read-decide-put sequence for one user must be serialized by the caller.
type AttendanceStore interface {
	Get(userID string) model.AttendanceRecord
	Put(userID string, rec model.AttendanceRecord)
	Len() int
}

// MemoryStore is the process-local AttendanceStore. Its lock only protects
// the map itself.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.AttendanceRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.AttendanceRecord)}
}

// Get returns the user's record, or the OUT record when none exists.
func (s *MemoryStore) Get(userID string) model.AttendanceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return model.Out()
	}
	return rec
}

// Put replaces the user's record. Storing OUT forgets the user.
func (s *MemoryStore) Put(userID string, rec model.AttendanceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.State == model.StateOut {
		delete(s.records, userID)
		return
	}
	s.records[userID] = rec
}

// Len returns the number of users with an active session.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
