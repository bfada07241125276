package sessions

import "sync"

type memoryStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewMemoryStore constructs the in-memory Store used in production; sessions
// are not persisted across restarts.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[int64]*Session),
	}
}

// locked returns the stored session for userID, creating the default one if
// needed. Callers must hold m.mu.
func (m *memoryStore) locked(userID int64) *Session {
	sess, ok := m.sessions[userID]
	if !ok {
		sess = &Session{Stage: StageStart}
		m.sessions[userID] = sess
	}
	return sess
}

func (m *memoryStore) Get(userID int64) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.locked(userID)
}

func (m *memoryStore) SetStage(userID int64, stage Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked(userID).Stage = stage
}

func (m *memoryStore) IncrementRetry(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.locked(userID)
	sess.RetryCount++
	return sess.RetryCount
}

func (m *memoryStore) ResetRetry(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked(userID).RetryCount = 0
}

func (m *memoryStore) Counts() map[Stage]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[Stage]int, 4)
	for _, sess := range m.sessions {
		counts[sess.Stage]++
	}
	return counts
}
