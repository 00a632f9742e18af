package credstore

import "sync"

// Store holds the persisted proof-of-authentication for the current user.
// A nil value passed to a save operation clears that field; callers rely on
// being able to blank a single field without a full Clear.
//
// Reads are served from memory and always reflect the last completed write.
// Writes are durable before they return.
type Store interface {
	SaveToken(token *string) error
	SaveUserID(id *string) error
	Token() (string, bool)
	UserID() (string, bool)
	Clear() error
	IsLoggedIn() bool
}

// MemoryStore is a non-durable Store for tests and ephemeral runs.
type MemoryStore struct {
	mu     sync.RWMutex
	token  *string
	userID *string
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveToken(token *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = copyField(token)
	return nil
}

func (s *MemoryStore) SaveUserID(id *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = copyField(id)
	return nil
}

func (s *MemoryStore) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return "", false
	}
	return *s.token, true
}

func (s *MemoryStore) UserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userID == nil {
		return "", false
	}
	return *s.userID, true
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	s.userID = nil
	return nil
}

func (s *MemoryStore) IsLoggedIn() bool {
	_, ok := s.Token()
	return ok
}

func copyField(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
