package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/charlesng35/sessiongate/internal/models"
)

// MemoryDirectory is an in-process Directory. Transactions are serialised and restore the
// previous contents when fn returns an error.
type MemoryDirectory struct {
	txMu sync.Mutex

	mu       sync.RWMutex
	users    map[string]*models.User
	partners map[string][]*string
}

// NewMemoryDirectory returns an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		users:    make(map[string]*models.User),
		partners: make(map[string][]*string),
	}
}

// Put inserts or replaces a user. A missing ID is generated. The stored record is a copy.
func (m *MemoryDirectory) Put(user *models.User) *models.User {
	stored := user.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	m.mu.Lock()
	m.users[stored.ID] = stored
	m.mu.Unlock()
	return stored.Clone()
}

// Get returns a copy of the stored user.
func (m *MemoryDirectory) Get(id string) (*models.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, false
	}
	return user.Clone(), true
}

// LinkBusinessPartner adds an association row. A nil partnerID mimics a null column.
func (m *MemoryDirectory) LinkBusinessPartner(userID string, partnerID *string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partners[userID] = append(m.partners[userID], partnerID)
}

func (m *MemoryDirectory) FindByUsername(_ context.Context, username string) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var users []*models.User
	for _, user := range m.users {
		if user.Username == username {
			users = append(users, user.Clone())
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].ClientID != users[j].ClientID {
			return users[i].ClientID < users[j].ClientID
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (m *MemoryDirectory) WriteLockState(_ context.Context, state LockState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[state.UserID]; ok {
		state.Apply(user)
	}
	return nil
}

func (m *MemoryDirectory) RecordLogin(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[userID]; ok {
		user.LastLoginAt = &at
		user.FailedAttempts = 0
	}
	return nil
}

func (m *MemoryDirectory) HasBusinessPartner(_ context.Context, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, partnerID := range m.partners[userID] {
		if partnerID != nil {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryDirectory) Transaction(_ context.Context, fn func(Directory) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snapshot := m.snapshot()
	if err := fn(memoryTx{m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

func (m *MemoryDirectory) snapshot() map[string]*models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cpy := make(map[string]*models.User, len(m.users))
	for id, user := range m.users {
		cpy[id] = user.Clone()
	}
	return cpy
}

func (m *MemoryDirectory) restore(users map[string]*models.User) {
	m.mu.Lock()
	m.users = users
	m.mu.Unlock()
}

// memoryTx is the view handed to a transaction body. Nested transactions run inline.
type memoryTx struct {
	*MemoryDirectory
}

func (t memoryTx) Transaction(_ context.Context, fn func(Directory) error) error {
	return fn(t)
}
