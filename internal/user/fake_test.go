package user

import (
	"context"
	"errors"
	"sync"
	"time"
)

// memStore is an in-memory AccountStore.
type memStore struct {
	mu      sync.Mutex
	nextID  int
	byName  map[string]*User
	failure error
}

func newMemStore() *memStore {
	return &memStore{byName: make(map[string]*User)}
}

func (m *memStore) CreateUser(_ context.Context, u *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return nil, m.failure
	}
	if _, ok := m.byName[u.Username]; ok {
		return nil, ErrUsernameTaken
	}
	m.nextID++
	stored := *u
	stored.ID = m.nextID
	stored.CreatedAt = time.Now()
	m.byName[u.Username] = &stored
	return &stored, nil
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return nil, m.failure
	}
	u, ok := m.byName[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) SetAvatar(_ context.Context, userID int, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byName {
		if u.ID == userID {
			u.AvatarURL = &url
			return nil
		}
	}
	return ErrUserNotFound
}

var errStoreDown = errors.New("connection refused")
