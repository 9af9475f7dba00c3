package chat

import (
	"context"
	"sync"
	"time"
)

// memStore is an in-memory MessageStore.
type memStore struct {
	mu      sync.Mutex
	nextID  int
	rows    []*Message
	failure error
}

func newMemStore() *memStore {
	return &memStore{}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (m *memStore) Append(_ context.Context, nm *NewMessage) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return nil, m.failure
	}
	m.nextID++
	uid := nm.UserID
	msg := &Message{
		ID:        m.nextID,
		Name:      nm.Name,
		Text:      strPtr(nm.Text),
		Room:      nm.Room,
		UserID:    &uid,
		FileURL:   strPtr(nm.FileURL),
		FileType:  strPtr(nm.FileType),
		CreatedAt: time.Now(),
	}
	m.rows = append(m.rows, msg)
	cp := *msg
	return &cp, nil
}

func (m *memStore) ListByRoom(_ context.Context, room string) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*Message{}
	for _, msg := range m.rows {
		if msg.Room == room {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) find(id int) (int, *Message) {
	for i, msg := range m.rows {
		if msg.ID == id {
			return i, msg
		}
	}
	return -1, nil
}

func (m *memStore) GetByID(_ context.Context, id int) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, msg := m.find(id)
	if msg == nil {
		return nil, ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (m *memStore) UpdateText(_ context.Context, id, ownerID int, text string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, msg := m.find(id)
	if msg == nil || msg.UserID == nil || *msg.UserID != ownerID {
		return nil, ErrNotFound
	}
	msg.Text = &text
	cp := *msg
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, id, ownerID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, msg := m.find(id)
	if msg == nil || msg.UserID == nil || *msg.UserID != ownerID {
		return ErrNotFound
	}
	m.rows = append(m.rows[:i], m.rows[i+1:]...)
	return nil
}

type broadcast struct {
	Room    string
	Event   string
	Payload any
}

// recorder is a Broadcaster that remembers what it was asked to send.
type recorder struct {
	mu   sync.Mutex
	sent []broadcast
}

func (r *recorder) BroadcastToRoom(room, event string, payload any) {
	r.mu.Lock()
	r.sent = append(r.sent, broadcast{Room: room, Event: event, Payload: payload})
	r.mu.Unlock()
}

func (r *recorder) all() []broadcast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcast(nil), r.sent...)
}
