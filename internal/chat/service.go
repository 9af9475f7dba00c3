package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Column widths of the messages table.
const (
	maxRoomLen     = 100
	maxFileTypeLen = 255
)

var (
	ErrValidation = errors.New("invalid message")
	ErrEmptyText  = errors.New("text must not be empty")
	ErrNotFound   = errors.New("message not found")
	ErrForbidden  = errors.New("message belongs to another user")
)

// MessageStore is the durable, room-scoped table of messages.
type MessageStore interface {
	Append(ctx context.Context, nm *NewMessage) (*Message, error)
	ListByRoom(ctx context.Context, room string) ([]*Message, error)
	GetByID(ctx context.Context, id int) (*Message, error)
	UpdateText(ctx context.Context, id, ownerID int, text string) (*Message, error)
	Delete(ctx context.Context, id, ownerID int) error
}

// Broadcaster pushes an event to every connection subscribed to a room.
type Broadcaster interface {
	BroadcastToRoom(room, event string, payload any)
}

// Service applies ownership and validation rules on top of the store and
// announces every successful mutation to the room.
type Service struct {
	store       MessageStore
	broadcaster Broadcaster
	defaultRoom string
}

func NewService(store MessageStore, broadcaster Broadcaster, defaultRoom string) *Service {
	if defaultRoom == "" {
		defaultRoom = "general"
	}
	return &Service{store: store, broadcaster: broadcaster, defaultRoom: defaultRoom}
}

func (s *Service) room(room string) string {
	if room = strings.TrimSpace(room); room == "" {
		return s.defaultRoom
	}
	return room
}

func (s *Service) List(ctx context.Context, room string) ([]*Message, error) {
	return s.store.ListByRoom(ctx, s.room(room))
}

func (s *Service) Create(ctx context.Context, userID int, name string, req *CreateMessageRequest) (*Message, error) {
	nm := &NewMessage{
		Room:    s.room(req.Room),
		UserID:  userID,
		Name:    name,
		Text:    strings.TrimSpace(req.Text),
		FileURL: strings.TrimSpace(req.FileURL),
	}
	if nm.FileURL != "" {
		nm.FileType = strings.TrimSpace(req.FileType)
	}

	switch {
	case nm.Text == "" && nm.FileURL == "":
		return nil, fmt.Errorf("%w: text or file_url is required", ErrValidation)
	case utf8.RuneCountInString(nm.Room) > maxRoomLen:
		return nil, fmt.Errorf("%w: room is longer than %d characters", ErrValidation, maxRoomLen)
	case utf8.RuneCountInString(nm.FileType) > maxFileTypeLen:
		return nil, fmt.Errorf("%w: file_type is longer than %d characters", ErrValidation, maxFileTypeLen)
	}

	m, err := s.store.Append(ctx, nm)
	if err != nil {
		return nil, err
	}

	s.broadcaster.BroadcastToRoom(m.Room, EventNewMessage, m)
	return m, nil
}

// owned loads a message and checks that requester owns it.
func (s *Service) owned(ctx context.Context, id, requester int) (*Message, error) {
	m, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.UserID == nil || *m.UserID != requester {
		return nil, ErrForbidden
	}
	return m, nil
}

func (s *Service) UpdateText(ctx context.Context, id, requester int, text string) (*Message, error) {
	if _, err := s.owned(ctx, id, requester); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	m, err := s.store.UpdateText(ctx, id, requester, text)
	if err != nil {
		return nil, err
	}

	s.broadcaster.BroadcastToRoom(m.Room, EventMessageUpdated, m)
	return m, nil
}

func (s *Service) Delete(ctx context.Context, id, requester int) (*DeletedMessage, error) {
	m, err := s.owned(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, id, requester); err != nil {
		return nil, err
	}

	deleted := &DeletedMessage{ID: m.ID, Room: m.Room}
	s.broadcaster.BroadcastToRoom(m.Room, EventMessageDeleted, deleted)
	return deleted, nil
}
