package chat

import (
	"encoding/json"
	"time"
)

// Push-channel event names, server -> client.
const (
	EventNewMessage        = "new_message"
	EventMessageUpdated    = "message_updated"
	EventMessageDeleted    = "message_deleted"
	EventOnlineUsers       = "online_users_list"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
)

// Push-channel event names, client -> server.
const (
	EventJoinRoom   = "join_room"
	EventLeaveRoom  = "leave_room"
	EventUserJoins  = "user_joins"
	EventTyping     = "typing"
	EventStopTyping = "stop_typing"
)

// Message is a stored chat line. Name is a snapshot of the author's display
// name at posting time, not a reference to the account.
type Message struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Text      *string   `json:"text"`
	Room      string    `json:"room"`
	UserID    *int      `json:"user_id"`
	FileURL   *string   `json:"file_url"`
	FileType  *string   `json:"file_type"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage is what the store needs to append a message.
type NewMessage struct {
	Room     string
	UserID   int
	Name     string
	Text     string
	FileURL  string
	FileType string
}

type CreateMessageRequest struct {
	Room     string `json:"room"`
	Text     string `json:"text"`
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
}

type UpdateMessageRequest struct {
	Text string `json:"text"`
}

type DeletedMessage struct {
	ID   int    `json:"id"`
	Room string `json:"room"`
}

type Typing struct {
	Name string `json:"name"`
	Room string `json:"room"`
}

// Frame is one push-channel event as written to the socket.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func encodeFrame(event string, data any) ([]byte, error) {
	return json.Marshal(Frame{Event: event, Data: data})
}
