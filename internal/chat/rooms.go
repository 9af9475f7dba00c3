package chat

import "sync"

// Rooms tracks which connections are subscribed to which room tags.
// A room exists only while it has at least one subscriber.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{} // room -> connIDs
	joined  map[string]map[string]struct{} // connID -> rooms
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

func (r *Rooms) Join(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	add(r.members, room, connID)
	add(r.joined, connID, room)
}

func (r *Rooms) Leave(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	remove(r.members, room, connID)
	remove(r.joined, connID, room)
}

// LeaveAll drops every subscription of connID and returns the rooms it was in.
func (r *Rooms) LeaveAll(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := make([]string, 0, len(r.joined[connID]))
	for room := range r.joined[connID] {
		remove(r.members, room, connID)
		rooms = append(rooms, room)
	}
	delete(r.joined, connID)
	return rooms
}

// Members returns a snapshot of the connections subscribed to room.
func (r *Rooms) Members(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.members[room]))
	for id := range r.members[room] {
		ids = append(ids, id)
	}
	return ids
}

func (r *Rooms) Count(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[room])
}

func add(m map[string]map[string]struct{}, key, val string) {
	if m[key] == nil {
		m[key] = make(map[string]struct{})
	}
	m[key][val] = struct{}{}
}

func remove(m map[string]map[string]struct{}, key, val string) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, val)
	if len(set) == 0 {
		delete(m, key)
	}
}
