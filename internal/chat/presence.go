package chat

import (
	"sort"
	"sync"
)

// Presence maps live connection ids to the display name each announced.
// One name may be held by several connections at once.
type Presence struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewPresence() *Presence {
	return &Presence{names: make(map[string]string)}
}

// Join records or replaces the display name of a connection.
func (p *Presence) Join(connID, name string) {
	p.mu.Lock()
	p.names[connID] = name
	p.mu.Unlock()
}

// Leave forgets a connection and returns the name it held.
func (p *Presence) Leave(connID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name, ok := p.names[connID]
	if ok {
		delete(p.names, connID)
	}
	return name, ok
}

// Names returns the sorted set of online display names.
func (p *Presence) Names() []string {
	p.mu.RLock()
	set := make(map[string]struct{}, len(p.names))
	for _, name := range p.names {
		set[name] = struct{}{}
	}
	p.mu.RUnlock()

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len is the number of identified connections.
func (p *Presence) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.names)
}
