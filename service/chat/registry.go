package chat

import (
	"sort"
	"sync"
)

// Peer is the registry's record of one live connection. The registry owns
// the canonical state; the connection actor holds only the id and this
// handle, never a second copy of the user id.
type Peer struct {
	connID string

	mu     sync.Mutex
	userID string

	send      chan []byte
	closing   chan struct{}
	closeOnce sync.Once
}

func (p *Peer) ConnID() string { return p.connID }

func (p *Peer) UserID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userID
}

func (p *Peer) setUser(id string) {
	p.mu.Lock()
	p.userID = id
	p.mu.Unlock()
}

// Enqueue appends an encoded envelope to the outbound queue. The queue is
// bounded; overflow closes the peer (the disconnect-on-overflow policy),
// making backpressure observable instead of accumulating memory.
func (p *Peer) Enqueue(payload []byte) bool {
	select {
	case <-p.closing:
		return false
	default:
	}
	select {
	case p.send <- payload:
		return true
	default:
		p.Close()
		return false
	}
}

// Outbound is drained by exactly one writer goroutine, preserving FIFO
// order per peer.
func (p *Peer) Outbound() <-chan []byte { return p.send }

// Closing is closed when the peer is being torn down.
func (p *Peer) Closing() <-chan struct{} { return p.closing }

func (p *Peer) Close() {
	p.closeOnce.Do(func() { close(p.closing) })
}

// Registry is the shared directory of live connections. A single lock
// covers every read and write; that serializes presence and fan-out
// traffic through one critical section, which is fine at moderate scale.
// Shard by connection id, or move to a mailbox-per-peer model, if peer
// counts ever make this the bottleneck.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*Peer
	byUser map[string]map[string]*Peer // user -> conn_id -> peer
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]*Peer),
		byUser: make(map[string]map[string]*Peer),
	}
}

// Register creates the peer entry for a newly accepted connection.
func (r *Registry) Register(connID string, queueSize int) *Peer {
	p := &Peer{
		connID:  connID,
		send:    make(chan []byte, queueSize),
		closing: make(chan struct{}),
	}
	r.mu.Lock()
	r.byConn[connID] = p
	r.mu.Unlock()
	return p
}

// SetUser marks the connection authenticated as userID.
func (r *Registry) SetUser(connID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byConn[connID]
	if !ok {
		return
	}
	if old := p.UserID(); old != "" {
		r.dropUserIndexLocked(old, connID)
	}
	p.setUser(userID)
	m := r.byUser[userID]
	if m == nil {
		m = make(map[string]*Peer)
		r.byUser[userID] = m
	}
	m[connID] = p
}

// ClearUser reverts the connection to unauthenticated; the entry stays.
func (r *Registry) ClearUser(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byConn[connID]
	if !ok {
		return
	}
	if uid := p.UserID(); uid != "" {
		r.dropUserIndexLocked(uid, connID)
	}
	p.setUser("")
}

// Remove deletes the entry and reports the peer's last user id.
func (r *Registry) Remove(connID string) (lastUserID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byConn[connID]
	if !ok {
		return ""
	}
	lastUserID = p.UserID()
	if lastUserID != "" {
		r.dropUserIndexLocked(lastUserID, connID)
	}
	delete(r.byConn, connID)
	return lastUserID
}

func (r *Registry) dropUserIndexLocked(userID, connID string) {
	if m := r.byUser[userID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.byUser, userID)
		}
	}
}

func (r *Registry) Get(connID string) *Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byConn[connID]
}

// FindByUser returns one session of userID, iteration-order first hit.
// It is a point lookup; delivery always goes through PeersForUsers so
// every session of a user is reached.
func (r *Registry) FindByUser(userID string) *Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.byUser[userID] {
		return p
	}
	return nil
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

func (r *Registry) OnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// PeersForUsers returns every session whose user is in ids.
func (r *Registry) PeersForUsers(ids []string) []*Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Peer
	for _, id := range ids {
		for _, p := range r.byUser[id] {
			out = append(out, p)
		}
	}
	return out
}

// AuthenticatedPeers returns every peer with a user id set.
func (r *Registry) AuthenticatedPeers() []*Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Peer
	for _, peers := range r.byUser {
		for _, p := range peers {
			out = append(out, p)
		}
	}
	return out
}

// Len reports the number of live entries (open sockets).
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
