package chat

import (
	"sort"
	"sync"

	"GVChat/logger"

	"go.uber.org/zap"
)

// Registry maps rooms to member connections on this node. A room exists
// only while it has members.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Conn]struct{}
	byConn map[*Conn]map[string]struct{}

	metrics *Metrics
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:   make(map[string]map[*Conn]struct{}),
		byConn:  make(map[*Conn]map[string]struct{}),
		metrics: NewMetrics(),
	}
}

// Join is idempotent.
func (r *Registry) Join(c *Conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := r.rooms[room]
	if members == nil {
		members = make(map[*Conn]struct{})
		r.rooms[room] = members
	}
	members[c] = struct{}{}

	joined := r.byConn[c]
	if joined == nil {
		joined = make(map[string]struct{})
		r.byConn[c] = joined
	}
	joined[room] = struct{}{}
}

// Leave is a no-op when c is not in room.
func (r *Registry) Leave(c *Conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(c, room)
}

func (r *Registry) leaveLocked(c *Conn, room string) {
	if members := r.rooms[room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if joined := r.byConn[c]; joined != nil {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.byConn, c)
		}
	}
}

// RemoveConn drops c from every room and returns the rooms it was in.
func (r *Registry) RemoveConn(c *Conn) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	joined := r.byConn[c]
	rooms := make([]string, 0, len(joined))
	for room := range joined {
		rooms = append(rooms, room)
	}
	for _, room := range rooms {
		r.leaveLocked(c, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Broadcast sends one copy to every member and returns how many were queued.
func (r *Registry) Broadcast(room, event string, payload any) int {
	return r.BroadcastExcept(room, event, payload, nil)
}

// BroadcastExcept is Broadcast minus one connection.
func (r *Registry) BroadcastExcept(room, event string, payload any, except *Conn) int {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		logger.Error("broadcast encode", zap.String("room", room), zap.Error(err))
		return 0
	}
	exceptID := ""
	if except != nil {
		exceptID = except.ID()
	}
	return r.deliver(room, frame, exceptID)
}

// deliver queues an encoded frame without holding the lock while sending.
func (r *Registry) deliver(room string, frame []byte, exceptID string) int {
	r.mu.RLock()
	members := r.rooms[room]
	targets := make([]*Conn, 0, len(members))
	for c := range members {
		if c.ID() != exceptID {
			targets = append(targets, c)
		}
	}
	r.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if c.enqueue(frame) {
			sent++
			continue
		}
		if c.Closed() {
			continue
		}
		r.metrics.FrameDropped()
		logger.Warn("send queue full, frame dropped", zap.String("conn", c.ID()), zap.String("room", room))
	}
	r.metrics.Broadcast(sent)
	return sent
}

// Send queues a frame for one connection.
func (r *Registry) Send(c *Conn, event string, payload any) bool {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		logger.Error("send encode", zap.String("conn", c.ID()), zap.Error(err))
		return false
	}
	if !c.enqueue(frame) {
		r.metrics.FrameDropped()
		return false
	}
	return true
}

func (r *Registry) Members(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// Rooms lists the rooms c is in, sorted.
func (r *Registry) Rooms(c *Conn) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byConn[c]))
	for room := range r.byConn[c] {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
