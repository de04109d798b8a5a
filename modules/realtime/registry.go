package realtime

import (
	"sync"
	"sync/atomic"
)

// Registry tracks which sessions are joined to which room.
// Rooms are spread across shards so joins, leaves and broadcasts in unrelated
// rooms do not contend on one lock.
type Registry struct {
	shards [shardCount]registryShard
}

type registryShard struct {
	mu    sync.RWMutex
	rooms map[string]map[*Session]struct{} // roomKey -> members
}

// Membership is the handle returned by Join and consumed by Leave.
type Membership struct {
	registry *Registry
	roomKey  string
	session  *Session
	left     atomic.Bool
}

// RoomKey returns the room the membership belongs to.
func (m *Membership) RoomKey() string {
	return m.roomKey
}

// Active reports whether the membership has not been released yet.
func (m *Membership) Active() bool {
	return !m.left.Load()
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].rooms = make(map[string]map[*Session]struct{})
	}
	return r
}

func (r *Registry) shard(roomKey string) *registryShard {
	return &r.shards[shardFor(roomKey)]
}

// Join adds session to the room's member set, creating the set for the first
// joiner. It never fails.
func (r *Registry) Join(roomKey string, session *Session) *Membership {
	sh := r.shard(roomKey)
	sh.mu.Lock()
	members, ok := sh.rooms[roomKey]
	if !ok {
		members = make(map[*Session]struct{})
		sh.rooms[roomKey] = members
	}
	members[session] = struct{}{}
	sh.mu.Unlock()

	return &Membership{registry: r, roomKey: roomKey, session: session}
}

// Leave removes the membership's session from its room. Calling it more than
// once is a no-op.
func (r *Registry) Leave(m *Membership) {
	if m == nil || !m.left.CompareAndSwap(false, true) {
		return
	}

	sh := r.shard(m.roomKey)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	members, ok := sh.rooms[m.roomKey]
	if !ok {
		return
	}
	delete(members, m.session)
	if len(members) == 0 {
		delete(sh.rooms, m.roomKey)
	}
}

// Members returns a point-in-time copy of the room's sessions.
func (r *Registry) Members(roomKey string) []*Session {
	sh := r.shard(roomKey)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	members := sh.rooms[roomKey]
	if len(members) == 0 {
		return nil
	}
	snapshot := make([]*Session, 0, len(members))
	for s := range members {
		snapshot = append(snapshot, s)
	}
	return snapshot
}

// MemberCount returns the number of sessions joined to the room.
func (r *Registry) MemberCount(roomKey string) int {
	sh := r.shard(roomKey)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.rooms[roomKey])
}

// RoomCount returns the number of rooms with at least one member.
func (r *Registry) RoomCount() int {
	total := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		total += len(sh.rooms)
		sh.mu.RUnlock()
	}
	return total
}

// SessionCount returns the number of joined sessions across all rooms.
func (r *Registry) SessionCount() int {
	total := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for _, members := range sh.rooms {
			total += len(members)
		}
		sh.mu.RUnlock()
	}
	return total
}
