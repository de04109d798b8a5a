package realtime

import "sync"

// Presence tracks which users are online. Each user carries a count of active
// sessions, so a user with two tabs stays online until both close.
type Presence struct {
	shards [shardCount]presenceShard
}

type presenceShard struct {
	mu       sync.RWMutex
	sessions map[string]int // username -> active sessions
}

// NewPresence creates an empty presence tracker.
func NewPresence() *Presence {
	p := &Presence{}
	for i := range p.shards {
		p.shards[i].sessions = make(map[string]int)
	}
	return p
}

func (p *Presence) shard(username string) *presenceShard {
	return &p.shards[shardFor(username)]
}

// SetOnline records one more active session for the user.
// It returns true when the user went from offline to online.
func (p *Presence) SetOnline(username string) bool {
	sh := p.shard(username)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.sessions[username]++
	return sh.sessions[username] == 1
}

// SetOffline records that one session of the user ended.
// It returns true when the user went from online to offline.
func (p *Presence) SetOffline(username string) bool {
	sh := p.shard(username)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	n, ok := sh.sessions[username]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(sh.sessions, username)
		return true
	}
	sh.sessions[username] = n - 1
	return false
}

// IsOnline reports whether the user has at least one active session.
func (p *Presence) IsOnline(username string) bool {
	sh := p.shard(username)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.sessions[username] > 0
}

// Sessions returns the number of active sessions of the user.
func (p *Presence) Sessions(username string) int {
	sh := p.shard(username)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.sessions[username]
}

// OnlineCount returns the number of online users.
func (p *Presence) OnlineCount() int {
	total := 0
	for i := range p.shards {
		sh := &p.shards[i]
		sh.mu.RLock()
		total += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return total
}
