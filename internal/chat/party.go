package chat

import (
	"sync"
	"time"
)

// DefaultPartyInviteDeadline is how long an outstanding party invite
// survives before it is swept (spec.md §4.5: "default 60 s").
const DefaultPartyInviteDeadline = 60 * time.Second

type partyInvite struct {
	from, to string
	deadline time.Time
}

// partyInvites is the FIFO described in spec.md §4.5: "Outstanding invites
// are held in a FIFO with a per-invite deadline... Expired entries are
// swept lazily before new invites are processed."
type partyInvites struct {
	mu       sync.Mutex
	deadline time.Duration
	queue    []partyInvite
}

func newPartyInvites(deadline time.Duration) *partyInvites {
	if deadline <= 0 {
		deadline = DefaultPartyInviteDeadline
	}
	return &partyInvites{deadline: deadline}
}

// sweep drops every invite past its deadline. Caller must hold no lock.
func (p *partyInvites) sweep(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweepLocked(now)
}

func (p *partyInvites) sweepLocked(now time.Time) {
	live := p.queue[:0]
	for _, inv := range p.queue {
		if now.Before(inv.deadline) {
			live = append(live, inv)
		}
	}
	p.queue = live
}

// add enqueues a fresh invite from -> to, sweeping expired entries first.
func (p *partyInvites) add(from, to string, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweepLocked(now)
	p.queue = append(p.queue, partyInvite{from: from, to: to, deadline: now.Add(p.deadline)})
}

// accept pops the oldest live invite addressed to "to", returning the
// inviter's name.
func (p *partyInvites) accept(to string, now time.Time) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweepLocked(now)
	for i, inv := range p.queue {
		if inv.to == to {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			return inv.from, true
		}
	}
	return "", false
}

// partyGroups tracks ephemeral play-coordination groups keyed by any
// member's name, mirroring spec.md's "ephemeral group used for play
// coordination" without pulling in the unrelated combat Party type.
type partyGroups struct {
	mu      sync.Mutex
	members map[string]map[string]struct{} // group id (leader name) -> member set
	groupOf map[string]string              // member name -> group id
}

func newPartyGroups() *partyGroups {
	return &partyGroups{
		members: make(map[string]map[string]struct{}),
		groupOf: make(map[string]string),
	}
}

// form creates or grows the group led by "leader" to include "member".
func (g *partyGroups) form(leader, member string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	groupID := g.groupOf[leader]
	if groupID == "" {
		groupID = leader
		g.members[groupID] = map[string]struct{}{leader: {}}
		g.groupOf[leader] = groupID
	}
	g.members[groupID][member] = struct{}{}
	g.groupOf[member] = groupID
}

// quit removes name from its current group, dissolving it if only one
// member remains.
func (g *partyGroups) quit(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	groupID, ok := g.groupOf[name]
	if !ok {
		return
	}
	delete(g.groupOf, name)
	set := g.members[groupID]
	delete(set, name)
	if len(set) <= 1 {
		for remaining := range set {
			delete(g.groupOf, remaining)
		}
		delete(g.members, groupID)
	}
}

// membersOf returns every name sharing name's current group, name itself
// excluded.
func (g *partyGroups) membersOf(name string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	groupID, ok := g.groupOf[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.members[groupID]))
	for m := range g.members[groupID] {
		if m != name {
			out = append(out, m)
		}
	}
	return out
}
