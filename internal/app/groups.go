package app

import (
	"errors"
	"sync"

	"github.com/dkeye/Proctor/internal/core"
	"github.com/dkeye/Proctor/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// GroupHub is a threadsafe in-memory implementation of core.Groups.
type GroupHub struct {
	mu     sync.RWMutex
	groups map[core.GroupName]map[domain.ConnID]core.SignalConnection
	byConn map[domain.ConnID]map[core.GroupName]struct{}
}

func NewGroupHub() *GroupHub {
	return &GroupHub{
		groups: make(map[core.GroupName]map[domain.ConnID]core.SignalConnection),
		byConn: make(map[domain.ConnID]map[core.GroupName]struct{}),
	}
}

func (h *GroupHub) Join(name core.GroupName, id domain.ConnID, conn core.SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[name]
	if !ok {
		members = make(map[domain.ConnID]core.SignalConnection)
		h.groups[name] = members
	}
	members[id] = conn
	joined, ok := h.byConn[id]
	if !ok {
		joined = make(map[core.GroupName]struct{})
		h.byConn[id] = joined
	}
	joined[name] = struct{}{}
	log.Debug().Str("module", "app.groups").Str("group", string(name)).Str("conn", string(id)).Msg("joined group")
}

func (h *GroupHub) Leave(name core.GroupName, id domain.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(name, id)
}

func (h *GroupHub) leaveLocked(name core.GroupName, id domain.ConnID) {
	if members, ok := h.groups[name]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(h.groups, name)
		}
	}
	if joined, ok := h.byConn[id]; ok {
		delete(joined, name)
		if len(joined) == 0 {
			delete(h.byConn, id)
		}
	}
	log.Debug().Str("module", "app.groups").Str("group", string(name)).Str("conn", string(id)).Msg("left group")
}

func (h *GroupHub) LeaveAll(id domain.ConnID) []core.GroupName {
	h.mu.Lock()
	defer h.mu.Unlock()
	joined := h.byConn[id]
	out := make([]core.GroupName, 0, len(joined))
	for name := range joined {
		out = append(out, name)
	}
	for _, name := range out {
		h.leaveLocked(name, id)
	}
	return out
}

func (h *GroupHub) IsMember(name core.GroupName, id domain.ConnID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.groups[name][id]
	return ok
}

func (h *GroupHub) GroupsOf(id domain.ConnID) []core.GroupName {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]core.GroupName, 0, len(h.byConn[id]))
	for name := range h.byConn[id] {
		out = append(out, name)
	}
	return out
}

func (h *GroupHub) GroupCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups)
}

func (h *GroupHub) Broadcast(except domain.ConnID, f core.Frame, names ...core.GroupName) core.PublishResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	res := core.PublishResult{}
	seen := make(map[domain.ConnID]struct{})
	for _, name := range names {
		for id, conn := range h.groups[name] {
			if id == except {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if err := conn.TrySend(f); err != nil {
				res.Dropped = append(res.Dropped, id)
				continue
			}
			res.SendTo++
		}
	}
	log.Debug().Str("module", "app.groups").Str("except", string(except)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
