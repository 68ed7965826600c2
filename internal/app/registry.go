package app

import (
	"sync"
	"time"

	"github.com/dkeye/Proctor/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry is the in-memory directory of live connections keyed by
// connection id. Room membership is never stored here: every query is a
// full scan so rosters and stats can not drift from the records.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]domain.Connection
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[domain.ConnID]domain.Connection),
		now:   time.Now,
	}
}

// Add inserts or overwrites the record for id, stamping ConnectedAt.
func (r *Registry) Add(id domain.ConnID, info domain.ConnectionInfo) domain.Connection {
	c := domain.Connection{
		ID:          id,
		UserID:      info.UserID,
		Role:        info.Role,
		ExamID:      info.ExamID,
		Device:      info.Device,
		ConnectedAt: r.now(),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = c
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("user", string(c.UserID)).
		Str("role", string(c.Role)).Str("exam", string(c.ExamID)).Msg("connection added")
	return c
}

// Remove deletes the record for id. A second call for the same id
// reports false and leaves the other records untouched.
func (r *Registry) Remove(id domain.ConnID) (domain.Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return domain.Connection{}, false
	}
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("connection removed")
	return c, true
}

func (r *Registry) Get(id domain.ConnID) (domain.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

func (r *Registry) GetByExam(examID domain.ExamID) []domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Connection, 0)
	for _, c := range r.conns {
		if c.ExamID != "" && c.ExamID == examID {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) GetByRole(role domain.Role) []domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Connection, 0)
	for _, c := range r.conns {
		if c.Role == role {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) Stats() domain.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exams := make(map[domain.ExamID]struct{})
	var s domain.Stats
	for _, c := range r.conns {
		s.Total++
		switch c.Role {
		case domain.RoleStudent:
			s.Students++
		case domain.RoleAdmin:
			s.Admins++
		}
		if c.InExam() {
			exams[c.ExamID] = struct{}{}
		}
	}
	s.ActiveExams = len(exams)
	return s
}
