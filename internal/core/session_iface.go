package core

import "github.com/dkeye/Proctor/internal/domain"

// ConnectionStore is the registry contract the relay depends on. The
// in-memory implementation can be swapped for an external store without
// changing the relay.
type ConnectionStore interface {
	Add(id domain.ConnID, info domain.ConnectionInfo) domain.Connection
	Remove(id domain.ConnID) (domain.Connection, bool)
	Get(id domain.ConnID) (domain.Connection, bool)
	GetByExam(examID domain.ExamID) []domain.Connection
	GetByRole(role domain.Role) []domain.Connection
	Stats() domain.Stats
}
