package domain

import "time"

// ConnID is the opaque identifier of a live transport connection.
type ConnID string

// ConnectionInfo is what a caller supplies when registering a connection.
type ConnectionInfo struct {
	UserID UserID
	Role   Role
	ExamID ExamID
	Device Device
}

// Connection is the registry record for one live connection.
// Fields are set once at registration and never mutated.
type Connection struct {
	ID          ConnID    `json:"-"`
	UserID      UserID    `json:"userId"`
	Role        Role      `json:"role"`
	ExamID      ExamID    `json:"examId,omitempty"`
	Device      Device    `json:"device"`
	ConnectedAt time.Time `json:"connectedAt"`
}

func (c Connection) InExam() bool { return c.ExamID != "" }

// Stats is an aggregate view over the registry.
type Stats struct {
	Total       int `json:"total"`
	Students    int `json:"students"`
	Admins      int `json:"admins"`
	ActiveExams int `json:"activeExams"`
}
