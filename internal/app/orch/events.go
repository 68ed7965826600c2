package orch

import (
	"time"

	"github.com/dkeye/Proctor/internal/domain"
)

// Event is the wire name of a realtime message.
type Event string

// Inbound events.
const (
	EventJoinExam       Event = "join-exam"
	EventLeaveExam      Event = "leave-exam"
	EventExamStart      Event = "exam-start"
	EventExamEnd        Event = "exam-end"
	EventMobileJoin     Event = "mobile-join"
	EventViolationAlert Event = "violation-alert"
	EventMonitorExam    Event = "monitor-exam"
	EventUnmonitorExam  Event = "unmonitor-exam"
	EventGetStats       Event = "get-stats"
	EventPing           Event = "ping"
)

// Outbound events.
const (
	EventExamState         Event = "exam-state"
	EventUserJoined        Event = "user-joined"
	EventUserLeft          Event = "user-left"
	EventMobileConnected   Event = "mobile-connected"
	EventViolationDetected Event = "violation-detected"
	EventError             Event = "error"
	EventPong              Event = "pong"
)

type envelope struct {
	Type Event `json:"type"`
}

type joinExamPayload struct {
	ExamID domain.ExamID `json:"examId" validate:"required,max=64"`
	Device domain.Device `json:"device" validate:"max=32"`
}

type examPayload struct {
	ExamID domain.ExamID `json:"examId" validate:"required,max=64"`
}

type mobileJoinPayload struct {
	SessionID domain.PairingID `json:"sessionId" validate:"required,max=128"`
}

// Timestamp is client supplied, in unix milliseconds.
type violationAlertPayload struct {
	SessionID  domain.PairingID `json:"sessionId" validate:"required,max=128"`
	Violation  string           `json:"violation" validate:"max=256"`
	Confidence float64          `json:"confidence"`
	Timestamp  int64            `json:"timestamp"`
	ExamID     domain.ExamID    `json:"examId" validate:"max=64"`
}

type RosterEntry struct {
	UserID      domain.UserID `json:"userId"`
	Device      domain.Device `json:"device"`
	ConnectedAt time.Time     `json:"connectedAt"`
}

type ExamState struct {
	Type    Event         `json:"type"`
	ExamID  domain.ExamID `json:"examId"`
	Users   []RosterEntry `json:"users"`
	Message string        `json:"message"`
}

type AdminState struct {
	Type    Event        `json:"type"`
	Stats   domain.Stats `json:"stats"`
	Message string       `json:"message"`
}

type UserJoined struct {
	Type        Event         `json:"type"`
	UserID      domain.UserID `json:"userId"`
	Device      domain.Device `json:"device"`
	ExamID      domain.ExamID `json:"examId"`
	ConnectedAt time.Time     `json:"connectedAt"`
}

type AdminUserJoined struct {
	UserJoined
	TotalInRoom int `json:"totalInRoom"`
}

type UserLeft struct {
	Type   Event         `json:"type"`
	UserID domain.UserID `json:"userId"`
	Device domain.Device `json:"device"`
	ExamID domain.ExamID `json:"examId"`
}

type AdminUserLeft struct {
	UserLeft
	RemainingInRoom int `json:"remainingInRoom"`
}

// ExamSignal is the exam-start / exam-end control message.
type ExamSignal struct {
	Type      Event         `json:"type"`
	ExamID    domain.ExamID `json:"examId"`
	Timestamp time.Time     `json:"timestamp"`
}

type MobileConnected struct {
	Type             Event            `json:"type"`
	SessionID        domain.PairingID `json:"sessionId"`
	DeviceIdentifier string           `json:"deviceIdentifier"`
}

type ViolationDetected struct {
	Type       Event            `json:"type"`
	SessionID  domain.PairingID `json:"sessionId"`
	UserID     domain.UserID    `json:"userId"`
	ExamID     domain.ExamID    `json:"examId,omitempty"`
	Violation  string           `json:"violation"`
	Confidence float64          `json:"confidence"`
	Timestamp  int64            `json:"timestamp"`
}

type ErrorAck struct {
	Type  Event  `json:"type"`
	Event Event  `json:"event,omitempty"`
	Error string `json:"error"`
}

type Pong struct {
	Type Event `json:"type"`
}
