// Package orch is the event relay: it applies inbound realtime events to
// the connection registry and fans notifications out to groups.
package orch

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Proctor/internal/app"
	"github.com/dkeye/Proctor/internal/core"
	"github.com/dkeye/Proctor/internal/domain"
	"github.com/dkeye/Proctor/internal/metrics"
)

// Client is the relay's view of one live transport connection.
type Client struct {
	ID       domain.ConnID
	Identity domain.Identity
	Channel  Channel
	// Device is the default classification used when a join omits one.
	Device domain.Device
	// DeviceID is a stable per-device identifier, when the transport has one.
	DeviceID string
	Conn     core.SignalConnection

	closed bool
}

type handlerFunc func(o *Orchestrator, cl *Client, ev Event, data []byte) error

var handlers = map[Event]handlerFunc{
	EventJoinExam:       (*Orchestrator).handleJoinExam,
	EventLeaveExam:      (*Orchestrator).handleLeaveExam,
	EventExamStart:      (*Orchestrator).handleExamControl,
	EventExamEnd:        (*Orchestrator).handleExamControl,
	EventMobileJoin:     (*Orchestrator).handleMobileJoin,
	EventViolationAlert: (*Orchestrator).handleViolationAlert,
	EventMonitorExam:    (*Orchestrator).handleMonitorExam,
	EventUnmonitorExam:  (*Orchestrator).handleUnmonitorExam,
	EventGetStats:       (*Orchestrator).handleGetStats,
	EventPing:           (*Orchestrator).handlePing,
}

// Orchestrator serialises all event handling: exactly one event, connect
// or disconnect is applied to completion before the next one starts.
type Orchestrator struct {
	Registry core.ConnectionStore
	Groups   core.Groups
	Policy   app.Policy
	Limiter  *app.RateLimiter
	Metrics  *metrics.Recorder
	Now      func() time.Time

	mu       sync.Mutex
	clients  map[domain.ConnID]*Client
	validate *validator.Validate
}

func New(reg core.ConnectionStore, groups core.Groups) *Orchestrator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Orchestrator{
		Registry: reg,
		Groups:   groups,
		Policy:   app.SimplePolicy{},
		Now:      time.Now,
		clients:  make(map[domain.ConnID]*Client),
		validate: v,
	}
}

// ackError is a failure reported back to the sender as an error event.
type ackError struct {
	outcome string
	reason  string
}

func (e *ackError) Error() string { return e.reason }

func invalid(reason string) error {
	return &ackError{outcome: metrics.OutcomeInvalid, reason: reason}
}

func limited(reason string) error {
	return &ackError{outcome: metrics.OutcomeLimited, reason: reason}
}

// Connect attaches a gate-approved connection. Admin connections are
// registered and subscribed to the admin channel right away.
func (o *Orchestrator) Connect(cl *Client) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if old, ok := o.clients[cl.ID]; ok && !old.closed {
		log.Warn().Str("module", "orch").Str("conn", string(cl.ID)).Msg("connection id reused, replacing")
	}
	o.clients[cl.ID] = cl
	log.Info().Str("module", "orch").Str("conn", string(cl.ID)).Str("channel", string(cl.Channel)).
		Str("user", string(cl.Identity.DisplayID())).Msg("connected")
	if cl.Channel == ChannelAdmin {
		o.connectAdmin(cl)
	}
}

// Disconnect runs the same cleanup as an explicit leave, then drops every
// group membership. Calling it more than once is a no-op.
func (o *Orchestrator) Disconnect(id domain.ConnID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	cl, ok := o.clients[id]
	if !ok || cl.closed {
		return
	}
	cl.closed = true
	delete(o.clients, id)

	o.leave(cl)
	left := o.Groups.LeaveAll(id)
	o.observe()
	log.Info().Str("module", "orch").Str("conn", string(id)).Int("groups_left", len(left)).Msg("disconnected")
}

// Dispatch applies one inbound frame from connection id.
func (o *Orchestrator) Dispatch(id domain.ConnID, data []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	cl, ok := o.clients[id]
	if !ok || cl.closed {
		return
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("conn", string(id)).Msg("bad json")
		o.sendError(cl, "", "bad_payload")
		return
	}

	allowed, known := Authorize(cl.Channel, env.Type, cl.Identity)
	if !known {
		log.Warn().Str("module", "orch").Str("channel", string(cl.Channel)).Str("type", string(env.Type)).Msg("unknown event")
		// the type is client-controlled, keep it out of the label set
		o.Metrics.Event(metrics.EventUnknown, metrics.OutcomeUnknown)
		return
	}
	if !allowed {
		log.Debug().Str("module", "orch").Str("conn", string(id)).Str("type", string(env.Type)).Msg("unauthorized event ignored")
		o.Metrics.Event(string(env.Type), metrics.OutcomeUnauthorized)
		return
	}

	if err := handlers[env.Type](o, cl, env.Type, data); err != nil {
		outcome := metrics.OutcomeInvalid
		var ack *ackError
		if errors.As(err, &ack) {
			outcome = ack.outcome
		}
		log.Info().Str("module", "orch").Str("conn", string(id)).Str("type", string(env.Type)).Err(err).Msg("event rejected")
		o.Metrics.Event(string(env.Type), outcome)
		o.sendError(cl, env.Type, err.Error())
		return
	}
	o.Metrics.Event(string(env.Type), metrics.OutcomeHandled)
}

// Stats is safe to call concurrently with dispatch.
func (o *Orchestrator) Stats() domain.Stats {
	return o.Registry.Stats()
}

// Roster returns the members of an exam room ordered by join time.
func (o *Orchestrator) Roster(examID domain.ExamID) []RosterEntry {
	conns := o.Registry.GetByExam(examID)
	sort.Slice(conns, func(i, j int) bool {
		if conns[i].ConnectedAt.Equal(conns[j].ConnectedAt) {
			return conns[i].ID < conns[j].ID
		}
		return conns[i].ConnectedAt.Before(conns[j].ConnectedAt)
	})
	out := make([]RosterEntry, 0, len(conns))
	for _, c := range conns {
		out = append(out, RosterEntry{UserID: c.UserID, Device: c.Device, ConnectedAt: c.ConnectedAt})
	}
	return out
}

func (o *Orchestrator) decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return invalid("bad_payload")
	}
	if err := o.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "required" {
				return invalid(fmt.Sprintf("%s is required", fe.Field()))
			}
			return invalid(fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return invalid("bad_payload")
	}
	return nil
}

func (o *Orchestrator) send(cl *Client, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("send marshal")
		return
	}
	if err := cl.Conn.TrySend(b); err != nil {
		o.onDropped([]domain.ConnID{cl.ID})
	}
}

func (o *Orchestrator) sendError(cl *Client, ev Event, reason string) {
	o.send(cl, ErrorAck{Type: EventError, Event: ev, Error: reason})
}

func (o *Orchestrator) broadcast(except domain.ConnID, v any, names ...core.GroupName) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("broadcast marshal")
		return
	}
	res := o.Groups.Broadcast(except, b, names...)
	o.onDropped(res.Dropped)
}

func (o *Orchestrator) onDropped(ids []domain.ConnID) {
	if len(ids) == 0 {
		return
	}
	o.Metrics.Dropped(len(ids))
	if o.Policy == nil {
		return
	}
	for _, id := range ids {
		switch o.Policy.OnBackPressure(id) {
		case app.KickMember:
			if cl, ok := o.clients[id]; ok {
				log.Warn().Str("module", "orch").Str("conn", string(id)).Msg("slow consumer kicked")
				cl.Conn.Close()
			}
		case app.DropFrame, app.NoAction:
		}
	}
}

func (o *Orchestrator) observe() {
	if o.Metrics != nil {
		o.Metrics.Stats(o.Registry.Stats())
		o.Metrics.Groups(o.Groups.GroupCount())
	}
}

func (o *Orchestrator) handlePing(cl *Client, _ Event, _ []byte) error {
	o.send(cl, Pong{Type: EventPong})
	return nil
}
