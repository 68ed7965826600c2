package orch

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Proctor/internal/app"
	"github.com/dkeye/Proctor/internal/domain"
)

// handleJoinExam registers the connection in an exam room. The user id
// always comes from the verified identity, never from the payload.
func (o *Orchestrator) handleJoinExam(cl *Client, _ Event, data []byte) error {
	var p joinExamPayload
	if err := o.decode(data, &p); err != nil {
		return err
	}
	if !o.Limiter.Allow(cl.Identity.UserID) {
		return limited("too many join attempts")
	}

	if rec, ok := o.Registry.Get(cl.ID); ok {
		log.Info().Str("module", "orch").Str("conn", string(cl.ID)).Str("from_exam", string(rec.ExamID)).Msg("leaving previous exam before join")
		o.leave(cl)
	}

	device := p.Device
	if device == "" {
		device = cl.Device
	}
	if device == "" {
		device = domain.DeviceLaptop
	}

	rec := o.Registry.Add(cl.ID, domain.ConnectionInfo{
		UserID: cl.Identity.UserID,
		Role:   cl.Identity.Role,
		ExamID: p.ExamID,
		Device: device,
	})
	room := app.ExamRoom(p.ExamID)
	o.Groups.Join(room, cl.ID, cl.Conn)

	roster := o.Roster(p.ExamID)
	o.send(cl, ExamState{
		Type:    EventExamState,
		ExamID:  p.ExamID,
		Users:   roster,
		Message: fmt.Sprintf("joined exam %s", p.ExamID),
	})

	joined := UserJoined{
		Type:        EventUserJoined,
		UserID:      rec.UserID,
		Device:      rec.Device,
		ExamID:      rec.ExamID,
		ConnectedAt: rec.ConnectedAt,
	}
	o.broadcast(cl.ID, joined, room)
	o.broadcast("", AdminUserJoined{UserJoined: joined, TotalInRoom: len(roster)}, app.AdminChannel)
	o.observe()

	log.Info().Str("module", "orch").Str("conn", string(cl.ID)).Str("user", string(rec.UserID)).
		Str("exam", string(rec.ExamID)).Int("in_room", len(roster)).Msg("joined exam")
	return nil
}

func (o *Orchestrator) handleLeaveExam(cl *Client, _ Event, _ []byte) error {
	o.leave(cl)
	o.observe()
	return nil
}

// leave is the single cleanup path shared by leave-exam, re-join and
// disconnect. It is a no-op when the connection has no registry entry.
func (o *Orchestrator) leave(cl *Client) {
	rec, ok := o.Registry.Remove(cl.ID)
	if !ok || !rec.InExam() {
		return
	}
	room := app.ExamRoom(rec.ExamID)
	o.Groups.Leave(room, cl.ID)
	remaining := len(o.Registry.GetByExam(rec.ExamID))

	left := UserLeft{
		Type:   EventUserLeft,
		UserID: rec.UserID,
		Device: rec.Device,
		ExamID: rec.ExamID,
	}
	o.broadcast(cl.ID, left, room)
	o.broadcast("", AdminUserLeft{UserLeft: left, RemainingInRoom: remaining}, app.AdminChannel)

	log.Info().Str("module", "orch").Str("conn", string(cl.ID)).Str("user", string(rec.UserID)).
		Str("exam", string(rec.ExamID)).Int("remaining", remaining).Msg("left exam")
}

// handleExamControl relays exam-start and exam-end to every member of the
// exam room, the actor included.
func (o *Orchestrator) handleExamControl(cl *Client, ev Event, data []byte) error {
	var p examPayload
	if err := o.decode(data, &p); err != nil {
		return err
	}
	o.broadcast("", ExamSignal{Type: ev, ExamID: p.ExamID, Timestamp: o.Now()}, app.ExamRoom(p.ExamID))
	log.Info().Str("module", "orch").Str("conn", string(cl.ID)).Str("user", string(cl.Identity.UserID)).
		Str("exam", string(p.ExamID)).Str("signal", string(ev)).Msg("exam control")
	return nil
}
