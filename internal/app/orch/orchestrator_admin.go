package orch

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Proctor/internal/app"
	"github.com/dkeye/Proctor/internal/domain"
)

// connectAdmin registers an admin observer. Its record never carries an
// exam id: monitoring an exam is a group subscription only.
func (o *Orchestrator) connectAdmin(cl *Client) {
	o.Registry.Add(cl.ID, domain.ConnectionInfo{
		UserID: cl.Identity.UserID,
		Role:   cl.Identity.Role,
		Device: domain.DeviceAdminMonitor,
	})
	o.Groups.Join(app.AdminChannel, cl.ID, cl.Conn)
	o.sendAdminState(cl, "connected to admin channel")
	o.observe()
}

func (o *Orchestrator) sendAdminState(cl *Client, message string) {
	o.send(cl, AdminState{Type: EventExamState, Stats: o.Registry.Stats(), Message: message})
}

func (o *Orchestrator) handleGetStats(cl *Client, _ Event, _ []byte) error {
	o.sendAdminState(cl, "stats")
	return nil
}

func (o *Orchestrator) handleMonitorExam(cl *Client, _ Event, data []byte) error {
	var p examPayload
	if err := o.decode(data, &p); err != nil {
		return err
	}
	o.Groups.Join(app.ExamMonitor(p.ExamID), cl.ID, cl.Conn)
	o.observe()
	o.send(cl, ExamState{
		Type:    EventExamState,
		ExamID:  p.ExamID,
		Users:   o.Roster(p.ExamID),
		Message: fmt.Sprintf("monitoring exam %s", p.ExamID),
	})
	log.Info().Str("module", "orch").Str("conn", string(cl.ID)).Str("exam", string(p.ExamID)).Msg("monitoring exam")
	return nil
}

func (o *Orchestrator) handleUnmonitorExam(cl *Client, _ Event, data []byte) error {
	var p examPayload
	if err := o.decode(data, &p); err != nil {
		return err
	}
	o.Groups.Leave(app.ExamMonitor(p.ExamID), cl.ID)
	o.observe()
	return nil
}
