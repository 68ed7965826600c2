package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Proctor/internal/app"
)

// handleMobileJoin attaches the connection to a pairing group. Pairing is
// independent of exam membership and never touches the registry.
func (o *Orchestrator) handleMobileJoin(cl *Client, _ Event, data []byte) error {
	var p mobileJoinPayload
	if err := o.decode(data, &p); err != nil {
		return err
	}
	group := app.SessionGroup(p.SessionID)
	o.Groups.Join(group, cl.ID, cl.Conn)

	deviceID := cl.DeviceID
	if deviceID == "" {
		deviceID = string(cl.ID)
	}
	o.broadcast(cl.ID, MobileConnected{
		Type:             EventMobileConnected,
		SessionID:        p.SessionID,
		DeviceIdentifier: deviceID,
	}, group)
	o.observe()

	log.Info().Str("module", "orch").Str("conn", string(cl.ID)).Str("session", string(p.SessionID)).
		Str("device", deviceID).Msg("mobile joined session")
	return nil
}

// handleViolationAlert relays to the other members of the pairing group
// and, when an exam is named, to the admins observing it. The sender may
// be anonymous.
func (o *Orchestrator) handleViolationAlert(cl *Client, _ Event, data []byte) error {
	var p violationAlertPayload
	if err := o.decode(data, &p); err != nil {
		return err
	}
	msg := ViolationDetected{
		Type:       EventViolationDetected,
		SessionID:  p.SessionID,
		UserID:     cl.Identity.DisplayID(),
		ExamID:     p.ExamID,
		Violation:  p.Violation,
		Confidence: p.Confidence,
		Timestamp:  p.Timestamp,
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = o.Now().UnixMilli()
	}
	o.broadcast(cl.ID, msg, app.SessionGroup(p.SessionID))
	if p.ExamID != "" {
		o.broadcast(cl.ID, msg, app.AdminChannel, app.ExamMonitor(p.ExamID))
	}

	log.Warn().Str("module", "orch").Str("conn", string(cl.ID)).Str("user", string(msg.UserID)).
		Str("session", string(p.SessionID)).Str("exam", string(p.ExamID)).
		Str("violation", p.Violation).Float64("confidence", p.Confidence).Msg("violation relayed")
	return nil
}
