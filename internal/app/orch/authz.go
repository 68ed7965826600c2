package orch

import "github.com/dkeye/Proctor/internal/domain"

// Channel is the logical endpoint a connection attached through.
type Channel string

const (
	ChannelExam   Channel = "exam"
	ChannelAdmin  Channel = "admin"
	ChannelMobile Channel = "mobile"
)

// Rule decides whether an identity may invoke an event.
type Rule func(domain.Identity) bool

func Anyone(domain.Identity) bool { return true }

func RequireRole(role domain.Role) Rule {
	return func(id domain.Identity) bool { return id.Role == role }
}

var adminOnly = RequireRole(domain.RoleAdmin)

// authz is the authorization matrix. An event missing from a channel's
// table is not available on that channel.
var authz = map[Channel]map[Event]Rule{
	ChannelExam: {
		EventJoinExam:       Anyone,
		EventLeaveExam:      Anyone,
		EventExamStart:      adminOnly,
		EventExamEnd:        adminOnly,
		EventMobileJoin:     Anyone,
		EventViolationAlert: Anyone,
		EventPing:           Anyone,
	},
	ChannelAdmin: {
		EventExamStart:     adminOnly,
		EventExamEnd:       adminOnly,
		EventMonitorExam:   adminOnly,
		EventUnmonitorExam: adminOnly,
		EventGetStats:      adminOnly,
		EventPing:          Anyone,
	},
	ChannelMobile: {
		EventMobileJoin:     Anyone,
		EventViolationAlert: Anyone,
		EventPing:           Anyone,
	},
}

// Authorize reports whether ev exists on ch and whether id may invoke it.
func Authorize(ch Channel, ev Event, id domain.Identity) (allowed, known bool) {
	rule, ok := authz[ch][ev]
	if !ok {
		return false, false
	}
	return rule(id), true
}
