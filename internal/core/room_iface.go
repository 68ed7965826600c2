package core

import "github.com/dkeye/Proctor/internal/domain"

// GroupName is the name of a multicast group ("exam:<id>", "session:<id>", "admin").
type GroupName string

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []domain.ConnID
}

// Groups is the transport's multicast primitive. A group exists while it
// has at least one member; it is created on first Join and dropped when
// the last member leaves. It never closes adapter-owned resources.
type Groups interface {
	Join(name GroupName, id domain.ConnID, conn SignalConnection)
	Leave(name GroupName, id domain.ConnID)
	// LeaveAll detaches id from every group and returns the groups it left.
	LeaveAll(id domain.ConnID) []GroupName
	IsMember(name GroupName, id domain.ConnID) bool
	GroupsOf(id domain.ConnID) []GroupName
	// GroupCount returns the number of non-empty groups.
	GroupCount() int
	// Broadcast delivers f once to every member of the union of names,
	// skipping except. An empty except reaches everyone.
	Broadcast(except domain.ConnID, f Frame, names ...GroupName) PublishResult
}
