package app

import (
	"github.com/dkeye/Proctor/internal/core"
	"github.com/dkeye/Proctor/internal/domain"
)

// AdminChannel is the global observer group every admin connection joins.
const AdminChannel core.GroupName = "admin"

func ExamRoom(id domain.ExamID) core.GroupName { return core.GroupName("exam:" + string(id)) }

// ExamMonitor is the admin-side group of observers watching one exam.
func ExamMonitor(id domain.ExamID) core.GroupName {
	return core.GroupName("admin:exam:" + string(id))
}

func SessionGroup(id domain.PairingID) core.GroupName {
	return core.GroupName("session:" + string(id))
}
