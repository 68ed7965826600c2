package app

import "github.com/dkeye/Proctor/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

type Policy interface {
	OnBackPressure(id domain.ConnID) BackpressureAction
}

// SimplePolicy kicks every slow consumer.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.ConnID) BackpressureAction {
	return KickMember
}

// TolerantPolicy drops the frame and keeps the connection.
type TolerantPolicy struct{}

func (TolerantPolicy) OnBackPressure(domain.ConnID) BackpressureAction {
	return DropFrame
}
