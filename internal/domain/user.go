// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	MaxUserIDLen    = 64
	AnonymousUserID = UserID("anonymous")
)

var (
	ErrUnknownRole = errors.New("unknown role")
	ErrUserIDEmpty = errors.New("user id empty")
	ErrUserIDLong  = errors.New("user id too long")
)

type UserID string

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", ErrUnknownRole
}

// Identity is the verified principal attached to a connection before any
// handler runs. The zero value is the anonymous identity.
type Identity struct {
	UserID UserID `json:"userId"`
	Role   Role   `json:"role"`
}

func NewIdentity(userID string, role string) (Identity, error) {
	if userID == "" {
		return Identity{}, ErrUserIDEmpty
	}
	if len(userID) > MaxUserIDLen {
		return Identity{}, ErrUserIDLong
	}
	r, err := ParseRole(role)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: UserID(userID), Role: r}, nil
}

func (i Identity) Anonymous() bool { return i.UserID == "" }

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// DisplayID returns the user id, or AnonymousUserID for unauthenticated senders.
func (i Identity) DisplayID() UserID {
	if i.Anonymous() {
		return AnonymousUserID
	}
	return i.UserID
}
