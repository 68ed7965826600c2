package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr error
	}{
		{in: "student", want: RoleStudent},
		{in: " Admin ", want: RoleAdmin},
		{in: "proctor", wantErr: ErrUnknownRole},
		{in: "", wantErr: ErrUnknownRole},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewIdentity(t *testing.T) {
	id, err := NewIdentity("u1", "student")
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u1", Role: RoleStudent}, id)
	assert.False(t, id.IsAdmin())

	_, err = NewIdentity("", "student")
	assert.ErrorIs(t, err, ErrUserIDEmpty)

	_, err = NewIdentity(strings.Repeat("x", MaxUserIDLen+1), "admin")
	assert.ErrorIs(t, err, ErrUserIDLong)
}

func TestIdentityDisplayID(t *testing.T) {
	assert.Equal(t, AnonymousUserID, Identity{}.DisplayID())
	assert.True(t, Identity{}.Anonymous())
	assert.Equal(t, UserID("u1"), Identity{UserID: "u1"}.DisplayID())
}
