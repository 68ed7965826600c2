package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Proctor/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newGateRouter(t *testing.T) (*gin.Engine, *Verifier, *[]string) {
	t.Helper()
	v := NewVerifier("secret", "proctor")
	var rejected []string
	g := &Gate{Verifier: v, OnReject: func(reason string) { rejected = append(rejected, reason) }}

	whoami := func(c *gin.Context) {
		id, _ := IdentityFrom(c)
		c.JSON(http.StatusOK, id)
	}
	r := gin.New()
	r.GET("/exam", g.RequireIdentity(), whoami)
	r.GET("/admin", g.RequireIdentity(), g.RequireRole(domain.RoleAdmin), whoami)
	r.GET("/mobile", g.OptionalIdentity(), whoami)
	return r, v, &rejected
}

func issue(t *testing.T, v *Verifier, user string, role domain.Role) string {
	t.Helper()
	tok, err := v.Issue(domain.Identity{UserID: domain.UserID(user), Role: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestGate(t *testing.T) {
	r, v, rejected := newGateRouter(t)
	student := issue(t, v, "s1", domain.RoleStudent)
	admin := issue(t, v, "a1", domain.RoleAdmin)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantError  string
		wantID     domain.Identity
	}{
		{name: "exam without token", path: "/exam", wantStatus: http.StatusUnauthorized, wantError: "missing credential"},
		{name: "exam with garbage", path: "/exam?token=nope", wantStatus: http.StatusUnauthorized, wantError: "invalid credential"},
		{name: "exam with query token", path: "/exam?token=" + student, wantStatus: http.StatusOK, wantID: domain.Identity{UserID: "s1", Role: domain.RoleStudent}},
		{name: "exam with header", path: "/exam", header: "Bearer " + student, wantStatus: http.StatusOK, wantID: domain.Identity{UserID: "s1", Role: domain.RoleStudent}},
		{name: "exam with non bearer header", path: "/exam", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantError: "missing credential"},
		{name: "admin as student", path: "/admin?token=" + student, wantStatus: http.StatusForbidden, wantError: "forbidden role"},
		{name: "admin as admin", path: "/admin?token=" + admin, wantStatus: http.StatusOK, wantID: domain.Identity{UserID: "a1", Role: domain.RoleAdmin}},
		{name: "mobile anonymous", path: "/mobile", wantStatus: http.StatusOK, wantID: domain.Identity{}},
		{name: "mobile with bad token", path: "/mobile?token=nope", wantStatus: http.StatusUnauthorized, wantError: "invalid credential"},
		{name: "mobile with token", path: "/mobile?token=" + student, wantStatus: http.StatusOK, wantID: domain.Identity{UserID: "s1", Role: domain.RoleStudent}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantError, body["error"])
				return
			}
			var got domain.Identity
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantID, got)
		})
	}
	assert.Contains(t, *rejected, "forbidden role")
	assert.Contains(t, *rejected, "missing credential")
}
