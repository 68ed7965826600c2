package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Proctor/internal/adapters/signal"
	"github.com/dkeye/Proctor/internal/app/orch"
	"github.com/dkeye/Proctor/internal/auth"
	"github.com/dkeye/Proctor/internal/config"
	"github.com/dkeye/Proctor/internal/domain"
	"github.com/dkeye/Proctor/internal/metrics"
)

const sessionName = "ProctorSessions"

// DeviceIDMiddleware keeps a stable device identifier in the cookie
// session so a companion device is recognisable across reconnects.
func DeviceIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, _ := session.Get(signal.DeviceIDKey).(string)
		if id == "" {
			id = uuid.NewString()
			session.Set(signal.DeviceIDKey, id)
			if err := session.Save(); err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Msg("save device session")
			}
		}
		c.Set(signal.DeviceIDKey, id)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, gate *auth.Gate, rec *metrics.Recorder) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctrl := signal.NewSignalWSController(o, cfg)
	ws := func(ch orch.Channel) gin.HandlerFunc {
		return func(c *gin.Context) {
			ctrl.HandleSignal(ctx, c, ch)
		}
	}
	requireAdmin := gate.RequireRole(domain.RoleAdmin)

	r.GET("/ws/exam", gate.RequireIdentity(), DeviceIDMiddleware(), ws(orch.ChannelExam))
	r.GET("/ws/admin", gate.RequireIdentity(), requireAdmin, ws(orch.ChannelAdmin))
	r.GET("/ws/mobile", gate.OptionalIdentity(), DeviceIDMiddleware(), ws(orch.ChannelMobile))

	api := r.Group("/api")

	// GET /api/health: registry snapshot
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "stats": o.Stats()})
	})

	// GET /api/exams/:examId/roster: who is in an exam room
	api.GET("/exams/:examId/roster", gate.RequireIdentity(), requireAdmin, func(c *gin.Context) {
		examID := domain.ExamID(c.Param("examId"))
		c.JSON(http.StatusOK, gin.H{"examId": examID, "users": o.Roster(examID)})
	})

	r.GET("/metrics", gin.WrapH(rec.Handler()))

	return r
}
