// Package api serves the dashboard HTTP API and the live push channel.
package api

import (
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fireguard/internal/auth"
	"fireguard/internal/hub"
)

// Deps are the collaborators the HTTP layer calls into.
type Deps struct {
	Users         UserStore
	Readings      ReadingStore
	Poller        PollControl
	Devices       DeviceCommander
	Chat          ChatAssistant
	Tokens        *auth.Tokens
	Authenticator auth.Authenticator
	Registry      *hub.Registry
	WebDir        string
	Log           *logrus.Entry
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(d.Log))

	h := &Handler{
		users:    d.Users,
		readings: d.Readings,
		poller:   d.Poller,
		devices:  d.Devices,
		chat:     d.Chat,
		tokens:   d.Tokens,
		registry: d.Registry,
		log:      d.Log,
		now:      time.Now,
	}

	r.GET("/health", h.Health)
	r.GET("/ws", h.LiveFeed)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/logout", h.Logout)
	}

	api := r.Group("/api", RequireUser(d.Authenticator))
	{
		// Dashboard
		api.GET("/dashboard", h.Dashboard)
		api.GET("/dashboard/poll/status", h.PollStatus)
		api.POST("/dashboard/poll/toggle", h.TogglePolling)

		// Devices
		api.POST("/dashboard/devices/relay", h.SetRelay)
		api.POST("/dashboard/devices/buzzer", h.SetBuzzer)
		api.POST("/dashboard/devices/led", h.SetLed)

		api.POST("/chat", h.Chat)
		api.GET("/ws/token", h.ChannelToken)
	}

	if d.WebDir != "" {
		r.Static("/assets", filepath.Join(d.WebDir, "assets"))
		r.StaticFile("/", filepath.Join(d.WebDir, "index.html"))
	}
	return r
}
