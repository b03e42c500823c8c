package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fireguard/internal/auth"
	"fireguard/internal/chat"
	"fireguard/internal/db"
	"fireguard/internal/hub"
	"fireguard/internal/models"
)

const dashboardHistory = 3 * 24 * time.Hour

var invalidPayload = gin.H{"error": "Invalid JSON payload"}

type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

type ReadingStore interface {
	ReadingsSince(ctx context.Context, since time.Time) ([]models.SensorReading, error)
}

type PollControl interface {
	Toggle() bool
	IsPolling() bool
}

type DeviceCommander interface {
	SetRelay(on bool) error
	SetBuzzer(on bool) error
	SetLed(color models.LedColor) error
}

type ChatAssistant interface {
	Chat(ctx context.Context, messages []chat.Message) (chat.Result, error)
}

type Handler struct {
	users    UserStore
	readings ReadingStore
	poller   PollControl
	devices  DeviceCommander
	chat     ChatAssistant
	tokens   *auth.Tokens
	registry *hub.Registry
	log      *logrus.Entry
	now      func() time.Time
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Register(c *gin.Context) {
	var req models.UserCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidPayload)
		return
	}
	if err := auth.ValidatePassword(req.Password, req.ConfirmPassword); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Errorf("Failed to hash password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	user, err := h.users.CreateUser(c.Request.Context(), req.Email, hash)
	if errors.Is(err, db.ErrDuplicateEmail) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username or email already registered"})
		return
	}
	if err != nil {
		h.log.Errorf("Failed to create user %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	h.log.Infof("Registered user: %s", user.Email)
	h.startSession(c, user)
}

func (h *Handler) Login(c *gin.Context) {
	var req models.UserLogin
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidPayload)
		return
	}

	user, err := h.users.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		h.log.Errorf("Failed to look up user %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong username or password"})
		return
	}

	h.startSession(c, user)
}

func (h *Handler) startSession(c *gin.Context, user models.User) {
	token, err := h.tokens.IssueSession(user.Email)
	if err != nil {
		h.log.Errorf("Failed to issue session for %s: %v", user.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	maxAge := int(h.tokens.SessionTTL().Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, maxAge, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"access_token": token})
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

func (h *Handler) Dashboard(c *gin.Context) {
	user := currentUser(c)
	readings, err := h.readings.ReadingsSince(c.Request.Context(), h.now().Add(-dashboardHistory))
	if err != nil {
		h.log.Errorf("Failed to load dashboard readings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sensor data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": user.Email, "sensor_data": readings})
}

func (h *Handler) PollStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"is_polling": h.poller.IsPolling()})
}

func (h *Handler) TogglePolling(c *gin.Context) {
	on := h.poller.Toggle()
	msg := "Polling stopped"
	if on {
		msg = "Polling started"
	}
	h.log.Infof("%s by %s", msg, currentUser(c).Email)
	c.JSON(http.StatusOK, gin.H{"is_polling": on, "message": msg})
}

func (h *Handler) SetRelay(c *gin.Context) {
	var req models.RelayState
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidPayload)
		return
	}
	if !h.command(c, "relay", func() error { return h.devices.SetRelay(*req.OnRelay) }) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"onRelay": *req.OnRelay})
}

func (h *Handler) SetBuzzer(c *gin.Context) {
	var req models.BuzzerState
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidPayload)
		return
	}
	if !h.command(c, "buzzer", func() error { return h.devices.SetBuzzer(*req.OnBuzzer) }) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"onBuzzer": *req.OnBuzzer})
}

func (h *Handler) SetLed(c *gin.Context) {
	var req models.LedState
	if err := c.ShouldBindJSON(&req); err != nil || !req.LedColor.Valid() {
		c.JSON(http.StatusBadRequest, invalidPayload)
		return
	}
	if !h.command(c, "led", func() error { return h.devices.SetLed(req.LedColor) }) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ledColor": req.LedColor})
}

// command publishes a device command and writes a 502 if the broker did
// not accept it.
func (h *Handler) command(c *gin.Context, device string, publish func() error) bool {
	if err := publish(); err != nil {
		h.log.Errorf("Failed to publish %s command: %v", device, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to reach device"})
		return false
	}
	return true
}

type chatRequest struct {
	Messages []chat.Message `json:"messages" binding:"required,dive"`
}

func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidPayload)
		return
	}
	if len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No messages provided"})
		return
	}

	res, err := h.chat.Chat(c.Request.Context(), req.Messages)
	if err != nil {
		h.log.Errorf("Chat failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ChannelToken(c *gin.Context) {
	token, _, err := h.tokens.IssueChannel(currentUser(c).Email)
	if err != nil {
		h.log.Errorf("Failed to issue channel token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
