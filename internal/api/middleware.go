package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fireguard/internal/auth"
	"fireguard/internal/models"
)

const userKey = "user"

func RequestLoggingMiddleware(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		entry := log.WithFields(logrus.Fields{"status": status, "latency": latency})
		if len(c.Errors) > 0 {
			entry.Errorf("Request: %s %s failed: %s", method, path, c.Errors.String())
			return
		}
		entry.Infof("Request: %s %s", method, path)
	}
}

// RequireUser rejects requests without a valid session with 401 and stores
// the caller for the handlers behind it.
func RequireUser(authn auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := authn.CurrentUser(c)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) models.User {
	user, _ := c.MustGet(userKey).(models.User)
	return user
}
