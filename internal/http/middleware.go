package http

import (
	"context"
	"encoding/gob"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"equipment-tracker/internal/domain"
	"equipment-tracker/internal/service"
)

const (
	// SessionCookie carries the signed session token.
	SessionCookie = "inventory_session"
	// FlashCookie carries one-shot flash messages between redirects.
	FlashCookie = "inventory_flash"
)

type flashMessage struct {
	Category string
	Message  string
}

func init() {
	gob.Register(flashMessage{})
}

func addFlash(c *gin.Context, category, message string) {
	s := sessions.Default(c)
	s.AddFlash(flashMessage{Category: category, Message: message})
	_ = s.Save()
}

func popFlashes(c *gin.Context) []flashMessage {
	s := sessions.Default(c)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = s.Save()

	out := make([]flashMessage, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(flashMessage); ok {
			out = append(out, f)
		}
	}
	return out
}

type userCtxKey struct{}

// UserFromContext returns the identity placed on the request by AuthRequired.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(*domain.User)
	return u, ok && u != nil
}

func currentUser(c *gin.Context) *domain.User {
	u, _ := UserFromContext(c.Request.Context())
	return u
}

// AuthRequired rejects requests without a live session and attaches the
// session's user to the request context.
func AuthRequired(sessionSvc service.SessionService, users service.UserService, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			denyAccess(c)
			return
		}

		ctx := c.Request.Context()
		userID, err := sessionSvc.Resolve(ctx, token)
		if err != nil {
			if !errors.Is(err, domain.ErrAuthRequired) {
				logger.WithError(err).Error("resolve session")
			}
			denyAccess(c)
			return
		}

		user, err := users.GetByID(ctx, userID)
		if err != nil || !user.IsActive {
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				logger.WithError(err).WithField("user_id", userID).Error("load session user")
			}
			_ = sessionSvc.Revoke(ctx, token)
			denyAccess(c)
			return
		}

		c.Request = c.Request.WithContext(context.WithValue(ctx, userCtxKey{}, user))
		c.Next()
	}
}

func denyAccess(c *gin.Context) {
	if wantsJSON(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.ErrAuthRequired.Error()})
		return
	}
	addFlash(c, "danger", "Please log in to access this page.")
	c.Redirect(http.StatusFound, "/login")
	c.Abort()
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Warn("request failed")
		default:
			entry.Debug("request")
		}
	}
}
