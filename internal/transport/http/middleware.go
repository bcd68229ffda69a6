package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/heartlinkhq/heartlink-server/internal/store"
)

// ContextKeyUser is the gin context key for the resolved caller record.
const ContextKeyUser = "user"

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// IdentityMiddleware resolves the caller id supplied out-of-band (the
// X-User-ID header, or a userId query parameter) to a user record and
// attaches it to the request context. The store decides what a valid id is:
// the durable backend rejects malformed or unknown ids, the ephemeral
// backend provisions placeholders.
func IdentityMiddleware(users store.UserStore, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			userID = c.Query("userId")
		}
		if userID == "" {
			logger.Debug().Str("path", c.Request.URL.Path).Msg("missing caller id")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "not authenticated"})
			c.Abort()
			return
		}

		user, err := users.ResolveUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrInvalidUserID) {
				c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid user id"})
				c.Abort()
				return
			}
			if errors.Is(err, store.ErrUserNotFound) {
				c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "user not found"})
				c.Abort()
				return
			}
			logger.Error().Err(err).Str("user_id", userID).Msg("failed to resolve caller")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			c.Abort()
			return
		}

		if user.Suspended {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "account suspended"})
			c.Abort()
			return
		}

		c.Set(ContextKeyUser, user)
		c.Next()
	}
}

// callerFrom returns the resolved caller attached by IdentityMiddleware.
func callerFrom(c *gin.Context) (*store.User, bool) {
	value, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*store.User)
	return user, ok
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
