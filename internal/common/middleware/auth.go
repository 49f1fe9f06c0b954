package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"referral-backend/internal/common/config"
	"referral-backend/internal/common/errors"
	usermodels "referral-backend/internal/features/user/models"
	userservice "referral-backend/internal/features/user/service"
)

const userContextKey = "current_user"

// Auth validates the Telegram init data header, upserts the caller and
// attaches the stored user to the request context.
func Auth(cfg *config.Config, users userservice.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		initDataQuery := c.GetHeader("init_data")
		if initDataQuery == "" {
			RespondError(c, errors.NewUnauthenticatedError("init data required"))
			return
		}

		// Expiration is checked by Telegram clients; replayed init data is
		// accepted within the default hour.
		if err := initdata.Validate(initDataQuery, cfg.Telegram.BotToken, time.Hour); err != nil {
			RespondError(c, errors.Wrap(err, errors.ErrCodeUnauthenticated, "invalid init data"))
			return
		}

		parsed, err := initdata.Parse(initDataQuery)
		if err != nil {
			RespondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to parse init data"))
			return
		}

		user, err := users.EnsureUser(c.Request.Context(), &userservice.Profile{
			ID:        parsed.User.ID,
			Username:  parsed.User.Username,
			FirstName: parsed.User.FirstName,
			LastName:  parsed.User.LastName,
		})
		if err != nil {
			RespondError(c, err)
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user attached by Auth.
func CurrentUser(c *gin.Context) (*usermodels.User, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*usermodels.User)
	return user, ok
}

// RequireCapability refuses requests whose user lacks the capability. It
// must run after Auth.
func RequireCapability(cap usermodels.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			RespondError(c, errors.NewUnauthenticatedError("caller not resolved"))
			return
		}
		if !usermodels.HasCapability(user.Role, cap) {
			RespondError(c, errors.NewForbiddenError())
			return
		}
		c.Next()
	}
}
