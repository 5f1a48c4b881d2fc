package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/ManuelReschke/FoxKit/internal/pkg/usercontext"
)

// UserContextMiddleware loads the signed in user from the session. Anonymous
// requests get an empty context.
func UserContextMiddleware(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if store == nil {
			usercontext.Set(c, usercontext.UserContext{})
			return c.Next()
		}
		sess, err := store.Get(c)
		if err != nil {
			usercontext.Set(c, usercontext.UserContext{})
			return c.Next()
		}

		userID, ok := sess.Get(usercontext.KeyUserID).(uint)
		if !ok || userID == 0 {
			usercontext.Set(c, usercontext.UserContext{})
			return c.Next()
		}
		email, _ := sess.Get(usercontext.KeyUserEmail).(string)

		usercontext.Set(c, usercontext.UserContext{
			UserID:     userID,
			Email:      email,
			IsLoggedIn: true,
		})
		return c.Next()
	}
}
