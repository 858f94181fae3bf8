package handlers

import (
	"net/url"
	"time"

	applog "stockkeeper/internal/log"
	"stockkeeper/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	sessionCookie = "sid"
	sessionMaxAge = 24 * time.Hour
)

// RequireAdmin lets through requests whose session belongs to an admin.
// Everyone else is sent to the login page.
func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies(sessionCookie)
		if sid == "" {
			return c.Redirect("/admin")
		}
		u, err := auth.CurrentUser(sid)
		if err != nil || u == nil || !u.IsAdmin() {
			applog.Security(c, "access.denied.admin", map[string]any{"has_session": err == nil})
			return c.Redirect("/admin")
		}
		c.Locals("user", u)
		return c.Next()
	}
}

// AttachUser exposes the session user, if any, to templates.
func AttachUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies(sessionCookie); sid != "" {
			if u, err := auth.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	}
}

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies(sessionCookie)
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     sessionCookie,
			Value:    sid,
			Path:     "/",
			MaxAge:   int(sessionMaxAge.Seconds()),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return sid
}

func clearSID(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
}

func queryEscape(s string) string { return url.QueryEscape(s) }
