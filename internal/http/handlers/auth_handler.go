package handlers

import (
	"errors"

	"stockkeeper/internal/domain"
	"stockkeeper/internal/log"
	"stockkeeper/internal/services"
	"stockkeeper/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Auth *services.AuthService
}

// GET /admin
func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	if u, ok := c.Locals("user").(*domain.User); ok && u.IsAdmin() {
		return c.Redirect("/admin/dashboard")
	}
	return render(c, "login", fiber.Map{"Title": "Sign in"})
}

// POST /admin/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	username, _ := validate.Username(c.FormValue("username"))
	pass := c.FormValue("password")

	// a fresh id on every login
	if old := c.Cookies(sessionCookie); old != "" {
		_ = h.Auth.Logout(old)
		c.Locals("user", nil)
		c.Request().Header.DelCookie(sessionCookie)
	}
	sid := ensureSID(c)

	_, err := h.Auth.Login(sid, username, pass)
	switch {
	case errors.Is(err, services.ErrNotAdmin):
		log.Security(c, "auth.login.fail", map[string]any{"username": username, "reason": "not_admin"})
		c.Status(fiber.StatusForbidden)
		return render(c, "login", fiber.Map{"Title": "Sign in", "Err": "This account has no admin rights."})
	case err != nil:
		log.Security(c, "auth.login.fail", map[string]any{"username": username})
		c.Status(fiber.StatusUnauthorized)
		return render(c, "login", fiber.Map{"Title": "Sign in", "Err": "Wrong username or password."})
	}

	log.Audit(c, "auth.login.success", map[string]any{"username": username})
	return c.Redirect("/admin/dashboard")
}

// GET /admin/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if sid := c.Cookies(sessionCookie); sid != "" {
		_ = h.Auth.Logout(sid)
	}
	clearSID(c)
	log.Audit(c, "auth.logout", nil)
	return c.Redirect("/admin")
}
