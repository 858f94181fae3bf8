package handlers

import "github.com/gofiber/fiber/v2"

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := c.Locals("user"); u != nil {
		data["User"] = u
	}
	// Token placed into Locals by the CSRF middleware; the cookie is the
	// fallback for handlers reached without it.
	tok, _ := c.Locals("CSRFToken").(string)
	if tok == "" {
		tok = c.Cookies("csrf_")
	}
	if tok != "" {
		data["CSRFToken"] = tok
	}
	return c.Render(tmpl, data)
}

// back redirects to the dashboard, carrying an optional error message.
func back(c *fiber.Ctx, msg string) error {
	if msg == "" {
		return c.Redirect("/admin/dashboard")
	}
	return c.Redirect("/admin/dashboard?err=" + queryEscape(msg))
}
