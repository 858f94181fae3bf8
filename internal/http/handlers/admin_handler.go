package handlers

import (
	"errors"

	"stockkeeper/internal/domain"
	applog "stockkeeper/internal/log"
	"stockkeeper/internal/services"

	"github.com/gofiber/fiber/v2"
)

// imageField is the multipart field carrying a product photo.
const imageField = "productImage"

type AdminHandler struct {
	Inv       *services.InventoryService
	Auth      *services.AuthService
	Media     *services.MediaService
	ExportURL string
}

func actor(c *fiber.Ctx) string {
	if u, ok := c.Locals("user").(*domain.User); ok {
		return u.Username
	}
	return ""
}

// GET /admin/dashboard
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	users, err := h.Auth.ListUsers()
	if err != nil {
		return err
	}
	products, err := h.Inv.List()
	if err != nil {
		return err
	}
	return render(c, "dashboard", fiber.Map{
		"Title":    "Dashboard",
		"Users":    users,
		"Products": products,
		"Err":      c.Query("err"),
	})
}

// GET /admin/history
func (h *AdminHandler) History(c *fiber.Ctx) error {
	logs, err := h.Inv.History(services.HistoryPageSize)
	if err != nil {
		applog.Error(c, "admin.history.fail", err, nil)
		return c.Redirect("/admin/dashboard")
	}
	return render(c, "history", fiber.Map{"Title": "History", "Logs": logs})
}

// GET /admin/download
func (h *AdminHandler) Download(c *fiber.Ctx) error {
	if h.ExportURL == "" {
		return c.SendString("The spreadsheet is not configured.")
	}
	applog.Audit(c, "admin.download", nil)
	return c.Redirect(h.ExportURL)
}

// POST /admin/products/create
func (h *AdminHandler) CreateProduct(c *fiber.Ctx) error {
	f := parseProductForm(c, c.FormValue("sku"))
	if err := f.Validate(); err != nil {
		applog.Security(c, "admin.product.invalid", map[string]any{"err": firstError(err)})
		return back(c, firstError(err))
	}
	p := f.product()
	img, err := h.saveImage(c)
	if err != nil {
		return err
	}
	p.Image = img

	if err := h.Inv.Create(p); err != nil {
		return err
	}
	applog.Audit(c, "admin.product.create", map[string]any{"sku": p.SKU, "qty": p.Quantity, "image": p.Image != ""})
	return back(c, "")
}

// GET /admin/products/edit/:sku
func (h *AdminHandler) EditProductForm(c *fiber.Ctx) error {
	p, err := h.Inv.Get(c.Params("sku"))
	if err != nil {
		return back(c, "")
	}
	logs, _ := h.Inv.ProductHistory(p.SKU)
	if len(logs) > 20 {
		logs = logs[:20]
	}
	return render(c, "edit_product", fiber.Map{"Title": "Edit " + p.SKU, "Product": p, "Logs": logs})
}

// POST /admin/products/edit/:sku
func (h *AdminHandler) EditProduct(c *fiber.Ctx) error {
	f := parseProductForm(c, c.Params("sku"))
	if err := f.Validate(); err != nil {
		return back(c, firstError(err))
	}
	p := f.product()
	img, err := h.saveImage(c)
	if err != nil {
		return err
	}
	p.Image = img

	switch err := h.Inv.Update(p, img != ""); {
	case errors.Is(err, services.ErrProductNotFound):
		return back(c, "")
	case err != nil:
		return err
	}
	applog.Audit(c, "admin.product.update", map[string]any{"sku": p.SKU, "qty": p.Quantity, "image": img != ""})
	return back(c, "")
}

// GET /admin/products/delete/:sku
func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	sku := c.Params("sku")
	if err := h.Inv.Delete(sku, actor(c)); err != nil {
		return err
	}
	applog.Audit(c, "admin.product.delete", map[string]any{"sku": sku})
	return back(c, "")
}

// saveImage stores the optional upload and returns its URL, or "" when
// none was sent.
func (h *AdminHandler) saveImage(c *fiber.Ctx) (string, error) {
	fh, err := c.FormFile(imageField)
	if err != nil || fh == nil || fh.Size == 0 {
		return "", nil
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	url, err := h.Media.Save(c.UserContext(), fh.Filename, f)
	if err != nil {
		applog.Error(c, "admin.upload.fail", err, map[string]any{"file": fh.Filename})
		return "", err
	}
	return url, nil
}

// POST /admin/users/create
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	username := c.FormValue("username")
	role := c.FormValue("role")
	err := h.Auth.CreateUser(username, c.FormValue("password"), role)
	switch {
	case errors.Is(err, services.ErrUserExists), errors.Is(err, services.ErrBadUsername), errors.Is(err, services.ErrBadPassword):
		return back(c, err.Error())
	case err != nil:
		return err
	}
	applog.Audit(c, "admin.user.create", map[string]any{"username": username, "role": role})
	return back(c, "")
}

// GET /admin/users/edit/:username
func (h *AdminHandler) EditUserForm(c *fiber.Ctx) error {
	u, err := h.Auth.GetUser(c.Params("username"))
	if err != nil {
		return back(c, "")
	}
	return render(c, "edit_user", fiber.Map{"Title": "Edit " + u.Username, "Edit": u})
}

// POST /admin/users/edit/:username
func (h *AdminHandler) EditUser(c *fiber.Ctx) error {
	username := c.Params("username")
	err := h.Auth.UpdateUser(username, c.FormValue("password"), c.FormValue("role"))
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return back(c, "")
	case err != nil:
		return err
	}
	applog.Audit(c, "admin.user.update", map[string]any{"username": username, "password_changed": c.FormValue("password") != ""})
	return back(c, "")
}

// GET /admin/users/delete/:username
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	username := c.Params("username")
	err := h.Auth.DeleteUser(username)
	switch {
	case errors.Is(err, services.ErrReservedUser):
		applog.Security(c, "admin.user.delete.reserved", map[string]any{"username": username})
		return back(c, "")
	case err != nil:
		return err
	}
	applog.Audit(c, "admin.user.delete", map[string]any{"username": username})
	return back(c, "")
}
