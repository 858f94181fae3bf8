package handlers

import (
	"errors"

	"stockkeeper/internal/log"
	"stockkeeper/internal/services"

	"github.com/gofiber/fiber/v2"
)

// APIHandler serves the mobile app. Requests carry no session.
type APIHandler struct {
	Inv  *services.InventoryService
	Auth *services.AuthService
}

func jsonError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"status": "error", "message": msg})
}

// POST /api/login
func (h *APIHandler) Login(c *fiber.Ctx) error {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		log.Security(c, "api.login.fail", map[string]any{"reason": "invalid"})
		return jsonError(c, fiber.StatusUnauthorized, "Invalid credentials.")
	}
	u, err := h.Auth.Check(req.Username, req.Password)
	if err != nil {
		log.Security(c, "api.login.fail", map[string]any{"username": req.Username})
		return jsonError(c, fiber.StatusUnauthorized, "Invalid credentials.")
	}
	log.Audit(c, "api.login.success", map[string]any{"username": u.Username})
	return c.JSON(fiber.Map{"status": "success", "message": "OK", "role": u.Role})
}

// GET /get_inventory
func (h *APIHandler) Inventory(c *fiber.Ctx) error {
	ps, err := h.Inv.List()
	if err != nil {
		log.Error(c, "api.inventory.list.fail", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"status": "success", "inventory": ps})
}

// POST /update_inventory
func (h *APIHandler) UpdateInventory(c *fiber.Ctx) error {
	upd, err := parseInventoryUpdate(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if upd.SKU == "" {
		return jsonError(c, fiber.StatusBadRequest, "SKU is required.")
	}
	if err := upd.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, firstError(err))
	}

	qty, err := h.Inv.ApplyTransaction(upd.transaction())
	switch {
	case errors.Is(err, services.ErrMissingSKU):
		return jsonError(c, fiber.StatusBadRequest, "SKU is required.")
	case errors.Is(err, services.ErrInsufficientStock):
		log.Info(c, "api.inventory.insufficient", map[string]any{"sku": upd.SKU, "requested": upd.Quantity, "available": qty})
		return jsonError(c, fiber.StatusBadRequest, "Insufficient stock.")
	case err != nil:
		log.Error(c, "api.inventory.update.fail", err, map[string]any{"sku": upd.SKU})
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	log.Audit(c, "api.inventory.update", map[string]any{
		"sku": upd.SKU, "delta": upd.Quantity, "inbound": upd.Inbound, "balance": qty, "user": upd.User,
	})
	return c.JSON(fiber.Map{"status": "success", "message": "Success."})
}

// DELETE /delete_inventory/:sku?user=
func (h *APIHandler) DeleteInventory(c *fiber.Ctx) error {
	sku := c.Params("sku")
	if err := h.Inv.Delete(sku, c.Query("user")); err != nil {
		log.Error(c, "api.inventory.delete.fail", err, map[string]any{"sku": sku})
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	log.Audit(c, "api.inventory.delete", map[string]any{"sku": sku, "user": c.Query("user")})
	return c.JSON(fiber.Map{"status": "success", "message": "Deleted."})
}
