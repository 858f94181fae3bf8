package handlers

import (
	"encoding/json"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"stockkeeper/internal/domain"
	"stockkeeper/internal/services"
	"stockkeeper/internal/validate"
)

const (
	maxSKULen  = 128
	maxTextLen = 200
)

// inventoryUpdateBody is the wire shape sent by the mobile app. quantity and
// is_inbound arrive as numbers, strings or booleans depending on the client.
type inventoryUpdateBody struct {
	SKU       any    `json:"sku"`
	Quantity  any    `json:"quantity"`
	IsInbound any    `json:"is_inbound"`
	Name      string `json:"name"`
	User      string `json:"user"`
	Location  string `json:"location"`
}

type inventoryUpdate struct {
	SKU      string
	Quantity int
	Inbound  bool
	Name     string
	User     string
	Location string
}

func (u inventoryUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.SKU, validation.Required.Error("SKU is required"), validation.Length(1, maxSKULen)),
		validation.Field(&u.Name, validation.Length(0, maxTextLen)),
		validation.Field(&u.User, validation.Length(0, maxTextLen)),
		validation.Field(&u.Location, validation.Length(0, maxTextLen)),
	)
}

func (u inventoryUpdate) transaction() services.Transaction {
	return services.Transaction{
		SKU:      u.SKU,
		Delta:    u.Quantity,
		Inbound:  u.Inbound,
		Actor:    u.User,
		Name:     u.Name,
		Location: u.Location,
	}
}

// parseInventoryUpdate accepts JSON or form-encoded bodies.
func parseInventoryUpdate(c *fiber.Ctx) (inventoryUpdate, error) {
	var b inventoryUpdateBody
	if isForm(c) {
		b = inventoryUpdateBody{
			SKU:       c.FormValue("sku"),
			Quantity:  c.FormValue("quantity"),
			IsInbound: c.FormValue("is_inbound"),
			Name:      c.FormValue("name"),
			User:      c.FormValue("user"),
			Location:  c.FormValue("location"),
		}
	} else if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &b); err != nil {
			return inventoryUpdate{}, err
		}
	}
	sku, _ := validate.SKU(scalarString(b.SKU))
	return inventoryUpdate{
		SKU:      sku,
		Quantity: validate.Quantity(b.Quantity),
		Inbound:  validate.Truthy(b.IsInbound),
		Name:     strings.TrimSpace(b.Name),
		User:     strings.TrimSpace(b.User),
		Location: strings.TrimSpace(b.Location),
	}, nil
}

// scalarString renders a JSON string or number as text.
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func isForm(c *fiber.Ctx) bool {
	ct := string(c.Request().Header.ContentType())
	return strings.HasPrefix(ct, fiber.MIMEApplicationForm) || strings.HasPrefix(ct, fiber.MIMEMultipartForm)
}

type credentials struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (r credentials) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Password, validation.Required),
	)
}

// productForm is the admin create/edit form minus the image.
type productForm struct {
	SKU      string
	Name     string
	Location string
	Quantity int
}

func (f productForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.SKU, validation.Required.Error("SKU is required"), validation.Length(1, maxSKULen)),
		validation.Field(&f.Name, validation.Length(0, maxTextLen)),
		validation.Field(&f.Location, validation.Length(0, maxTextLen)),
	)
}

func (f productForm) product() domain.Product {
	return domain.Product{SKU: f.SKU, Name: f.Name, Location: f.Location, Quantity: f.Quantity}
}

func parseProductForm(c *fiber.Ctx, sku string) productForm {
	s, _ := validate.SKU(sku)
	return productForm{
		SKU:      s,
		Name:     strings.TrimSpace(c.FormValue("name")),
		Location: strings.TrimSpace(c.FormValue("location")),
		Quantity: validate.Quantity(c.FormValue("quantity")),
	}
}

// firstError flattens ozzo's field errors into one message.
func firstError(err error) string {
	if errs, ok := err.(validation.Errors); ok {
		for field, e := range errs {
			return field + ": " + e.Error()
		}
	}
	return err.Error()
}
