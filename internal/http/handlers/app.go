package handlers

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"stockkeeper/internal/domain"
	applog "stockkeeper/internal/log"
	"stockkeeper/internal/realtime"
	"stockkeeper/internal/services"
	"stockkeeper/web"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Inventory *services.InventoryService
	Auth      *services.AuthService
	Media     *services.MediaService
	Hub       *realtime.Hub
}

type Options struct {
	SessionSecret string
	UploadDir     string
	ExportURL     string
	BodyLimit     int
	// LoginMax attempts per LoginWindow and client IP; zero picks defaults.
	LoginMax    int
	LoginWindow time.Duration
	// AccessLog enables the per-request access log line.
	AccessLog bool
}

// SessionKey derives the cookie encryption key from a free-form secret.
func SessionKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func newEngine() *html.Engine {
	engine := html.NewFileSystem(http.FS(web.TemplatesFS()), ".html")
	engine.AddFunc("stockLevel", domain.StockLevel)
	return engine
}

// NewApp builds the admin panel, the mobile API and the realtime endpoint.
func NewApp(d Deps, o Options) *fiber.App {
	if o.BodyLimit <= 0 {
		o.BodyLimit = 10 << 20
	}
	if o.LoginMax <= 0 {
		o.LoginMax = 10
	}
	if o.LoginWindow <= 0 {
		o.LoginWindow = 10 * time.Minute
	}

	app := fiber.New(fiber.Config{
		Views:        newEngine(),
		BodyLimit:    o.BodyLimit,
		UnescapePath: true,
		ErrorHandler: errorHandler,
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	if o.AccessLog {
		app.Use(logger.New())
	}
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(encryptcookie.New(encryptcookie.Config{
		Key:    SessionKey(o.SessionSecret),
		Except: []string{"csrf_"},
	}))
	app.Use(AttachUser(d.Auth))

	// ---------- Static assets ----------
	app.Use("/static", filesystem.New(filesystem.Config{Root: http.FS(web.StaticFS())}))
	if o.UploadDir != "" {
		app.Static("/uploads", o.UploadDir, fiber.Static{Browse: false})
	}

	// ---------- Realtime ----------
	if d.Hub != nil {
		app.Use("/ws", realtime.Upgrade)
		app.Get("/ws", d.Hub.Handler())
	}

	loginLimiter := func(onLimit fiber.Handler) fiber.Handler {
		return limiter.New(limiter.Config{
			Max:          o.LoginMax,
			Expiration:   o.LoginWindow,
			LimitReached: onLimit,
		})
	}

	// ---------- Admin panel ----------
	authH := &AuthHandler{Auth: d.Auth}
	adminH := &AdminHandler{Inv: d.Inventory, Auth: d.Auth, Media: d.Media, ExportURL: o.ExportURL}
	gate := RequireAdmin(d.Auth)

	admin := app.Group("/admin", csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieHTTPOnly: true,
		ContextKey:     "csrf",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			c.Status(fiber.StatusForbidden)
			return render(c, "notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}), func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	admin.Get("/", authH.LoginForm)
	admin.Post("/login", loginLimiter(func(c *fiber.Ctx) error {
		applog.Security(c, "rate.login.hit", nil)
		c.Status(fiber.StatusTooManyRequests)
		return render(c, "login", fiber.Map{"Err": "Too many attempts. Please try again later."})
	}), authH.Login)
	admin.Get("/logout", authH.Logout)

	admin.Get("/dashboard", gate, adminH.Dashboard)
	admin.Get("/history", gate, adminH.History)
	admin.Get("/download", gate, adminH.Download)

	admin.Post("/users/create", gate, adminH.CreateUser)
	admin.Get("/users/edit/:username", gate, adminH.EditUserForm)
	admin.Post("/users/edit/:username", gate, adminH.EditUser)
	admin.Get("/users/delete/:username", gate, adminH.DeleteUser)

	admin.Post("/products/create", gate, adminH.CreateProduct)
	admin.Get("/products/edit/:sku", gate, adminH.EditProductForm)
	admin.Post("/products/edit/:sku", gate, adminH.EditProduct)
	admin.Get("/products/delete/:sku", gate, adminH.DeleteProduct)

	// ---------- Mobile API ----------
	apiH := &APIHandler{Inv: d.Inventory, Auth: d.Auth}
	app.Post("/api/login", loginLimiter(func(c *fiber.Ctx) error {
		applog.Security(c, "rate.login.hit", nil)
		return jsonError(c, fiber.StatusTooManyRequests, "Too many attempts. Please try again later.")
	}), apiH.Login)
	app.Get("/get_inventory", apiH.Inventory)
	app.Post("/update_inventory", apiH.UpdateInventory)
	app.Delete("/delete_inventory/:sku", apiH.DeleteInventory)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/", func(c *fiber.Ctx) error { return c.Redirect("/admin") })
	app.Use(func(c *fiber.Ctx) error {
		if wantsJSON(c) {
			return jsonError(c, fiber.StatusNotFound, "not found")
		}
		c.Status(fiber.StatusNotFound)
		return render(c, "notfound", fiber.Map{"Message": "Page not found"})
	})

	return app
}

func wantsJSON(c *fiber.Ctx) bool {
	p := c.Path()
	return strings.HasPrefix(p, "/api/") ||
		strings.HasPrefix(p, "/get_inventory") ||
		strings.HasPrefix(p, "/update_inventory") ||
		strings.HasPrefix(p, "/delete_inventory")
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		applog.Error(c, "server.error", err, nil)
	}

	msg := "Something went wrong. Please try again."
	if code < fiber.StatusInternalServerError && fe != nil {
		msg = fe.Message
	}
	if wantsJSON(c) {
		return jsonError(c, code, msg)
	}
	c.Status(code)
	if rerr := render(c, "notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}
