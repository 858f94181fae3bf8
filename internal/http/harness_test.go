package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"stockkeeper/internal/http/handlers"
	"stockkeeper/internal/realtime"
	"stockkeeper/internal/repos"
	"stockkeeper/internal/services"
)

type countingSync struct{ n atomic.Int32 }

func (c *countingSync) Trigger() { c.n.Add(1) }

// harness is one app instance plus a cookie jar for a single browser.
type harness struct {
	app     *fiber.App
	store   *repos.Store
	auth    *services.AuthService
	sync    *countingSync
	uploads string
	jar     map[string]string
}

func newHarness(t *testing.T, tweak ...func(*handlers.Options)) *harness {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := repos.NewStore(db)

	cs := &countingSync{}
	o := handlers.Options{
		SessionSecret: "test-secret",
		UploadDir:     t.TempDir(),
		LoginMax:      100,
		LoginWindow:   time.Minute,
	}
	for _, f := range tweak {
		f(&o)
	}

	auth := services.NewAuthService(st.Users)
	app := handlers.NewApp(handlers.Deps{
		Inventory: services.NewInventoryService(st.Products, st.Logs, cs),
		Auth:      auth,
		Media:     services.NewMediaService(o.UploadDir, nil),
		Hub:       realtime.NewHub(),
	}, o)

	return &harness{app: app, store: st, auth: auth, sync: cs, uploads: o.UploadDir, jar: map[string]string{}}
}

func (h *harness) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	for name, v := range h.jar {
		req.AddCookie(&http.Cookie{Name: name, Value: v})
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	for _, c := range resp.Cookies() {
		if c.Value == "" || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) {
			delete(h.jar, c.Name)
			continue
		}
		h.jar[c.Name] = c.Value
	}
	return resp
}

func (h *harness) get(t *testing.T, path string) *http.Response {
	t.Helper()
	return h.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

// csrfToken makes sure the jar holds a CSRF cookie and returns it.
func (h *harness) csrfToken(t *testing.T) string {
	t.Helper()
	if tok := h.jar["csrf_"]; tok != "" {
		return tok
	}
	h.get(t, "/admin")
	tok := h.jar["csrf_"]
	require.NotEmpty(t, tok, "csrf token missing")
	return tok
}

func (h *harness) postForm(t *testing.T, path string, vals url.Values) *http.Response {
	t.Helper()
	if vals == nil {
		vals = url.Values{}
	}
	vals.Set("csrf", h.csrfToken(t))
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	return h.do(t, req)
}

func (h *harness) postMultipart(t *testing.T, path string, vals map[string]string, fileName string, file []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("csrf", h.csrfToken(t)))
	for k, v := range vals {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("productImage", fileName)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return h.do(t, req)
}

func (h *harness) loginAdmin(t *testing.T) {
	t.Helper()
	resp := h.postForm(t, "/admin/login", url.Values{"username": {"admin"}, "password": {repos.DefaultAdminPassword}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/admin/dashboard", resp.Header.Get("Location"))
	require.NotEmpty(t, h.jar["sid"])
}

func (h *harness) sendJSON(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	resp := h.do(t, req)

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return resp, out
}

func bodyString(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
