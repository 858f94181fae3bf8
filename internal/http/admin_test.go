package handlers_test

import (
	"bytes"
	"image"
	"image/png"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"stockkeeper/internal/domain"
	"stockkeeper/internal/http/handlers"
)

func pngBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func TestAdminCreateProductWithImage(t *testing.T) {
	h := newHarness(t)
	h.loginAdmin(t)

	resp := h.postMultipart(t, "/admin/products/create",
		map[string]string{"sku": "P1", "name": "Pliers", "location": "R2", "quantity": "6"},
		"pliers.png", pngBytes(t))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/admin/dashboard", resp.Header.Get("Location"))

	p, err := h.store.Products.Get("P1")
	require.NoError(t, err)
	require.Equal(t, "Pliers", p.Name)
	require.Equal(t, 6, p.Quantity)
	require.True(t, strings.HasPrefix(p.Image, "/uploads/"), p.Image)
	require.True(t, strings.HasSuffix(p.Image, "-pliers.png"), p.Image)

	stored := filepath.Join(h.uploads, strings.TrimPrefix(p.Image, "/uploads/"))
	_, err = os.Stat(stored)
	require.NoError(t, err)

	// served back from the upload dir
	resp = h.get(t, p.Image)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// dashboard lists it
	require.Contains(t, bodyString(t, h.get(t, "/admin/dashboard")), "Pliers")
	require.Equal(t, int32(1), h.sync.n.Load())
}

func TestAdminCreateReplacesExisting(t *testing.T) {
	h := newHarness(t)
	h.loginAdmin(t)
	require.NoError(t, h.store.Products.Upsert(domain.Product{SKU: "P1", Name: "Old", Location: "X", Quantity: 9, Image: "/uploads/old.jpg"}))

	resp := h.postMultipart(t, "/admin/products/create", map[string]string{"sku": "P1", "name": "New", "quantity": "abc"}, "", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	p, _ := h.store.Products.Get("P1")
	require.Equal(t, domain.Product{SKU: "P1", Name: "New"}, p)
}

func TestAdminCreateProductRequiresSKU(t *testing.T) {
	h := newHarness(t)
	h.loginAdmin(t)

	resp := h.postMultipart(t, "/admin/products/create", map[string]string{"sku": " ", "name": "x"}, "", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Location"), "err=")
	n, _ := h.store.Products.Count()
	require.Zero(t, n)
}

func TestAdminEditProductKeepsImage(t *testing.T) {
	h := newHarness(t)
	h.loginAdmin(t)
	require.NoError(t, h.store.Products.Upsert(domain.Product{SKU: "E1", Name: "Old", Quantity: 1, Image: "https://img/e1"}))

	resp := h.get(t, "/admin/products/edit/E1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, bodyString(t, resp), `value="Old"`)

	resp = h.postMultipart(t, "/admin/products/edit/E1", map[string]string{"name": "Eyelet", "location": "C1", "quantity": "12"}, "", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	p, _ := h.store.Products.Get("E1")
	require.Equal(t, domain.Product{SKU: "E1", Name: "Eyelet", Location: "C1", Quantity: 12, Image: "https://img/e1"}, p)

	resp = h.postMultipart(t, "/admin/products/edit/E1", map[string]string{"name": "Eyelet", "quantity": "12"}, "e1.png", pngBytes(t))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	p, _ = h.store.Products.Get("E1")
	require.True(t, strings.HasPrefix(p.Image, "/uploads/"), p.Image)

	// unknown SKUs go back to the dashboard without creating anything
	resp = h.get(t, "/admin/products/edit/ghost")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	resp = h.postMultipart(t, "/admin/products/edit/ghost", map[string]string{"name": "x"}, "", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	_, err := h.store.Products.Get("ghost")
	require.Error(t, err)
}

func TestAdminDeleteProductIsLogged(t *testing.T) {
	h := newHarness(t)
	h.loginAdmin(t)
	require.NoError(t, h.store.Products.Upsert(domain.Product{SKU: "Z 1", Quantity: 3}))

	resp := h.get(t, "/admin/products/delete/"+url.PathEscape("Z 1"))
	require.Equal(t, http.StatusFound, resp.StatusCode)

	_, err := h.store.Products.Get("Z 1")
	require.Error(t, err)
	logs, _ := h.store.Logs.BySKU("Z 1")
	require.Len(t, logs, 1)
	require.Equal(t, "admin", logs[0].User)
	require.Equal(t, domain.ActionDelete, logs[0].Action)
}

func TestAdminUserManagement(t *testing.T) {
	h := newHarness(t)
	h.loginAdmin(t)

	resp := h.postForm(t, "/admin/users/create", url.Values{"username": {"kho1"}, "password": {"pw1"}, "role": {"user"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/admin/dashboard", resp.Header.Get("Location"))

	resp = h.postForm(t, "/admin/users/create", url.Values{"username": {"kho1"}, "password": {"pw2"}, "role": {"user"}})
	require.Contains(t, resp.Header.Get("Location"), "err=")

	resp = h.get(t, "/admin/users/edit/kho1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// blank password keeps the old one
	resp = h.postForm(t, "/admin/users/edit/kho1", url.Values{"password": {""}, "role": {"admin"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	u, err := h.auth.Check("kho1", "pw1")
	require.NoError(t, err)
	require.True(t, u.IsAdmin())

	resp = h.postForm(t, "/admin/users/edit/kho1", url.Values{"password": {"pw9"}, "role": {"user"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	_, err = h.auth.Check("kho1", "pw9")
	require.NoError(t, err)

	resp = h.get(t, "/admin/users/delete/kho1")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	_, err = h.store.Users.ByUsername("kho1")
	require.Error(t, err)

	resp = h.get(t, "/admin/users/delete/admin")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	_, err = h.store.Users.ByUsername("admin")
	require.NoError(t, err)
	// still logged in
	require.Equal(t, http.StatusOK, h.get(t, "/admin/dashboard").StatusCode)
}

func TestAdminHistoryPage(t *testing.T) {
	h := newHarness(t)
	h.loginAdmin(t)
	require.NoError(t, h.store.Logs.Append(domain.LogEntry{User: "kho7", Action: domain.ActionInbound, SKU: "H1", Quantity: 2, Balance: 2}))

	resp := h.get(t, "/admin/history")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := bodyString(t, resp)
	require.Contains(t, body, "kho7")
	require.Contains(t, body, "H1")
}

func TestAdminDownload(t *testing.T) {
	h := newHarness(t)
	h.loginAdmin(t)
	resp := h.get(t, "/admin/download")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, bodyString(t, resp), "not configured")

	h2 := newHarness(t, func(o *handlers.Options) {
		o.ExportURL = "https://docs.google.com/spreadsheets/d/abc/export?format=xlsx"
	})
	h2.loginAdmin(t)
	resp = h2.get(t, "/admin/download")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "https://docs.google.com/spreadsheets/d/abc/export?format=xlsx", resp.Header.Get("Location"))
}

func TestAdminFormWithoutCSRFRejected(t *testing.T) {
	h := newHarness(t)
	h.loginAdmin(t)

	resp := h.do(t, formRequest("/admin/users/create", url.Values{"username": {"sneaky"}, "password": {"pw"}, "role": {"admin"}}))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	_, err := h.store.Users.ByUsername("sneaky")
	require.Error(t, err)
}
