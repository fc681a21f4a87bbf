package handlers_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/jmoiron/sqlx"

	"stockroom/internal/domain"
	"stockroom/internal/http/handlers"
	"stockroom/internal/repos"
	"stockroom/internal/seeds"
	"stockroom/internal/services"
)

// Minimal app mirroring the wiring in cmd/stockroom.
func newApp(t *testing.T) (*fiber.App, *sqlx.DB) {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := seeds.Run(db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	userRepo := repos.NewUserRepo(db)
	roleRepo := repos.NewRoleRepo(db)
	authSvc := &services.AuthService{Users: userRepo, Roles: roleRepo}

	engine := html.New("../../web/templates", ".html")
	app := fiber.New(fiber.Config{Views: engine})
	app.Use(requestid.New())
	app.Use(func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := authSvc.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	})
	app.Use(csrf.New(csrf.Config{KeyLookup: "form:csrf", CookieName: "csrf_", CookieSameSite: "Lax"}))
	app.Use(func(c *fiber.Ctx) error {
		if tok := c.Locals("csrf"); tok != nil {
			c.Locals("CSRFToken", tok.(string))
		}
		return c.Next()
	})

	deps := handlers.NewDeps(db, authSvc)
	requireAdmin := handlers.RequireRole(authSvc, seeds.AdminRole)
	app.Get("/products", deps.ProductHandler.Index)
	app.Get("/products/details/:id", requireAdmin, deps.ProductHandler.Details)
	app.Get("/products/create", requireAdmin, deps.ProductHandler.CreateForm)
	app.Post("/products/create", requireAdmin, deps.ProductHandler.Create)
	app.Get("/products/edit/:id", requireAdmin, deps.ProductHandler.EditForm)
	app.Post("/products/edit/:id", requireAdmin, deps.ProductHandler.Edit)
	app.Get("/products/delete/:id", requireAdmin, deps.ProductHandler.DeleteForm)
	app.Post("/products/delete/:id", requireAdmin, deps.ProductHandler.Delete)
	app.Get("/login", deps.AuthHandler.LoginForm)
	app.Post("/login", deps.AuthHandler.Login)
	app.Post("/logout", deps.AuthHandler.Logout)

	return app, db
}

func extractCookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// adminSID binds a session directly to the seeded admin user.
func adminSID(t *testing.T, db *sqlx.DB) string {
	t.Helper()
	users := repos.NewUserRepo(db)
	u, err := users.ByEmail(seeds.AdminEmail)
	if err != nil || u == nil {
		t.Fatalf("seeded admin missing: %v", err)
	}
	if err := users.BindSession("sid-admin", u.ID); err != nil {
		t.Fatal(err)
	}
	return "sid-admin"
}

// csrfToken primes the double-submit cookie via a safe request.
func csrfToken(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", "/login", nil))
	if err != nil {
		t.Fatal(err)
	}
	tok := extractCookie(resp, "csrf_")
	if tok == "" {
		t.Fatal("csrf token missing")
	}
	return tok
}

func adminPost(t *testing.T, app *fiber.App, db *sqlx.DB, path string, form url.Values) *http.Response {
	t.Helper()
	sid := adminSID(t, db)
	tok := csrfToken(t, app)
	form.Set("csrf", tok)
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: tok})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func seedProduct(t *testing.T, db *sqlx.DB, name string, price float64) *domain.Product {
	t.Helper()
	p := &domain.Product{Name: name, Price: price, Description: "seeded"}
	if err := repos.NewProductRepo(db).Create(p); err != nil {
		t.Fatal(err)
	}
	return p
}

func productCount(t *testing.T, db *sqlx.DB) int {
	t.Helper()
	list, err := repos.NewProductRepo(db).List()
	if err != nil {
		t.Fatal(err)
	}
	return len(list)
}

func TestProductsListIsPublic(t *testing.T) {
	app, db := newApp(t)
	seedProduct(t, db, "Game Boy Color", 129.99)
	seedProduct(t, db, "NES Console", 199)
	seedProduct(t, db, "Philco 1939", 349.50)

	resp, err := app.Test(httptest.NewRequest("GET", "/products", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("public list expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	s := string(body)
	for _, name := range []string{"Game Boy Color", "NES Console", "Philco 1939"} {
		if !strings.Contains(s, name) {
			t.Fatalf("list missing %q; body=%s", name, s)
		}
	}
}

func TestCreateInvalidDoesNotTouchStore(t *testing.T) {
	app, db := newApp(t)

	resp := adminPost(t, app, db, "/products/create", url.Values{
		"name":  {""},
		"price": {"59"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("invalid create should re-render form, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "required") {
		t.Fatalf("expected validation message, body=%s", body)
	}
	if n := productCount(t, db); n != 0 {
		t.Fatalf("store must be untouched, has %d rows", n)
	}
}

func TestCreateValidRedirectsToList(t *testing.T) {
	app, db := newApp(t)

	resp := adminPost(t, app, db, "/products/create", url.Values{
		"name":        {"Test Product 4"},
		"price":       {"59"},
		"description": {"This is a test product"},
	})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("valid create expected redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/products" {
		t.Fatalf("expected redirect to /products, got %q", loc)
	}
	if n := productCount(t, db); n != 1 {
		t.Fatalf("want 1 row after create, got %d", n)
	}
}

func TestEditIDMismatchIsNotFound(t *testing.T) {
	app, db := newApp(t)
	p := seedProduct(t, db, "test product", 60)

	resp := adminPost(t, app, db, "/products/edit/999", url.Values{
		"id":    {"2"},
		"name":  {"changed"},
		"price": {"60"},
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("id mismatch expected 404, got %d", resp.StatusCode)
	}
	got, err := repos.NewProductRepo(db).Get(p.ID)
	if err != nil || got == nil {
		t.Fatal(err)
	}
	if got.Name != "test product" {
		t.Fatalf("row must be unchanged, got %+v", got)
	}
}

// Edit renders the form with the saved values instead of redirecting.
func TestEditValidRerendersForm(t *testing.T) {
	app, db := newApp(t)
	p := seedProduct(t, db, "test product", 60)

	path := "/products/edit/" + itoa(p.ID)
	resp := adminPost(t, app, db, path, url.Values{
		"id":          {itoa(p.ID)},
		"name":        {"Test Two"},
		"price":       {"55"},
		"description": {"This is product 2"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("edit success must render, not redirect; got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Test Two") {
		t.Fatalf("form should carry updated values, body=%s", body)
	}

	got, err := repos.NewProductRepo(db).Get(p.ID)
	if err != nil || got == nil {
		t.Fatal(err)
	}
	if got.Name != "Test Two" || got.Price != 55 {
		t.Fatalf("update not persisted: %+v", got)
	}
}

func TestEditVanishedRowIsNotFound(t *testing.T) {
	app, db := newApp(t)
	p := seedProduct(t, db, "fleeting", 10)
	if err := repos.NewProductRepo(db).Delete(p.ID); err != nil {
		t.Fatal(err)
	}

	resp := adminPost(t, app, db, "/products/edit/"+itoa(p.ID), url.Values{
		"id":    {itoa(p.ID)},
		"name":  {"ghost"},
		"price": {"10"},
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("edit of vanished row expected 404, got %d", resp.StatusCode)
	}
}

func TestDeleteRedirectsAndIsIdempotent(t *testing.T) {
	app, db := newApp(t)
	p := seedProduct(t, db, "doomed", 5)

	resp := adminPost(t, app, db, "/products/delete/"+itoa(p.ID), url.Values{})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("delete expected redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/products" {
		t.Fatalf("expected redirect to /products, got %q", loc)
	}
	if n := productCount(t, db); n != 0 {
		t.Fatalf("row should be gone, have %d", n)
	}

	// Row already gone: still a redirect, no fault.
	resp2 := adminPost(t, app, db, "/products/delete/"+itoa(p.ID), url.Values{})
	if resp2.StatusCode != http.StatusFound {
		t.Fatalf("repeat delete expected redirect, got %d", resp2.StatusCode)
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
