package handlers

import (
	"errors"
	"strconv"

	"stockroom/internal/domain"
	applog "stockroom/internal/log"
	"stockroom/internal/permissions"
	"stockroom/internal/repos"
	"stockroom/internal/seeds"
	"stockroom/internal/services"
	"stockroom/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	Products *repos.ProductRepo
	Auth     *services.AuthService
}

// GET /products (public)
func (h *ProductHandler) Index(c *fiber.Ctx) error {
	list, err := h.Products.List()
	if err != nil {
		applog.Error(c, "products.list.fail", err, nil)
		return err
	}
	canManage := false
	if u, ok := c.Locals("user").(*domain.User); ok && u != nil {
		canManage = u.HasRole(seeds.AdminRole) &&
			h.Auth.HasPermission(u, permissions.For(seeds.ProductsModule, "Edit"))
	}
	return render(c, "products_index", fiber.Map{"Products": list, "CanManage": canManage})
}

// GET /products/details/:id
func (h *ProductHandler) Details(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "This product does not exist")
	}
	p, err := h.Products.Get(id)
	if err != nil {
		applog.Error(c, "products.get.fail", err, map[string]any{"id": id})
		return err
	}
	if p == nil {
		return notFound(c, "This product does not exist")
	}
	return render(c, "product_details", fiber.Map{"P": p})
}

// GET /products/create
func (h *ProductHandler) CreateForm(c *fiber.Ctx) error {
	return render(c, "product_form", fiber.Map{"Action": "/products/create"})
}

// POST /products/create
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	name, okName := validate.ProductName(c.FormValue("name"))
	price, okPrice := validate.Price(c.FormValue("price"))
	if !okName || !okPrice {
		applog.Info(c, "products.create.invalid", nil)
		// Submitted values are deliberately not echoed back.
		return render(c, "product_form", fiber.Map{
			"Action": "/products/create",
			"Err":    "Name and a valid price are required.",
		})
	}
	p := &domain.Product{Name: name, Price: price, Description: validate.Description(c.FormValue("description"))}
	if err := h.Products.Create(p); err != nil {
		applog.Error(c, "products.create.fail", err, nil)
		return err
	}
	applog.Audit(c, "products.create", map[string]any{"id": p.ID})
	return c.Redirect("/products")
}

// GET /products/edit/:id
func (h *ProductHandler) EditForm(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "This product does not exist")
	}
	p, err := h.Products.Get(id)
	if err != nil {
		applog.Error(c, "products.get.fail", err, map[string]any{"id": id})
		return err
	}
	if p == nil {
		return notFound(c, "This product does not exist")
	}
	return render(c, "product_form", fiber.Map{
		"Action": "/products/edit/" + strconv.FormatInt(id, 10),
		"P":      p,
	})
}

// POST /products/edit/:id
//
// On success the form is re-rendered with the saved values; there is no
// redirect to the list, unlike create and delete.
func (h *ProductHandler) Edit(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "This product does not exist")
	}
	bodyID, okBody := validate.ID(c.FormValue("id"))
	if !okBody || bodyID != id {
		applog.Security(c, "products.edit.id_mismatch", map[string]any{"path": id, "body": c.FormValue("id")})
		return notFound(c, "This product does not exist")
	}

	action := "/products/edit/" + strconv.FormatInt(id, 10)
	name, okName := validate.ProductName(c.FormValue("name"))
	price, okPrice := validate.Price(c.FormValue("price"))
	desc := validate.Description(c.FormValue("description"))
	if !okName || !okPrice {
		applog.Info(c, "products.edit.invalid", map[string]any{"id": id})
		// Invalid submissions are echoed back into the form.
		return render(c, "product_form", fiber.Map{
			"Action": action,
			"P": &domain.Product{
				ID:          id,
				Name:        c.FormValue("name"),
				Description: desc,
			},
			"RawPrice": c.FormValue("price"),
			"Err":      "Name and a valid price are required.",
		})
	}

	p := &domain.Product{ID: id, Name: name, Price: price, Description: desc}
	if err := h.Products.Update(p); err != nil {
		if errors.Is(err, repos.ErrConflict) {
			cur, gerr := h.Products.Get(id)
			if gerr == nil && cur == nil {
				// The row vanished while the form was open.
				return notFound(c, "This product does not exist")
			}
			applog.Error(c, "products.edit.conflict", err, map[string]any{"id": id})
			return err
		}
		applog.Error(c, "products.edit.fail", err, map[string]any{"id": id})
		return err
	}
	applog.Audit(c, "products.edit", map[string]any{"id": id})
	return render(c, "product_form", fiber.Map{"Action": action, "P": p, "Saved": true})
}

// GET /products/delete/:id
func (h *ProductHandler) DeleteForm(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "This product does not exist")
	}
	p, err := h.Products.Get(id)
	if err != nil {
		applog.Error(c, "products.get.fail", err, map[string]any{"id": id})
		return err
	}
	if p == nil {
		return notFound(c, "This product does not exist")
	}
	return render(c, "product_delete", fiber.Map{"P": p})
}

// POST /products/delete/:id
//
// Deleting an already-deleted product still redirects to the list.
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "This product does not exist")
	}
	p, err := h.Products.Get(id)
	if err != nil {
		applog.Error(c, "products.get.fail", err, map[string]any{"id": id})
		return err
	}
	if p != nil {
		if err := h.Products.Delete(id); err != nil {
			applog.Error(c, "products.delete.fail", err, map[string]any{"id": id})
			return err
		}
		applog.Audit(c, "products.delete", map[string]any{"id": id})
	}
	return c.Redirect("/products")
}
