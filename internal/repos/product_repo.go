package repos

import (
	"database/sql"
	"errors"

	"stockroom/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

// Get returns the product with the given id, or nil when no such row exists.
// Absence is a valid result, not an error.
func (r *ProductRepo) Get(id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, `
  SELECT id, name, price, COALESCE(description,'') AS description
  FROM products
  WHERE id = ?
`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) List() ([]domain.Product, error) {
	var out []domain.Product
	err := r.db.Select(&out, `
  SELECT id, name, price, COALESCE(description,'') AS description
  FROM products
  ORDER BY id
`)
	return out, err
}

// Create inserts the product as a single statement; the store assigns the id,
// which is written back into p.
func (r *ProductRepo) Create(p *domain.Product) error {
	res, err := r.db.Exec(`
  INSERT INTO products(name, price, description) VALUES(?, ?, ?)
`, p.Name, p.Price, p.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

// Update replaces the full row addressed by p.ID. When no row is touched the
// row changed or vanished underneath the caller and ErrConflict is returned.
func (r *ProductRepo) Update(p *domain.Product) error {
	res, err := r.db.Exec(`
  UPDATE products
  SET name = ?, price = ?, description = ?, updated_at = CURRENT_TIMESTAMP
  WHERE id = ?
`, p.Name, p.Price, p.Description, p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// Delete removes the row. Deleting an id that is already gone is a no-op.
func (r *ProductRepo) Delete(id int64) error {
	_, err := r.db.Exec(`DELETE FROM products WHERE id = ?`, id)
	return err
}
