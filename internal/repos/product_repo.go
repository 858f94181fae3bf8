package repos

import (
	"stockkeeper/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `sku, COALESCE(name,'') AS name, COALESCE(location,'') AS location,
  COALESCE(quantity,0) AS quantity, COALESCE(image,'') AS image`

func (r *ProductRepo) List() ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.Select(&out, `SELECT `+productCols+` FROM products ORDER BY sku`)
	return out, err
}

// Get returns sql.ErrNoRows when the SKU is unknown.
func (r *ProductRepo) Get(sku string) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, `SELECT `+productCols+` FROM products WHERE sku = ?`, sku)
	return p, err
}

func (r *ProductRepo) Count() (int, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM products`)
	return n, err
}

// Upsert inserts the product or replaces every field of an existing SKU.
func (r *ProductRepo) Upsert(p domain.Product) error {
	_, err := r.db.NamedExec(`
		INSERT OR REPLACE INTO products(sku, name, location, quantity, image)
		VALUES(:sku, :name, :location, :quantity, :image)
	`, p)
	return err
}

// Update rewrites an existing SKU; unknown SKUs are left alone. It reports
// whether a row was changed.
func (r *ProductRepo) Update(p domain.Product) (bool, error) {
	res, err := r.db.NamedExec(`
		UPDATE products SET name = :name, location = :location, quantity = :quantity, image = :image
		WHERE sku = :sku
	`, p)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *ProductRepo) Delete(sku string) error {
	_, err := r.db.Exec(`DELETE FROM products WHERE sku = ?`, sku)
	return err
}

// BulkUpsert writes rows one statement at a time, like Upsert.
func (r *ProductRepo) BulkUpsert(ps []domain.Product) (int, error) {
	n := 0
	for _, p := range ps {
		if err := r.Upsert(p); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
