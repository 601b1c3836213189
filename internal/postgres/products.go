package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/model"
)

type ProductRepo struct{ q querier }

const productCols = `id, name, price, stock, created_at, updated_at`

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()
	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO products (id, name, price, stock)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Price, p.Stock,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if pgCode(err) == codeUniqueViolation {
		return apperr.New(apperr.Conflict, "Product already exists")
	}
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepo) Get(ctx context.Context, id string) (model.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if err != nil {
		return model.Product{}, notFound(err, apperr.NotFound, "Product not found", "get product")
	}
	return p, nil
}

func (r *ProductRepo) List(ctx context.Context, page model.PageRequest) ([]model.Product, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	rows, err := r.q.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY name OFFSET $1 LIMIT $2`,
		page.Skip(), page.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	out, err := collectProducts(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan products: %w", err)
	}
	return out, total, nil
}

func (r *ProductRepo) Update(ctx context.Context, id string, patch model.ProductPatch) (model.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `
		UPDATE products SET
			name = COALESCE($2, name),
			price = COALESCE($3, price),
			stock = COALESCE($4, stock),
			updated_at = now()
		WHERE id=$1
		RETURNING `+productCols,
		id, patch.Name, patch.Price, patch.Stock,
	))
	if pgCode(err) == codeUniqueViolation {
		return model.Product{}, apperr.New(apperr.Conflict, "Product already exists")
	}
	if err != nil {
		return model.Product{}, notFound(err, apperr.NotFound, "Product not found", "update product")
	}
	return p, nil
}

func (r *ProductRepo) Delete(ctx context.Context, id string) (model.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `DELETE FROM products WHERE id=$1 RETURNING `+productCols, id))
	if err != nil {
		return model.Product{}, notFound(err, apperr.NotFound, "Product not found", "delete product")
	}
	return p, nil
}

// LockByIDs takes the rows in id order so concurrent reservations over
// overlapping product sets cannot deadlock.
func (r *ProductRepo) LockByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+productCols+` FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	out, err := collectProducts(rows)
	if err != nil {
		return nil, fmt.Errorf("scan locked products: %w", err)
	}
	return out, nil
}

func (r *ProductRepo) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	var stock int
	err := r.q.QueryRow(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id=$1
		RETURNING stock`, id, delta).Scan(&stock)
	if pgCode(err) == codeCheckViolation {
		return 0, apperr.Newf(apperr.OutOfStock, "Product %s is out of stock", id)
	}
	if err != nil {
		return 0, notFound(err, apperr.ProductNotFound, fmt.Sprintf("Product %s not found", id), "adjust stock")
	}
	return stock, nil
}
