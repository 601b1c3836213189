package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/model"
)

type OrderRepo struct{ q querier }

const orderCols = `id, customer_id, product_ids, status, created_at, updated_at`

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	var status string
	err := row.Scan(&o.ID, &o.CustomerID, &o.ProductIDs, &status, &o.CreatedAt, &o.UpdatedAt)
	o.Status = model.Status(status)
	return o, err
}

func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO orders (id, customer_id, product_ids, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.CustomerID, o.ProductIDs, string(o.Status), o.CreatedAt, o.UpdatedAt)
	if pgCode(err) == codeUniqueViolation {
		return apperr.New(apperr.Conflict, "Order already exists")
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id string) (model.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return model.Order{}, notFound(err, apperr.NotFound, "Order not found", "get order")
	}
	return o, nil
}

// whereClause renders only the filter fields that are set.
func whereClause(f model.OrderFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.CustomerID != "" {
		add("customer_id = $%d", f.CustomerID)
	}
	if f.CreatedGTE != nil {
		add("created_at >= $%d", *f.CreatedGTE)
	}
	if f.CreatedLTE != nil {
		add("created_at <= $%d", *f.CreatedLTE)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *OrderRepo) List(ctx context.Context, f model.OrderFilter, page model.PageRequest) ([]model.Order, int, error) {
	where, args := whereClause(f)

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	n := len(args)
	args = append(args, page.Skip(), page.Limit)
	rows, err := r.q.Query(ctx,
		fmt.Sprintf(`SELECT `+orderCols+` FROM orders%s ORDER BY created_at, id OFFSET $%d LIMIT $%d`, where, n+1, n+2),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// stateMiss explains why a conditional write matched no row.
func (r *OrderRepo) stateMiss(ctx context.Context, id string, want model.Status) error {
	cur, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return apperr.Newf(apperr.InvalidState, "Order is %s, not %s", cur.Status, want)
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, from, to model.Status, at time.Time) (model.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `
		UPDATE orders SET status=$3, updated_at=$4
		WHERE id=$1 AND status=$2
		RETURNING `+orderCols, id, string(from), string(to), at))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Order{}, r.stateMiss(ctx, id, from)
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("update order status: %w", err)
	}
	return o, nil
}

func (r *OrderRepo) Delete(ctx context.Context, id string, status model.Status) error {
	ct, err := r.q.Exec(ctx, `DELETE FROM orders WHERE id=$1 AND status=$2`, id, string(status))
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return r.stateMiss(ctx, id, status)
	}
	return nil
}
