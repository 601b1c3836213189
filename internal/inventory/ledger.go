// Package inventory owns stock movement. The ledger never opens its own
// transaction: callers pass the repository of the transaction they are in, so
// a reservation lands or disappears together with the order that caused it.
package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/model"
	"github.com/ariefcatur/go-shop-api/internal/store"
)

type Ledger struct {
	log *zap.Logger
}

func NewLedger(log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{log: log}
}

// Quantities counts how many units each product id asks for; every
// occurrence is one unit.
func Quantities(ids []string) map[string]int {
	q := make(map[string]int, len(ids))
	for _, id := range ids {
		q[id]++
	}
	return q
}

func distinct(q map[string]int) []string {
	out := make([]string, 0, len(q))
	for id := range q {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Reserve locks every requested product, checks availability and decrements
// stock by the number of occurrences of each id. It returns the products with
// their stock after the decrement.
func (l *Ledger) Reserve(ctx context.Context, products store.ProductRepo, ids []string) ([]model.Product, error) {
	qty := Quantities(ids)
	want := distinct(qty)

	locked, err := products.LockByIDs(ctx, want)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	if len(locked) != len(want) {
		found := make(map[string]bool, len(locked))
		for _, p := range locked {
			found[p.ID] = true
		}
		var missing []string
		for _, id := range want {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		return nil, apperr.WithDetails(apperr.ProductNotFound, "One or more products not found.", missing)
	}

	for _, p := range locked {
		if p.Stock < qty[p.ID] {
			return nil, apperr.Newf(apperr.OutOfStock, "Product %s of %s is out of stock.", p.Name, p.ID)
		}
	}

	out := make([]model.Product, 0, len(locked))
	for _, p := range locked {
		stock, err := products.AdjustStock(ctx, p.ID, -qty[p.ID])
		if err != nil {
			return nil, fmt.Errorf("decrement stock of %s: %w", p.ID, err)
		}
		p.Stock = stock
		out = append(out, p)
	}
	return out, nil
}

// Release gives back one unit per occurrence. Products that no longer exist
// are skipped; there is nothing left to restore them to.
func (l *Ledger) Release(ctx context.Context, products store.ProductRepo, ids []string) error {
	qty := Quantities(ids)
	var gone []string
	for _, id := range distinct(qty) {
		if _, err := products.AdjustStock(ctx, id, qty[id]); err != nil {
			if apperr.Is(err, apperr.ProductNotFound) {
				gone = append(gone, id)
				continue
			}
			return fmt.Errorf("increment stock of %s: %w", id, err)
		}
	}
	if len(gone) > 0 {
		l.log.Warn("release skipped missing products", zap.String("products", strings.Join(gone, ",")))
	}
	return nil
}
