package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/model"
	"github.com/ariefcatur/go-shop-api/internal/store"
)

func seedProduct(t *testing.T, s *Store, id, name string, stock int) {
	t.Helper()
	require.NoError(t, s.Products().Create(context.Background(), &model.Product{ID: id, Name: name, Price: 1, Stock: stock}))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "p1", "Lamp", 3)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context, tx store.Repos) error {
		_, err := tx.Products().AdjustStock(ctx, "p1", -2)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := s.Products().Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "p1", "Lamp", 3)

	assert.Panics(t, func() {
		_ = s.WithTx(ctx, func(ctx context.Context, tx store.Repos) error {
			_, _ = tx.Products().AdjustStock(ctx, "p1", -3)
			panic("unexpected")
		})
	})

	p, err := s.Products().Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	// the lock must have been released
	require.NoError(t, s.WithTx(ctx, func(context.Context, store.Repos) error { return nil }))
}

func TestWithTxCommits(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "p1", "Lamp", 3)

	err := s.WithTx(ctx, func(ctx context.Context, tx store.Repos) error {
		_, err := tx.Products().AdjustStock(ctx, "p1", -1)
		return err
	})
	require.NoError(t, err)

	p, _ := s.Products().Get(ctx, "p1")
	assert.Equal(t, 2, p.Stock)
}

func TestAdjustStockNeverNegative(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "p1", "Lamp", 1)

	_, err := s.Products().AdjustStock(ctx, "p1", -2)
	assert.True(t, apperr.Is(err, apperr.OutOfStock))

	_, err = s.Products().AdjustStock(ctx, "missing", 1)
	assert.True(t, apperr.Is(err, apperr.ProductNotFound))
}

func TestProductNameUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "p1", "Lamp", 1)
	seedProduct(t, s, "p2", "Desk", 1)

	err := s.Products().Create(ctx, &model.Product{ID: "p3", Name: "Lamp"})
	assert.True(t, apperr.Is(err, apperr.Conflict))

	name := "Lamp"
	_, err = s.Products().Update(ctx, "p2", model.ProductPatch{Name: &name})
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestLockByIDsSkipsMissingAndDuplicates(t *testing.T) {
	s := New()
	seedProduct(t, s, "b", "B", 1)
	seedProduct(t, s, "a", "A", 1)

	got, err := s.Products().LockByIDs(context.Background(), []string{"b", "a", "b", "zzz"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestOrderListFilterAndPagination(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, c := range []struct {
		id, customer string
		status       model.Status
	}{
		{"o1", "c1", model.StatusPending},
		{"o2", "c1", model.StatusPaid},
		{"o3", "c2", model.StatusPending},
		{"o4", "c1", model.StatusPending},
	} {
		at := base.Add(time.Duration(i) * 24 * time.Hour)
		require.NoError(t, s.Orders().Create(ctx, &model.Order{
			ID: c.id, CustomerID: c.customer, ProductIDs: []string{"p"}, Status: c.status, CreatedAt: at, UpdatedAt: at,
		}))
	}

	got, total, err := s.Orders().List(ctx, model.OrderFilter{CustomerID: "c1"}, model.PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"o1", "o2", "o4"}, ids(got))

	got, total, err = s.Orders().List(ctx, model.OrderFilter{Status: model.StatusPending}, model.PageRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"o4"}, ids(got))

	from := base.Add(24 * time.Hour)
	to := base.Add(48 * time.Hour)
	got, _, err = s.Orders().List(ctx, model.OrderFilter{CreatedGTE: &from, CreatedLTE: &to}, model.PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"o2", "o3"}, ids(got), "bounds are inclusive")

	got, _, err = s.Orders().List(ctx, model.OrderFilter{CreatedGTE: &to}, model.PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"o3", "o4"}, ids(got), "only the supplied bound applies")

	got, _, err = s.Orders().List(ctx, model.OrderFilter{}, model.PageRequest{Page: 5, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOrderReturnedCopiesDoNotAlias(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Orders().Create(ctx, &model.Order{ID: "o1", ProductIDs: []string{"a"}, Status: model.StatusPending}))

	o, err := s.Orders().Get(ctx, "o1")
	require.NoError(t, err)
	o.ProductIDs[0] = "mutated"

	again, _ := s.Orders().Get(ctx, "o1")
	assert.Equal(t, []string{"a"}, again.ProductIDs)
}

func TestUserEmailUniqueCaseInsensitive(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Users().Create(ctx, &model.User{ID: "u1", Email: "ann@example.com", Role: model.RoleCustomer}))

	err := s.Users().Create(ctx, &model.User{ID: "u2", Email: "ANN@example.com"})
	assert.True(t, apperr.Is(err, apperr.Conflict))

	ok, err := s.Users().HasRole(ctx, model.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, ok)
}

func ids(orders []model.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}
