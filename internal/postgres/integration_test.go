package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/inventory"
	"github.com/ariefcatur/go-shop-api/internal/model"
	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/ariefcatur/go-shop-api/internal/postgres"
	"github.com/ariefcatur/go-shop-api/internal/store"
)

// These tests need a live Postgres; set POSTGRES_TEST_DSN to run them.
func testDB(t *testing.T) *postgres.DB {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))
	return &postgres.DB{Pool: pool}
}

func newProduct(t *testing.T, db *postgres.DB, stock int) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, db.Products().Create(context.Background(), &model.Product{ID: id, Name: "p-" + id, Price: 5, Stock: stock}))
	return id
}

func stockOf(t *testing.T, db *postgres.DB, id string) int {
	t.Helper()
	p, err := db.Products().Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func ordersWith(t *testing.T, db *postgres.DB, productID string) int {
	t.Helper()
	var n int
	require.NoError(t, db.Pool.QueryRow(context.Background(),
		`SELECT count(*) FROM orders WHERE $1 = ANY(product_ids)`, productID).Scan(&n))
	return n
}

func TestConcurrentCreateOrderLastUnit(t *testing.T) {
	db := testDB(t)
	svc := orders.NewService(db, inventory.NewLedger(nil))
	a := newProduct(t, db, 1)

	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		outOfStk int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder(context.Background(), uuid.NewString(), []string{a})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperr.Is(err, apperr.OutOfStock):
				outOfStk++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, outOfStk)
	assert.Equal(t, 0, stockOf(t, db, a))
	assert.Equal(t, 1, ordersWith(t, db, a))
}

func TestCreateOrderDuplicateNeedsOwnUnit(t *testing.T) {
	db := testDB(t)
	svc := orders.NewService(db, inventory.NewLedger(nil))
	a := newProduct(t, db, 1)

	_, err := svc.CreateOrder(context.Background(), uuid.NewString(), []string{a, a})
	assert.True(t, apperr.Is(err, apperr.OutOfStock), err)
	assert.Equal(t, 1, stockOf(t, db, a))
	assert.Equal(t, 0, ordersWith(t, db, a))
}

func TestCreateOrderUnknownProductWritesNothing(t *testing.T) {
	db := testDB(t)
	svc := orders.NewService(db, inventory.NewLedger(nil))
	a := newProduct(t, db, 3)

	_, err := svc.CreateOrder(context.Background(), uuid.NewString(), []string{a, uuid.NewString()})
	assert.True(t, apperr.Is(err, apperr.ProductNotFound), err)
	assert.Equal(t, 3, stockOf(t, db, a))
	assert.Equal(t, 0, ordersWith(t, db, a))
}

func TestDeleteOrderRestoresStockOnce(t *testing.T) {
	db := testDB(t)
	svc := orders.NewService(db, inventory.NewLedger(nil))
	ctx := context.Background()
	a := newProduct(t, db, 3)

	o, err := svc.CreateOrder(ctx, uuid.NewString(), []string{a, a})
	require.NoError(t, err)
	require.Equal(t, 1, stockOf(t, db, a))

	_, err = svc.DeleteOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stockOf(t, db, a))

	_, err = svc.DeleteOrder(ctx, o.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound), err)
	assert.Equal(t, 3, stockOf(t, db, a))
	assert.Equal(t, 0, ordersWith(t, db, a))
}

func TestConditionalWritesRejectStaleStatus(t *testing.T) {
	db := testDB(t)
	svc := orders.NewService(db, inventory.NewLedger(nil))
	ctx := context.Background()
	a := newProduct(t, db, 2)

	o, err := svc.CreateOrder(ctx, uuid.NewString(), []string{a})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, o.ID, model.StatusPaid)
	require.NoError(t, err)

	_, err = svc.DeleteOrder(ctx, o.ID)
	assert.True(t, apperr.Is(err, apperr.InvalidState), err)
	assert.Equal(t, 1, stockOf(t, db, a))

	_, err = db.Orders().UpdateStatus(ctx, o.ID, model.StatusPending, model.StatusCancelled, o.UpdatedAt)
	assert.True(t, apperr.Is(err, apperr.InvalidState), err)
	_, err = db.Orders().UpdateStatus(ctx, uuid.NewString(), model.StatusPending, model.StatusPaid, o.UpdatedAt)
	assert.True(t, apperr.Is(err, apperr.NotFound), err)

	got, err := db.Orders().Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, got.Status)
}

func TestAdjustStockBelowZero(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := newProduct(t, db, 1)

	_, err := db.Products().AdjustStock(ctx, a, -2)
	assert.True(t, apperr.Is(err, apperr.OutOfStock), err)
	assert.Equal(t, 1, stockOf(t, db, a))

	n, err := db.Products().AdjustStock(ctx, a, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWithTxRollsBack(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := newProduct(t, db, 4)
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(ctx context.Context, tx store.Repos) error {
		if _, err := tx.Products().AdjustStock(ctx, a, -3); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, stockOf(t, db, a))

	assert.Panics(t, func() {
		_ = db.WithTx(ctx, func(ctx context.Context, tx store.Repos) error {
			_, _ = tx.Products().AdjustStock(ctx, a, -1)
			panic("mid-transaction")
		})
	})
	assert.Equal(t, 4, stockOf(t, db, a))
}
