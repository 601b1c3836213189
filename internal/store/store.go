// Package store declares the persistence contract shared by the Postgres and
// in-memory backends. Repository methods report missing rows as
// apperr.NotFound and unique violations as apperr.Conflict.
package store

import (
	"context"
	"time"

	"github.com/ariefcatur/go-shop-api/internal/model"
)

type ProductRepo interface {
	Create(ctx context.Context, p *model.Product) error
	Get(ctx context.Context, id string) (model.Product, error)
	List(ctx context.Context, page model.PageRequest) ([]model.Product, int, error)
	Update(ctx context.Context, id string, patch model.ProductPatch) (model.Product, error)
	Delete(ctx context.Context, id string) (model.Product, error)

	// LockByIDs returns the products that exist among ids, ordered by id.
	// Inside a transaction the rows stay locked until commit or rollback.
	LockByIDs(ctx context.Context, ids []string) ([]model.Product, error)
	// AdjustStock adds delta to the product's stock and returns the new value.
	AdjustStock(ctx context.Context, id string, delta int) (int, error)
}

type OrderRepo interface {
	Create(ctx context.Context, o *model.Order) error
	Get(ctx context.Context, id string) (model.Order, error)
	List(ctx context.Context, f model.OrderFilter, page model.PageRequest) ([]model.Order, int, error)
	// UpdateStatus moves the order from one status to another. It fails with
	// apperr.InvalidState when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to model.Status, at time.Time) (model.Order, error)
	// Delete removes the order only while it still has the given status.
	Delete(ctx context.Context, id string, status model.Status) error
}

type UserRepo interface {
	Create(ctx context.Context, u *model.User) error
	Get(ctx context.Context, id string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	List(ctx context.Context, page model.PageRequest) ([]model.User, int, error)
	Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error)
	Delete(ctx context.Context, id string) error
	HasRole(ctx context.Context, role model.Role) (bool, error)
}

type Repos interface {
	Products() ProductRepo
	Orders() OrderRepo
	Users() UserRepo
}

// DB exposes auto-commit repositories plus a scoped transaction. WithTx
// commits when fn returns nil and rolls back on error or panic.
type DB interface {
	Repos
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Repos) error) error
}
