// Package memory is an in-process store.DB. Transactions are serialized: a
// transaction holds the store lock from start to finish and works on a copy
// that replaces the live state only on commit.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/model"
	"github.com/ariefcatur/go-shop-api/internal/store"
)

type state struct {
	products map[string]model.Product
	orders   map[string]model.Order
	users    map[string]model.User
}

func newState() *state {
	return &state{
		products: map[string]model.Product{},
		orders:   map[string]model.Order{},
		users:    map[string]model.User{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

func copyOrder(o model.Order) model.Order {
	o.ProductIDs = append([]string(nil), o.ProductIDs...)
	return o
}

type Store struct {
	mu sync.Mutex
	st *state
}

var _ store.DB = (*Store)(nil)

func New() *Store { return &Store{st: newState()} }

// access runs fn against some state. The live store locks per call; a
// transaction already owns the lock.
type access func(fn func(st *state) error) error

func (s *Store) live(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) Products() store.ProductRepo { return productRepo{with: s.live} }
func (s *Store) Orders() store.OrderRepo     { return orderRepo{with: s.live} }
func (s *Store) Users() store.UserRepo       { return userRepo{with: s.live} }

type txRepos struct{ st *state }

func (t txRepos) with(fn func(st *state) error) error { return fn(t.st) }

func (t txRepos) Products() store.ProductRepo { return productRepo{with: t.with} }
func (t txRepos) Orders() store.OrderRepo     { return orderRepo{with: t.with} }
func (t txRepos) Users() store.UserRepo       { return userRepo{with: t.with} }

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, txRepos{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

func window[T any](items []T, page model.PageRequest) []T {
	skip := page.Skip()
	if skip >= len(items) {
		return []T{}
	}
	end := len(items)
	if page.Limit > 0 && skip+page.Limit < end {
		end = skip + page.Limit
	}
	return items[skip:end]
}

// ---- products ----

type productRepo struct{ with access }

func nameTaken(st *state, name, exceptID string) bool {
	for _, p := range st.products {
		if p.ID != exceptID && p.Name == name {
			return true
		}
	}
	return false
}

func (r productRepo) Create(_ context.Context, p *model.Product) error {
	return r.with(func(st *state) error {
		if nameTaken(st, p.Name, "") {
			return apperr.New(apperr.Conflict, "Product already exists")
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r productRepo) Get(_ context.Context, id string) (model.Product, error) {
	var out model.Product
	err := r.with(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return apperr.New(apperr.NotFound, "Product not found")
		}
		out = p
		return nil
	})
	return out, err
}

func (r productRepo) List(_ context.Context, page model.PageRequest) ([]model.Product, int, error) {
	var out []model.Product
	var total int
	err := r.with(func(st *state) error {
		all := make([]model.Product, 0, len(st.products))
		for _, p := range st.products {
			all = append(all, p)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
		total = len(all)
		out = window(all, page)
		return nil
	})
	return out, total, err
}

func (r productRepo) Update(_ context.Context, id string, patch model.ProductPatch) (model.Product, error) {
	var out model.Product
	err := r.with(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return apperr.New(apperr.NotFound, "Product not found")
		}
		if patch.Name != nil {
			if nameTaken(st, *patch.Name, id) {
				return apperr.New(apperr.Conflict, "Product already exists")
			}
			p.Name = *patch.Name
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		if patch.Stock != nil {
			p.Stock = *patch.Stock
		}
		p.UpdatedAt = time.Now().UTC()
		st.products[id] = p
		out = p
		return nil
	})
	return out, err
}

func (r productRepo) Delete(_ context.Context, id string) (model.Product, error) {
	var out model.Product
	err := r.with(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return apperr.New(apperr.NotFound, "Product not found")
		}
		delete(st.products, id)
		out = p
		return nil
	})
	return out, err
}

func (r productRepo) LockByIDs(_ context.Context, ids []string) ([]model.Product, error) {
	var out []model.Product
	err := r.with(func(st *state) error {
		seen := map[string]bool{}
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			if p, ok := st.products[id]; ok {
				out = append(out, p)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r productRepo) AdjustStock(_ context.Context, id string, delta int) (int, error) {
	var stock int
	err := r.with(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return apperr.Newf(apperr.ProductNotFound, "Product %s not found", id)
		}
		if p.Stock+delta < 0 {
			return apperr.Newf(apperr.OutOfStock, "Product %s of %s is out of stock", p.Name, p.ID)
		}
		p.Stock += delta
		p.UpdatedAt = time.Now().UTC()
		st.products[id] = p
		stock = p.Stock
		return nil
	})
	return stock, err
}

// ---- orders ----

type orderRepo struct{ with access }

func (r orderRepo) Create(_ context.Context, o *model.Order) error {
	return r.with(func(st *state) error {
		if _, ok := st.orders[o.ID]; ok {
			return apperr.New(apperr.Conflict, "Order already exists")
		}
		st.orders[o.ID] = copyOrder(*o)
		return nil
	})
}

func (r orderRepo) Get(_ context.Context, id string) (model.Order, error) {
	var out model.Order
	err := r.with(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return apperr.New(apperr.NotFound, "Order not found")
		}
		out = copyOrder(o)
		return nil
	})
	return out, err
}

func matches(o model.Order, f model.OrderFilter) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.CustomerID != "" && o.CustomerID != f.CustomerID {
		return false
	}
	if f.CreatedGTE != nil && o.CreatedAt.Before(*f.CreatedGTE) {
		return false
	}
	if f.CreatedLTE != nil && o.CreatedAt.After(*f.CreatedLTE) {
		return false
	}
	return true
}

func (r orderRepo) List(_ context.Context, f model.OrderFilter, page model.PageRequest) ([]model.Order, int, error) {
	var out []model.Order
	var total int
	err := r.with(func(st *state) error {
		all := make([]model.Order, 0)
		for _, o := range st.orders {
			if matches(o, f) {
				all = append(all, copyOrder(o))
			}
		}
		sort.Slice(all, func(i, j int) bool {
			if all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].ID < all[j].ID
			}
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		})
		total = len(all)
		out = window(all, page)
		return nil
	})
	return out, total, err
}

func (r orderRepo) UpdateStatus(_ context.Context, id string, from, to model.Status, at time.Time) (model.Order, error) {
	var out model.Order
	err := r.with(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return apperr.New(apperr.NotFound, "Order not found")
		}
		if o.Status != from {
			return apperr.Newf(apperr.InvalidState, "Order is %s, not %s", o.Status, from)
		}
		o.Status = to
		o.UpdatedAt = at
		st.orders[id] = o
		out = copyOrder(o)
		return nil
	})
	return out, err
}

func (r orderRepo) Delete(_ context.Context, id string, status model.Status) error {
	return r.with(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return apperr.New(apperr.NotFound, "Order not found")
		}
		if o.Status != status {
			return apperr.Newf(apperr.InvalidState, "Order is %s, not %s", o.Status, status)
		}
		delete(st.orders, id)
		return nil
	})
}

// ---- users ----

type userRepo struct{ with access }

func emailTaken(st *state, email, exceptID string) bool {
	for _, u := range st.users {
		if u.ID != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r userRepo) Create(_ context.Context, u *model.User) error {
	return r.with(func(st *state) error {
		if emailTaken(st, u.Email, "") {
			return apperr.New(apperr.Conflict, "User already exists")
		}
		st.users[u.ID] = *u
		return nil
	})
}

func (r userRepo) Get(_ context.Context, id string) (model.User, error) {
	var out model.User
	err := r.with(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return apperr.New(apperr.NotFound, "User not found")
		}
		out = u
		return nil
	})
	return out, err
}

func (r userRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	var out model.User
	err := r.with(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				out = u
				return nil
			}
		}
		return apperr.New(apperr.NotFound, "User not found")
	})
	return out, err
}

func (r userRepo) List(_ context.Context, page model.PageRequest) ([]model.User, int, error) {
	var out []model.User
	var total int
	err := r.with(func(st *state) error {
		all := make([]model.User, 0, len(st.users))
		for _, u := range st.users {
			all = append(all, u)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
		total = len(all)
		out = window(all, page)
		return nil
	})
	return out, total, err
}

func (r userRepo) Update(_ context.Context, id string, patch model.UserPatch) (model.User, error) {
	var out model.User
	err := r.with(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return apperr.New(apperr.NotFound, "User not found")
		}
		if patch.Email != nil {
			if emailTaken(st, *patch.Email, id) {
				return apperr.New(apperr.Conflict, "User already exists")
			}
			u.Email = *patch.Email
		}
		if patch.Name != nil {
			u.Name = *patch.Name
		}
		u.UpdatedAt = time.Now().UTC()
		st.users[id] = u
		out = u
		return nil
	})
	return out, err
}

func (r userRepo) Delete(_ context.Context, id string) error {
	return r.with(func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return apperr.New(apperr.NotFound, "User not found")
		}
		delete(st.users, id)
		return nil
	})
}

func (r userRepo) HasRole(_ context.Context, role model.Role) (bool, error) {
	var found bool
	err := r.with(func(st *state) error {
		for _, u := range st.users {
			if u.Role == role {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}
