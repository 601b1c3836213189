package orders

import (
	"context"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/model"
)

func (s *Service) FindAll(ctx context.Context, f model.OrderFilter, page model.PageRequest) (model.Page[model.Order], error) {
	page = page.Normalize()
	items, total, err := s.db.Orders().List(ctx, f, page)
	if err != nil {
		return model.Page[model.Order]{}, internal(err, "An error occurred while retrieving orders.")
	}
	if len(items) == 0 {
		return model.Page[model.Order]{}, apperr.New(apperr.NotFound, "No Orders Found")
	}
	return model.NewPage(items, total, page), nil
}

// FindByCustomer is FindAll scoped to one owner.
func (s *Service) FindByCustomer(ctx context.Context, customerID string, page model.PageRequest) (model.Page[model.Order], error) {
	return s.FindAll(ctx, model.OrderFilter{CustomerID: customerID}, page)
}

func (s *Service) FindByID(ctx context.Context, id string) (model.Order, error) {
	if s.cache != nil {
		if o, ok := s.cache.Get(ctx, id); ok {
			return o, nil
		}
	}
	o, err := s.db.Orders().Get(ctx, id)
	if err != nil {
		return model.Order{}, internal(err, "An error occurred while finding the order.")
	}
	if s.cache != nil {
		s.cache.Set(ctx, o)
	}
	return o, nil
}
