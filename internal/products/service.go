package products

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/inventory"
	"github.com/ariefcatur/go-shop-api/internal/model"
	"github.com/ariefcatur/go-shop-api/internal/store"
)

type Service struct {
	db     store.DB
	alerts *inventory.Alerts
	log    *zap.Logger
	now    func() time.Time
}

func NewService(db store.DB, alerts *inventory.Alerts, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, alerts: alerts, log: log, now: func() time.Time { return time.Now().UTC() }}
}

type CreateInput struct {
	Name  string
	Price float64
	Stock int
}

func checkAmounts(price *float64, stock *int) error {
	var details []string
	if price != nil && *price < 0 {
		details = append(details, "price must be greater than or equal to 0")
	}
	if stock != nil && *stock < 0 {
		details = append(details, "stock must be greater than or equal to 0")
	}
	if len(details) > 0 {
		return apperr.WithDetails(apperr.Validation, "Validation failed", details)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (model.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return model.Product{}, apperr.WithDetails(apperr.Validation, "Validation failed", []string{"name is required"})
	}
	if err := checkAmounts(&in.Price, &in.Stock); err != nil {
		return model.Product{}, err
	}

	now := s.now()
	p := model.Product{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Price:     in.Price,
		Stock:     in.Stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.Products().Create(ctx, &p); err != nil {
		return model.Product{}, err
	}
	s.log.Info("product created", zap.String("product_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Product, error) {
	return s.db.Products().Get(ctx, id)
}

func (s *Service) List(ctx context.Context, page model.PageRequest) (model.Page[model.Product], error) {
	page = page.Normalize()
	items, total, err := s.db.Products().List(ctx, page)
	if err != nil {
		return model.Page[model.Product]{}, err
	}
	return model.NewPage(items, total, page), nil
}

// Update applies a partial change. Setting stock at or below the alert
// threshold notifies the same way an order reservation does.
func (s *Service) Update(ctx context.Context, id string, patch model.ProductPatch) (model.Product, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return model.Product{}, apperr.WithDetails(apperr.Validation, "Validation failed", []string{"name must not be empty"})
		}
		patch.Name = &name
	}
	if err := checkAmounts(patch.Price, patch.Stock); err != nil {
		return model.Product{}, err
	}

	p, err := s.db.Products().Update(ctx, id, patch)
	if err != nil {
		return model.Product{}, err
	}
	if patch.Stock != nil {
		s.alerts.Check(ctx, p)
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) (model.Product, error) {
	p, err := s.db.Products().Delete(ctx, id)
	if err != nil {
		return model.Product{}, err
	}
	s.log.Info("product deleted", zap.String("product_id", id))
	return p, nil
}
