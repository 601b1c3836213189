// Package orders runs the order lifecycle: creation and deletion move stock
// and the order record inside one transaction; status updates never touch
// stock.
package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/inventory"
	"github.com/ariefcatur/go-shop-api/internal/model"
	"github.com/ariefcatur/go-shop-api/internal/store"
)

// Cache holds read-through order snapshots. Misses and cache failures are
// treated alike: the store is the source of truth. FindByID fills the cache
// after reading the store, so Set must not overwrite a snapshot invalidated
// in between.
type Cache interface {
	Get(ctx context.Context, id string) (model.Order, bool)
	Set(ctx context.Context, o model.Order)
	Invalidate(ctx context.Context, id string)
}

type Service struct {
	db     store.DB
	ledger *inventory.Ledger
	alerts *inventory.Alerts
	cache  Cache
	log    *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string
}

type Option func(*Service)

func WithAlerts(a *inventory.Alerts) Option { return func(s *Service) { s.alerts = a } }
func WithCache(c Cache) Option { return func(s *Service) { s.cache = c } }
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithIDs(newID func() string) Option { return func(s *Service) { s.newID = newID } }
func WithTracer(t trace.Tracer) Option { return func(s *Service) { s.tracer = t } }

func NewService(db store.DB, ledger *inventory.Ledger, opts ...Option) *Service {
	s := &Service{
		db:     db,
		ledger: ledger,
		log:    zap.NewNop(),
		tracer: otel.Tracer("github.com/ariefcatur/go-shop-api/internal/orders"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// internal keeps typed failures as they are and hides everything else
// behind a generic message.
func internal(err error, msg string) error {
	if _, ok := err.(*apperr.Error); ok || apperr.KindOf(err) != apperr.Internal {
		return err
	}
	return apperr.Wrap(apperr.Internal, msg, err)
}

func (s *Service) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "orders."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.KindOf(err)))
	}
	span.End()
}

// CreateOrder reserves one unit per line item and records a Pending order,
// both in one transaction. Nothing is written when any step fails.
func (s *Service) CreateOrder(ctx context.Context, customerID string, productIDs []string) (order model.Order, err error) {
	ctx, span := s.span(ctx, "create",
		attribute.String("customer_id", customerID),
		attribute.Int("line_items", len(productIDs)))
	defer func() { endSpan(span, err) }()

	if customerID == "" {
		return model.Order{}, apperr.New(apperr.Validation, "customer is required")
	}
	if len(productIDs) == 0 {
		return model.Order{}, apperr.New(apperr.Validation, "an order needs at least one product")
	}

	var reserved []model.Product
	err = s.db.WithTx(ctx, func(ctx context.Context, tx store.Repos) error {
		var err error
		reserved, err = s.ledger.Reserve(ctx, tx.Products(), productIDs)
		if err != nil {
			return err
		}

		now := s.now()
		order = model.Order{
			ID:         s.newID(),
			CustomerID: customerID,
			ProductIDs: append([]string(nil), productIDs...),
			Status:     model.StatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return tx.Orders().Create(ctx, &order)
	})
	if err != nil {
		return model.Order{}, internal(err, "An error occurred while creating the order.")
	}

	span.SetAttributes(attribute.String("order_id", order.ID))
	s.log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("customer_id", customerID),
		zap.Int("line_items", len(productIDs)))

	// after commit only; a rolled back reservation must not alert
	s.alerts.Check(ctx, reserved...)
	return order, nil
}

// UpdateStatus moves a Pending order to Paid. Cancelled is only reached by
// deleting a Pending order, and terminal orders accept no change.
func (s *Service) UpdateStatus(ctx context.Context, id string, status model.Status) (order model.Order, err error) {
	ctx, span := s.span(ctx, "update_status",
		attribute.String("order_id", id),
		attribute.String("status", string(status)))
	defer func() { endSpan(span, err) }()

	if !status.Valid() {
		return model.Order{}, apperr.Newf(apperr.Validation, "unknown order status %q", status)
	}
	if status == model.StatusCancelled {
		return model.Order{}, apperr.New(apperr.Validation, "Cancel an order by deleting it while it is pending")
	}

	cur, err := s.db.Orders().Get(ctx, id)
	if err != nil {
		return model.Order{}, internal(err, "An error occurred while updating the order.")
	}
	if !model.CanTransition(cur.Status, status) {
		return model.Order{}, apperr.Newf(apperr.InvalidState, "Order status cannot change from %s to %s", cur.Status, status)
	}

	order, err = s.db.Orders().UpdateStatus(ctx, id, cur.Status, status, s.now())
	if err != nil {
		return model.Order{}, internal(err, "An error occurred while updating the order.")
	}
	s.invalidate(ctx, id)
	s.log.Info("order status updated", zap.String("order_id", id), zap.String("status", string(status)))
	return order, nil
}

// DeleteOrder removes a Pending order and returns its units to stock in one
// transaction. The returned order is the snapshot taken before deletion.
func (s *Service) DeleteOrder(ctx context.Context, id string) (order model.Order, err error) {
	ctx, span := s.span(ctx, "delete", attribute.String("order_id", id))
	defer func() { endSpan(span, err) }()

	order, err = s.db.Orders().Get(ctx, id)
	if err != nil {
		return model.Order{}, internal(err, "An error occurred while deleting the order.")
	}
	if order.Status != model.StatusPending {
		return model.Order{}, apperr.New(apperr.InvalidState, "Only pending orders can be deleted")
	}

	err = s.db.WithTx(ctx, func(ctx context.Context, tx store.Repos) error {
		// conditional on Pending so a concurrent payment cannot be refunded to stock
		if err := tx.Orders().Delete(ctx, id, model.StatusPending); err != nil {
			return err
		}
		return s.ledger.Release(ctx, tx.Products(), order.ProductIDs)
	})
	if err != nil {
		return model.Order{}, internal(err, "An error occurred while deleting the order.")
	}

	s.invalidate(ctx, id)
	s.log.Info("order deleted", zap.String("order_id", id), zap.Int("released_units", len(order.ProductIDs)))
	return order, nil
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
}
