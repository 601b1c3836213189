package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/model"
)

// IdempotencyStore binds an Idempotency-Key to the order it created.
type IdempotencyStore interface {
	Claim(ctx context.Context, customerID, key string) (orderID string, claimed, inFlight bool, err error)
	Complete(ctx context.Context, customerID, key, orderID string) error
	Abandon(ctx context.Context, customerID, key string) error
}

const idemSettleTimeout = 3 * time.Second

type createOrderReq struct {
	ProductIDs []string `json:"productIds" validate:"required,min=1,dive,required"`
	// CustomerID lets an admin place an order on behalf of a customer.
	CustomerID string `json:"customerId"`
}

type updateOrderStatusReq struct {
	Status model.Status `json:"status" validate:"required"`
}

func (a *API) createOrder(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req createOrderReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	customerID := who.ID
	if who.Role == model.RoleAdmin && req.CustomerID != "" {
		if err := a.checkCustomer(r.Context(), req.CustomerID); err != nil {
			a.fail(w, r, err)
			return
		}
		customerID = req.CustomerID
	}

	key := r.Header.Get("Idempotency-Key")
	if key == "" || a.Idempotency == nil {
		a.placeOrder(w, r, customerID, req.ProductIDs)
		return
	}

	ctx := r.Context()
	prior, claimed, inFlight, err := a.Idempotency.Claim(ctx, customerID, key)
	switch {
	case err != nil:
		// without the key store the request still goes through once
		a.logger().Warn("idempotency claim failed", zap.Error(err))
		a.placeOrder(w, r, customerID, req.ProductIDs)
		return
	case inFlight:
		a.fail(w, r, apperr.New(apperr.Conflict, "A request with this Idempotency-Key is still in progress"))
		return
	case !claimed:
		o, err := a.Orders.FindByID(ctx, prior)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		ok(w, http.StatusOK, "Order already created", o)
		return
	}

	o, err := a.Orders.CreateOrder(ctx, customerID, req.ProductIDs)

	// the key must be settled even when the request context is already gone
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), idemSettleTimeout)
	defer cancel()
	if err != nil {
		if aerr := a.Idempotency.Abandon(sctx, customerID, key); aerr != nil {
			a.logger().Warn("idempotency abandon failed", zap.Error(aerr))
		}
		a.fail(w, r, err)
		return
	}
	if err := a.Idempotency.Complete(sctx, customerID, key, o.ID); err != nil {
		a.logger().Warn("idempotency complete failed", zap.String("order_id", o.ID), zap.Error(err))
	}
	ok(w, http.StatusCreated, "Order created", o)
}

// checkCustomer rejects on-behalf orders for ids that are not customers.
func (a *API) checkCustomer(ctx context.Context, id string) error {
	u, err := a.Users.Get(ctx, id)
	if apperr.Is(err, apperr.NotFound) {
		return apperr.WithDetails(apperr.Validation, "Validation failed", []string{"customerId does not exist"})
	}
	if err != nil {
		return err
	}
	if u.Role != model.RoleCustomer {
		return apperr.WithDetails(apperr.Validation, "Validation failed", []string{"customerId is not a customer"})
	}
	return nil
}

func (a *API) placeOrder(w http.ResponseWriter, r *http.Request, customerID string, productIDs []string) {
	o, err := a.Orders.CreateOrder(r.Context(), customerID, productIDs)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Order created", o)
}

func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	page, err := pageParams(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out, err := a.Orders.FindAll(r.Context(), f, page)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Orders retrieved", out)
}

func (a *API) myOrders(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	page, err := pageParams(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out, err := a.Orders.FindByCustomer(r.Context(), who.ID, page)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Orders retrieved", out)
}

func (a *API) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := a.Orders.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Order retrieved", o)
}

func (a *API) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateOrderStatusReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	o, err := a.Orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Order status updated", o)
}

func (a *API) deleteOrder(w http.ResponseWriter, r *http.Request) {
	o, err := a.Orders.DeleteOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Order deleted", o)
}
