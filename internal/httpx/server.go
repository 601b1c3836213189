package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-api/internal/auth"
	"github.com/ariefcatur/go-shop-api/internal/model"
	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/ariefcatur/go-shop-api/internal/products"
	"github.com/ariefcatur/go-shop-api/internal/users"
)

func NewRouter(log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, AccessLog(log), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// API wires the services behind the HTTP surface. Idempotency is optional.
type API struct {
	Guard       *auth.Guard
	Orders      *orders.Service
	Products    *products.Service
	Users       *users.Service
	Idempotency IdempotencyStore
	Log         *zap.Logger
}

func (a *API) Register(r chi.Router) {
	admin := a.require(model.RoleAdmin)
	customer := a.require(model.RoleCustomer)
	anyRole := a.require(model.RoleAdmin, model.RoleCustomer)
	authed := a.require()

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", a.login)
		r.Post("/refresh-token", a.refreshToken)
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", a.registerUser)
		r.With(admin).Get("/", a.listUsers)
		r.With(authed).Get("/me", a.getMe)
		r.With(authed).Put("/me", a.updateMe)
		r.With(admin).Get("/{id}", a.getUser)
		r.With(admin).Put("/{id}", a.updateUser)
		r.With(admin).Delete("/{id}", a.deleteUser)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", a.listProducts)
		r.Get("/{id}", a.getProduct)
		r.With(admin).Post("/", a.createProduct)
		r.With(admin).Put("/{id}", a.updateProduct)
		r.With(admin).Delete("/{id}", a.deleteProduct)
	})

	r.Route("/orders", func(r chi.Router) {
		r.With(anyRole).Post("/", a.createOrder)
		r.With(admin).Get("/", a.listOrders)
		r.With(customer).Get("/me", a.myOrders)
		r.With(customer).Get("/my-orders", a.myOrders)
		r.With(admin).Get("/{id}", a.getOrder)
		r.With(admin).Put("/{id}", a.updateOrderStatus)
		r.With(admin).Delete("/{id}", a.deleteOrder)
	})
}

// require authenticates the request and, when roles are given, checks
// membership before the handler runs.
func (a *API) require(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Guard.Check(r.Header.Get("Authorization"), roles...)
			if err != nil {
				a.fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func AccessLog(log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
