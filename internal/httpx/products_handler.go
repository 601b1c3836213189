package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-shop-api/internal/model"
	"github.com/ariefcatur/go-shop-api/internal/products"
)

type createProductReq struct {
	Name  string  `json:"name" validate:"required"`
	Price float64 `json:"price" validate:"gte=0"`
	Stock int     `json:"stock" validate:"gte=0"`
}

type updateProductReq struct {
	Name  *string  `json:"name" validate:"omitempty,min=1"`
	Price *float64 `json:"price" validate:"omitempty,gte=0"`
	Stock *int     `json:"stock" validate:"omitempty,gte=0"`
}

func (a *API) listProducts(w http.ResponseWriter, r *http.Request) {
	page, err := pageParams(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out, err := a.Products.List(r.Context(), page)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Products retrieved", out)
}

func (a *API) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := a.Products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Product retrieved", p)
}

func (a *API) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	p, err := a.Products.Create(r.Context(), products.CreateInput{Name: req.Name, Price: req.Price, Stock: req.Stock})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Product created", p)
}

func (a *API) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	p, err := a.Products.Update(r.Context(), chi.URLParam(r, "id"), model.ProductPatch{
		Name: req.Name, Price: req.Price, Stock: req.Stock,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Product updated", p)
}

func (a *API) deleteProduct(w http.ResponseWriter, r *http.Request) {
	p, err := a.Products.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Product deleted", p)
}
