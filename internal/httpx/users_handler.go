package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/auth"
	"github.com/ariefcatur/go-shop-api/internal/model"
)

type updateUserReq struct {
	Name  *string `json:"name" validate:"omitempty,min=1"`
	Email *string `json:"email" validate:"omitempty,email"`
}

func (req updateUserReq) patch() model.UserPatch {
	return model.UserPatch{Name: req.Name, Email: req.Email}
}

func identity(r *http.Request) (auth.Identity, error) {
	id, found := auth.FromContext(r.Context())
	if !found {
		return auth.Identity{}, apperr.New(apperr.Unauthenticated, "No token provided")
	}
	return id, nil
}

func (a *API) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	u, err := a.Users.Register(r.Context(), req.input())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "User registered", u)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pageParams(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out, err := a.Users.List(r.Context(), page)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Users retrieved", out)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := a.Users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "User retrieved", u)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	a.doUpdateUser(w, r, chi.URLParam(r, "id"))
}

func (a *API) doUpdateUser(w http.ResponseWriter, r *http.Request, id string) {
	var req updateUserReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	u, err := a.Users.Update(r.Context(), id, req.patch())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "User updated", u)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := a.Users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "User deleted", nil)
}

func (a *API) getMe(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	u, err := a.Users.Get(r.Context(), id.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "User retrieved", u)
}

func (a *API) updateMe(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.doUpdateUser(w, r, id.ID)
}
