package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-shop-api/internal/users"
)

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	pair, err := a.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Login successful", pair)
}

func (a *API) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	pair, err := a.Users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Token refreshed", pair)
}

type registerReq struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (req registerReq) input() users.RegisterInput {
	return users.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password}
}
