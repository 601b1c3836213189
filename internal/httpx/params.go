package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/model"
)

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Newf(apperr.Validation, "%s must be a non-negative integer", name)
	}
	return n, nil
}

func pageParams(r *http.Request) (model.PageRequest, error) {
	page, err := intParam(r, "page")
	if err != nil {
		return model.PageRequest{}, err
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		return model.PageRequest{}, err
	}
	return model.PageRequest{Page: page, Limit: limit}, nil
}

// timeParam accepts RFC 3339 or a bare date. A bare end date covers the whole
// day.
func timeParam(r *http.Request, name string, endOfDay bool) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperr.Newf(apperr.Validation, "%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func orderFilter(r *http.Request) (model.OrderFilter, error) {
	q := r.URL.Query()
	f := model.OrderFilter{
		Status:     model.Status(q.Get("status")),
		CustomerID: q.Get("customerId"),
	}
	if f.Status != "" && !f.Status.Valid() {
		return model.OrderFilter{}, apperr.Newf(apperr.Validation, "unknown order status %q", f.Status)
	}
	var err error
	if f.CreatedGTE, err = timeParam(r, "dateRangeStart", false); err != nil {
		return model.OrderFilter{}, err
	}
	if f.CreatedLTE, err = timeParam(r, "dateRangeEnd", true); err != nil {
		return model.OrderFilter{}, err
	}
	return f, nil
}
