package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type couponChecker interface {
	CouponActive(ctx context.Context, code string) (bool, error)
}

type couponStatus struct {
	Code   string `json:"code"`
	Active bool   `json:"active"`
}

// CouponStatus reports whether a coupon code would earn commission right now.
// Inactive and unknown codes both answer active=false.
func CouponStatus(svc couponChecker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" || len(code) > 64 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is invalid"))
			return
		}

		active, err := svc.CouponActive(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, couponStatus{Code: code, Active: active})
	}
}
