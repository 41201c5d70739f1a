package quote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/storefront-gateway/internal/backend"
	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/coupon"
	"github.com/noah-isme/storefront-gateway/internal/flashsale"
	"github.com/noah-isme/storefront-gateway/internal/pricing"
	"github.com/noah-isme/storefront-gateway/internal/wallet"
)

// Handler wires the quote service to HTTP.
type Handler struct {
	Svc          *Service
	WalletPoller *wallet.Poller
	WalletSource wallet.BalanceFetcher
	Validate     *validator.Validate
	Currency     string
	Now          func() time.Time
}

func (h *Handler) now() time.Time {
	if h != nil && h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type quoteItemPayload struct {
	ProductID           string `json:"productId" validate:"required"`
	Quantity            int    `json:"quantity" validate:"required,min=1"`
	UnitPrice           int64  `json:"unitPrice" validate:"min=0"`
	DiscountedUnitPrice int64  `json:"discountedUnitPrice" validate:"min=0"`
}

type quoteWalletPayload struct {
	Balance   int64 `json:"balance" validate:"min=0"`
	UseWallet bool  `json:"useWallet"`
}

type quotePayload struct {
	Items       []quoteItemPayload  `json:"items" validate:"required,min=1,dive"`
	DeliveryFee int64               `json:"deliveryFee" validate:"min=0"`
	Tax         int64               `json:"tax" validate:"min=0"`
	Coupon      *coupon.APICoupon   `json:"coupon"`
	Wallet      *quoteWalletPayload `json:"wallet"`
}

// Quote prices a client-supplied cart draft.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var payload quotePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}

	items := make([]pricing.LineItem, 0, len(payload.Items))
	for _, it := range payload.Items {
		item := pricing.LineItem{
			ProductID:           it.ProductID,
			Qty:                 it.Quantity,
			UnitPrice:           it.UnitPrice,
			DiscountedUnitPrice: it.DiscountedUnitPrice,
		}
		if item.DiscountedUnitPrice == 0 && item.UnitPrice > 0 {
			item.DiscountedUnitPrice = item.UnitPrice
		}
		items = append(items, item)
	}
	var applied *coupon.Coupon
	if payload.Coupon != nil {
		c := coupon.FromAPI(*payload.Coupon)
		applied = &c
	}

	summary, err := h.Svc.Quote(r.Context(), items, payload.DeliveryFee, payload.Tax, applied)
	if err != nil {
		h.writeError(w, err)
		return
	}
	data := summaryJSON(summary, h.Currency)
	if payload.Wallet != nil {
		payable := pricing.FinalPayable(summary.GrandTotal, payload.Wallet.Balance, payload.Wallet.UseWallet)
		data["walletApplied"] = payable.WalletApplied
		data["amountDue"] = payable.Amount
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": data})
}

// CartSummary prices the cart held by the cart API.
func (h *Handler) CartSummary(w http.ResponseWriter, r *http.Request) {
	cartID := strings.TrimSpace(chi.URLParam(r, "id"))
	if cartID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cart id is required", nil)
		return
	}
	summary, err := h.Svc.CartSummary(r.Context(), cartID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSummary(w, summary)
}

// ApplyCoupon attaches a coupon code to the cart and reprices it. A coupon the
// engine rejects returns 422 with the rejection reason; a backend refusal maps
// to the backend status.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	cartID := strings.TrimSpace(chi.URLParam(r, "id"))
	if cartID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cart id is required", nil)
		return
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload.Code = strings.TrimSpace(payload.Code)
	if payload.Code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	summary, err := h.Svc.ApplyCoupon(r.Context(), cartID, payload.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !summary.CouponApplied && summary.CouponRejection != "" {
		common.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"data": summaryJSON(summary, h.Currency),
		})
		return
	}
	h.writeSummary(w, summary)
}

// RemoveCoupon detaches the coupon from the cart and reprices it.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	cartID := strings.TrimSpace(chi.URLParam(r, "id"))
	if cartID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cart id is required", nil)
		return
	}
	summary, err := h.Svc.RemoveCoupon(r.Context(), cartID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSummary(w, summary)
}

// RecommendedCoupons returns the top-N eligible coupons ordered by savings.
// `top` expands or shrinks the list without changing its order.
func (h *Handler) RecommendedCoupons(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Svc.Recommender == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "recommendation service not configured", nil)
		return
	}
	cartID := strings.TrimSpace(chi.URLParam(r, "id"))
	if cartID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cart id is required", nil)
		return
	}
	topN := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("top")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "top must be a non-negative integer", nil)
			return
		}
		topN = n
	}

	summary, err := h.Svc.CartSummary(r.Context(), cartID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	ranked, err := h.Svc.Recommender.Recommend(r.Context(), summary.Subtotal, topN)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(ranked))
	for _, rc := range ranked {
		out = append(out, map[string]any{
			"coupon":  coupon.ToAPI(rc.Coupon),
			"savings": rc.Savings,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"subtotal": summary.Subtotal,
			"coupons":  out,
		},
	})
}

// Payable prices the cart and deducts wallet balance when requested.
func (h *Handler) Payable(w http.ResponseWriter, r *http.Request) {
	cartID := strings.TrimSpace(chi.URLParam(r, "id"))
	if cartID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cart id is required", nil)
		return
	}
	var payload struct {
		UserID    string `json:"userId"`
		UseWallet bool   `json:"useWallet"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload.UserID = strings.TrimSpace(payload.UserID)
	if payload.UseWallet && payload.UserID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "userId is required when useWallet is set", nil)
		return
	}
	summary, payable, err := h.Svc.Payable(r.Context(), cartID, payload.UserID, payload.UseWallet)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"summary":       summaryJSON(summary, h.Currency),
			"walletApplied": payable.WalletApplied,
			"amountDue":     payable.Amount,
		},
	})
}

// FlashSaleCountdown reports the remaining time until a sale ends. `end` is a
// unix timestamp in milliseconds.
func (h *Handler) FlashSaleCountdown(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("end"))
	if raw == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "end is required", nil)
		return
	}
	endMillis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "end must be a unix millisecond timestamp", nil)
		return
	}
	countdown := flashsale.Remaining(time.UnixMilli(endMillis), h.now())
	common.JSON(w, http.StatusOK, map[string]any{"data": countdown})
}

// WalletRefresh polls the wallet API until the balance moves past the given
// baseline, bounded by the poller window. The storefront calls this right
// after redirecting back from a top-up.
func (h *Handler) WalletRefresh(w http.ResponseWriter, r *http.Request) {
	if h.WalletPoller == nil || h.WalletSource == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "wallet polling not configured", nil)
		return
	}
	userID := strings.TrimSpace(chi.URLParam(r, "userId"))
	if userID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "user id is required", nil)
		return
	}
	var payload struct {
		Baseline *int64 `json:"baseline"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}
	baseline := int64(0)
	if payload.Baseline != nil {
		baseline = *payload.Baseline
	} else {
		current, err := h.WalletSource.Balance(r.Context(), userID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		baseline = current
	}

	balance, err := h.WalletPoller.Run(r.Context(), userID, baseline)
	if err != nil && !errors.Is(err, context.Canceled) {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"balance": balance,
			"changed": balance != baseline,
		},
	})
}

// Routes mounts the quote endpoints. applyGuards wraps the coupon mutation
// endpoints, letting the caller attach idempotency handling.
func (h *Handler) Routes(r chi.Router, applyGuards func(http.Handler) http.Handler) {
	if applyGuards == nil {
		applyGuards = func(next http.Handler) http.Handler { return next }
	}
	r.Post("/quote", h.Quote)
	r.Get("/carts/{id}/summary", h.CartSummary)
	r.Method(http.MethodPost, "/carts/{id}/coupon", applyGuards(http.HandlerFunc(h.ApplyCoupon)))
	r.Method(http.MethodDelete, "/carts/{id}/coupon", applyGuards(http.HandlerFunc(h.RemoveCoupon)))
	r.Get("/carts/{id}/coupons/recommended", h.RecommendedCoupons)
	r.Post("/carts/{id}/payable", h.Payable)
	r.Get("/flash-sales/countdown", h.FlashSaleCountdown)
	r.Post("/wallets/{userId}/refresh", h.WalletRefresh)
}

func (h *Handler) writeSummary(w http.ResponseWriter, summary pricing.Summary) {
	common.JSON(w, http.StatusOK, map[string]any{"data": summaryJSON(summary, h.Currency)})
}

func summaryJSON(summary pricing.Summary, currency string) map[string]any {
	out := map[string]any{
		"subtotal":      summary.Subtotal,
		"discount":      summary.Discount,
		"deliveryFee":   summary.DeliveryFee,
		"tax":           summary.Tax,
		"total":         summary.Total,
		"grandTotal":    summary.GrandTotal,
		"couponApplied": summary.CouponApplied,
		"currency":      currency,
	}
	if summary.CouponRejection != "" {
		out["couponRejection"] = summary.CouponRejection
	}
	return out
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = "BAD_REQUEST"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, pricing.ErrInvalidLineItem), errors.Is(err, pricing.ErrInvalidFee):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		code := apiErr.Code
		if code == "" {
			code = "UPSTREAM_ERROR"
		}
		common.JSONError(w, status, code, apiErr.Message, nil)
	default:
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error(), nil)
	}
}
