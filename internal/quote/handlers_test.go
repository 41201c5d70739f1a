package quote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-gateway/internal/backend"
	"github.com/noah-isme/storefront-gateway/internal/coupon"
	"github.com/noah-isme/storefront-gateway/internal/pricing"
	"github.com/noah-isme/storefront-gateway/internal/quote"
	"github.com/noah-isme/storefront-gateway/internal/wallet"
)

var handlerNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

type stubCarts struct {
	snapshot backend.CartSnapshot
	err      error
}

func (s stubCarts) Fetch(_ context.Context, _ string) (backend.CartSnapshot, error) {
	return s.snapshot, s.err
}

type stubCoupons struct {
	snapshot backend.CartSnapshot
	err      error
	applied  string
	removed  bool
}

func (s *stubCoupons) Apply(_ context.Context, _, code string) (backend.CartSnapshot, error) {
	s.applied = code
	return s.snapshot, s.err
}

func (s *stubCoupons) Remove(_ context.Context, _ string) (backend.CartSnapshot, error) {
	s.removed = true
	return s.snapshot, s.err
}

type stubEligible struct {
	coupons []coupon.Coupon
}

func (s stubEligible) Eligible(_ context.Context, _ int64) ([]coupon.Coupon, error) {
	return s.coupons, nil
}

type stubBalance struct {
	balance int64
}

func (s stubBalance) Balance(_ context.Context, _ string) (int64, error) {
	return s.balance, nil
}

func newRouter(h *quote.Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(v chi.Router) {
		h.Routes(v, nil)
	})
	return r
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Data
}

func TestQuoteEndpointComputesTotals(t *testing.T) {
	h := &quote.Handler{
		Svc:      &quote.Service{Now: func() time.Time { return handlerNow }},
		Validate: validator.New(),
		Currency: "IDR",
	}
	router := newRouter(h)

	payload := `{
		"items": [{"productId": "p1", "quantity": 2, "unitPrice": 500, "discountedUnitPrice": 400}],
		"deliveryFee": 200,
		"tax": 0
	}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/quote", strings.NewReader(payload)))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	require.EqualValues(t, 1000, data["subtotal"])
	require.EqualValues(t, 200, data["discount"])
	require.EqualValues(t, 800, data["total"])
	require.EqualValues(t, 1000, data["grandTotal"])
	require.Equal(t, "IDR", data["currency"])
}

func TestQuoteEndpointWithWallet(t *testing.T) {
	h := &quote.Handler{
		Svc:      &quote.Service{Now: func() time.Time { return handlerNow }},
		Validate: validator.New(),
		Currency: "IDR",
	}
	router := newRouter(h)

	payload := `{
		"items": [{"productId": "p1", "quantity": 1, "unitPrice": 1000, "discountedUnitPrice": 1000}],
		"deliveryFee": 0,
		"tax": 0,
		"wallet": {"balance": 300, "useWallet": true}
	}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/quote", strings.NewReader(payload)))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	require.EqualValues(t, 1000, data["grandTotal"])
	require.EqualValues(t, 300, data["walletApplied"])
	require.EqualValues(t, 700, data["amountDue"])
}

func TestQuoteEndpointRejectsInvalidItems(t *testing.T) {
	h := &quote.Handler{
		Svc:      &quote.Service{Now: func() time.Time { return handlerNow }},
		Validate: validator.New(),
	}
	router := newRouter(h)

	payload := `{
		"items": [{"productId": "p1", "quantity": 0, "unitPrice": 500}],
		"deliveryFee": 0,
		"tax": 0
	}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/quote", strings.NewReader(payload)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartSummaryEndpoint(t *testing.T) {
	carts := stubCarts{snapshot: backend.CartSnapshot{
		Items: []pricing.LineItem{
			{ProductID: "p1", Qty: 1, UnitPrice: 10_000, DiscountedUnitPrice: 9_000},
		},
		DeliveryFee: 500,
	}}
	h := &quote.Handler{
		Svc: &quote.Service{Carts: carts, Now: func() time.Time { return handlerNow }},
	}
	router := newRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/carts/c-1/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	require.EqualValues(t, 10_000, data["subtotal"])
	require.EqualValues(t, 1_000, data["discount"])
	require.EqualValues(t, 9_500, data["grandTotal"])
}

func TestApplyCouponRejectionReturns422(t *testing.T) {
	expired := handlerNow.Add(-time.Hour)
	coupons := &stubCoupons{snapshot: backend.CartSnapshot{
		Items: []pricing.LineItem{
			{ProductID: "p1", Qty: 1, UnitPrice: 5_000, DiscountedUnitPrice: 5_000},
		},
		AppliedCoupon: &coupon.Coupon{Code: "OLD", Kind: coupon.KindFixed, Value: 500, ExpiresAt: &expired},
	}}
	h := &quote.Handler{
		Svc: &quote.Service{Coupons: coupons, Now: func() time.Time { return handlerNow }},
	}
	router := newRouter(h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/c-1/coupon", strings.NewReader(`{"code":"OLD"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	data := decodeData(t, rec)
	require.Equal(t, false, data["couponApplied"])
	require.NotEmpty(t, data["couponRejection"])
	require.EqualValues(t, 0, data["discount"], "ineligible coupon contributes zero savings")
	require.Equal(t, "OLD", coupons.applied)
}

func TestApplyCouponSuccess(t *testing.T) {
	coupons := &stubCoupons{snapshot: backend.CartSnapshot{
		Items: []pricing.LineItem{
			{ProductID: "p1", Qty: 1, UnitPrice: 5_000, DiscountedUnitPrice: 5_000},
		},
		AppliedCoupon: &coupon.Coupon{Code: "SAVE500", Kind: coupon.KindFixed, Value: 500},
	}}
	h := &quote.Handler{
		Svc: &quote.Service{Coupons: coupons, Now: func() time.Time { return handlerNow }},
	}
	router := newRouter(h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/c-1/coupon", strings.NewReader(`{"code":"SAVE500"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	require.Equal(t, true, data["couponApplied"])
	require.EqualValues(t, 500, data["discount"])
}

func TestRemoveCouponEndpoint(t *testing.T) {
	coupons := &stubCoupons{snapshot: backend.CartSnapshot{
		Items: []pricing.LineItem{
			{ProductID: "p1", Qty: 1, UnitPrice: 5_000, DiscountedUnitPrice: 5_000},
		},
	}}
	h := &quote.Handler{
		Svc: &quote.Service{Coupons: coupons, Now: func() time.Time { return handlerNow }},
	}
	router := newRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/carts/c-1/coupon", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, coupons.removed)
	data := decodeData(t, rec)
	require.Equal(t, false, data["couponApplied"])
}

func TestRecommendedCouponsOrdered(t *testing.T) {
	carts := stubCarts{snapshot: backend.CartSnapshot{
		Items: []pricing.LineItem{
			{ProductID: "p1", Qty: 1, UnitPrice: 10_000, DiscountedUnitPrice: 10_000},
		},
	}}
	recommender := &coupon.Service{
		Source: stubEligible{coupons: []coupon.Coupon{
			{Code: "SMALL", Kind: coupon.KindFixed, Value: 100},
			{Code: "BIG", Kind: coupon.KindFixed, Value: 900},
		}},
		Now: func() time.Time { return handlerNow },
	}
	h := &quote.Handler{
		Svc: &quote.Service{Carts: carts, Recommender: recommender, Now: func() time.Time { return handlerNow }},
	}
	router := newRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/carts/c-1/coupons/recommended", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	list, ok := data["coupons"].([]any)
	require.True(t, ok)
	require.Len(t, list, 2)
	first := list[0].(map[string]any)["coupon"].(map[string]any)
	require.Equal(t, "BIG", first["code"])
}

func TestPayableEndpointDeductsWallet(t *testing.T) {
	carts := stubCarts{snapshot: backend.CartSnapshot{
		Items: []pricing.LineItem{
			{ProductID: "p1", Qty: 1, UnitPrice: 1_000, DiscountedUnitPrice: 1_000},
		},
	}}
	h := &quote.Handler{
		Svc: &quote.Service{
			Carts:  carts,
			Wallet: &wallet.Service{Source: stubBalance{balance: 300}},
			Now:    func() time.Time { return handlerNow },
		},
	}
	router := newRouter(h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/c-1/payable", strings.NewReader(`{"userId":"u1","useWallet":true}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	require.EqualValues(t, 300, data["walletApplied"])
	require.EqualValues(t, 700, data["amountDue"])
}

func TestFlashSaleCountdownEndpoint(t *testing.T) {
	h := &quote.Handler{
		Svc: &quote.Service{},
		Now: func() time.Time { return handlerNow },
	}
	router := newRouter(h)

	end := handlerNow.Add(90 * time.Minute).UnixMilli()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/flash-sales/countdown?end="+formatInt(end), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	require.EqualValues(t, 1, data["hours"])
	require.EqualValues(t, 30, data["minutes"])
	require.Equal(t, false, data["expired"])
}

func TestFlashSaleCountdownExpired(t *testing.T) {
	h := &quote.Handler{
		Svc: &quote.Service{},
		Now: func() time.Time { return handlerNow },
	}
	router := newRouter(h)

	end := handlerNow.Add(-time.Minute).UnixMilli()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/flash-sales/countdown?end="+formatInt(end), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	require.Equal(t, true, data["expired"])
}

func TestWalletRefreshEndpoint(t *testing.T) {
	h := &quote.Handler{
		Svc:          &quote.Service{},
		WalletPoller: &wallet.Poller{Source: stubBalance{balance: 900}, Interval: time.Millisecond, Window: time.Second},
		WalletSource: stubBalance{balance: 900},
		Now:          func() time.Time { return handlerNow },
	}
	router := newRouter(h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallets/u1/refresh", strings.NewReader(`{"baseline":100}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	require.EqualValues(t, 900, data["balance"])
	require.Equal(t, true, data["changed"])
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
