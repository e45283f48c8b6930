package checkout

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aranya-labs/backend-vastra/internal/common"
	"github.com/aranya-labs/backend-vastra/internal/order"
)

// Handler exposes the checkout and COD verification endpoints.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

type addressPayload struct {
	Line1   string `json:"line1" validate:"required"`
	Line2   string `json:"line2"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	PIN     string `json:"pinCode" validate:"required,len=6,numeric"`
	Phone   string `json:"phone" validate:"required"`
	Country string `json:"country"`
}

type checkoutRequest struct {
	PaymentMethod   string         `json:"paymentMethod" validate:"required,oneof=cod prepaid"`
	ShippingAddress addressPayload `json:"shippingAddress" validate:"required"`
	CouponCode      string         `json:"couponCode"`
	ShippingPrice   *int64         `json:"shippingPrice" validate:"omitempty,gte=0"`
	GSTIN           string         `json:"gstin" validate:"omitempty,len=15,alphanum"`
}

type verifyCodRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

func authedUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "authentication required", nil)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "invalid user identity", nil)
		return uuid.Nil, false
	}
	return id, true
}

// Checkout handles POST /api/v1/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
			return
		}
	}
	shippingPrice := int64(-1)
	if req.ShippingPrice != nil {
		shippingPrice = *req.ShippingPrice
	}
	res, err := h.Service.Process(r.Context(), Input{
		UserID:        userID,
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
		Address: order.Address{
			Line1:   req.ShippingAddress.Line1,
			Line2:   req.ShippingAddress.Line2,
			City:    req.ShippingAddress.City,
			State:   req.ShippingAddress.State,
			PIN:     req.ShippingAddress.PIN,
			Phone:   req.ShippingAddress.Phone,
			Country: req.ShippingAddress.Country,
		},
		CouponCode:    req.CouponCode,
		ShippingPrice: shippingPrice,
		GSTIN:         req.GSTIN,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}

	body := map[string]any{
		"order":                   order.ToLegacy(res.Order),
		"requiresCodVerification": res.RequiresCodVerification,
	}
	if res.Payment != nil {
		body["payment"] = res.Payment
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": body})
}

// VerifyCod handles POST /api/v1/orders/{orderID}/verify-cod.
func (h *Handler) VerifyCod(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	if _, ok := authedUser(w, r); !ok {
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid order id", nil)
		return
	}
	var req verifyCodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
			return
		}
	}
	if err := h.Service.VerifyCod(r.Context(), orderID, req.Code); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"verified": true}})
}
