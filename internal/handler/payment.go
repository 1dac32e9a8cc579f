package handler // checkout and payment endpoints

import (
	"context"  // context carries deadlines and cancellation
	"net/http" // http defines status code constants
	"strings"  // strings trims and normalises text

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/parcel-shipping/internal/middleware" // request middleware
	"github.com/iliyamo/parcel-shipping/internal/payment"    // checkout and reconciliation
	"github.com/iliyamo/parcel-shipping/internal/repository" // store contracts
)

// PaymentHandler serves checkout, reconciliation and payment history.
type PaymentHandler struct {
	Parcels    repository.ParcelStore  // checked before a checkout is started
	Payments   repository.PaymentStore // payment history lookups
	Initiator  *payment.Initiator      // creates hosted checkout sessions
	Reconciler *payment.Reconciler     // confirms sessions exactly once
}

func NewPaymentHandler(parcels repository.ParcelStore, payments repository.PaymentStore, in *payment.Initiator, rec *payment.Reconciler) *PaymentHandler {
	return &PaymentHandler{Parcels: parcels, Payments: payments, Initiator: in, Reconciler: rec}
}

type checkoutReq struct {
	Cost        *float64 `json:"cost"` // nil when the field is absent
	ParcelName  string   `json:"parcelName"`
	ParcelID    string   `json:"parcelId"`
	SellerEmail string   `json:"sellerEmail"`
}

// CreateCheckoutSession handles POST /create-checkout-session and returns
// the hosted payment page URL.
func (h *PaymentHandler) CreateCheckoutSession(c echo.Context) error {
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Cost == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": payment.ErrInvalidAmount.Error()})
	}
	req.ParcelID = strings.TrimSpace(req.ParcelID)
	if req.ParcelID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "parcelId is required"})
	}

	sctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	parcel, err := h.Parcels.GetByID(sctx, req.ParcelID)
	cancel()
	if err != nil {
		return writeError(c, err)
	}
	if parcel.IsPaid() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "parcel already paid"})
	}
	name := strings.TrimSpace(req.ParcelName)
	if name == "" {
		name = parcel.ParcelName
	}
	if name == "" {
		name = "Parcel " + parcel.ID
	}
	email := strings.TrimSpace(req.SellerEmail)
	if email == "" {
		email = parcel.SenderEmail
	}

	url, err := h.Initiator.Start(c.Request().Context(), payment.CheckoutInput{
		Cost:          *req.Cost,
		ParcelName:    name,
		ParcelID:      parcel.ID,
		CustomerEmail: email,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

// PaymentSuccess handles PATCH /payment-success/:sessionId. Replays return
// the first tracking id with alreadyProcessed set.
func (h *PaymentHandler) PaymentSuccess(c echo.Context) error {
	receipt, err := h.Reconciler.Reconcile(c.Request().Context(), c.Param("sessionId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, receipt)
}

// ListPayments handles GET /payments?email=. The caller may only read
// their own history; an empty email means the caller's.
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	caller := middleware.CurrentEmail(c)
	if caller == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	email := strings.ToLower(strings.TrimSpace(c.QueryParam("email")))
	if email == "" {
		email = caller
	}
	if email != caller {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()
	items, err := h.Payments.ListByEmail(ctx, email)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}
