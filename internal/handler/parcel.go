package handler // parcel booking endpoints

import (
	"context"  // context carries deadlines and cancellation
	"net/http" // http defines status code constants
	"strings"  // strings trims and normalises text

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/parcel-shipping/internal/model"      // domain models
	"github.com/iliyamo/parcel-shipping/internal/repository" // store contracts
)

// ParcelHandler serves the parcel booking endpoints.
type ParcelHandler struct {
	Parcels repository.ParcelStore // parcel persistence
}

func NewParcelHandler(parcels repository.ParcelStore) *ParcelHandler {
	return &ParcelHandler{Parcels: parcels}
}

type createParcelReq struct {
	ParcelName          string  `json:"parcelName"`
	SenderEmail         string  `json:"senderEmail"`
	Cost                float64 `json:"cost"` // price quoted by the booking form
	model.ParcelDetails         // optional booking fields stored verbatim
}

// List handles GET /parcels?email= and returns newest first.
func (h *ParcelHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	f := repository.ParcelFilter{SenderEmail: strings.TrimSpace(c.QueryParam("email"))}
	items, err := h.Parcels.List(ctx, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// Create handles POST /parcels. The server owns createdAt, paymentStatus and trackingId.
func (h *ParcelHandler) Create(c echo.Context) error {
	var req createParcelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.SenderEmail = strings.TrimSpace(req.SenderEmail)
	if req.SenderEmail == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "senderEmail is required"})
	}
	if req.Cost < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cost must not be negative"})
	}
	if req.ParcelType != "" && req.ParcelType != "document" && req.ParcelType != "non-document" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "parcelType must be document or non-document"})
	}

	p := &model.Parcel{
		ParcelName:    strings.TrimSpace(req.ParcelName),
		SenderEmail:   req.SenderEmail,
		Cost:          req.Cost,
		ParcelDetails: req.ParcelDetails,
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()
	if err := h.Parcels.Create(ctx, p); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"acknowledged": true, "insertedId": p.ID})
}

// Get handles GET /parcels/:id.
func (h *ParcelHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	p, err := h.Parcels.GetByID(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /parcels/:id. Deleting a missing parcel is not an error.
func (h *ParcelHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	n, err := h.Parcels.Delete(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"acknowledged": true, "deletedCount": n})
}
