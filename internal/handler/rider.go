package handler // rider application endpoints

import (
	"context"  // context carries deadlines and cancellation
	"errors"   // errors for sentinel matching
	"log/slog" // structured logging
	"net/http" // http defines status code constants
	"net/mail" // mail validates address syntax
	"strings"  // strings trims and normalises text

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/parcel-shipping/internal/model"      // domain models
	"github.com/iliyamo/parcel-shipping/internal/repository" // store contracts
)

// RiderHandler serves rider applications and their admin review.
type RiderHandler struct {
	Riders repository.RiderStore // rider applications
	Users  repository.UserStore  // role promotion on approval
}

func NewRiderHandler(riders repository.RiderStore, users repository.UserStore) *RiderHandler {
	return &RiderHandler{Riders: riders, Users: users}
}

type riderReq struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Age              int    `json:"age"`
	Region           string `json:"region"`
	District         string `json:"district"`
	NID              string `json:"nid"`
	Contact          string `json:"contact"`
	BikeBrand        string `json:"bikeBrand"`
	BikeRegistration string `json:"bikeRegistration"`
}

// Create handles POST /riders. Status is always pending on creation.
func (h *RiderHandler) Create(c echo.Context) error {
	var req riderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid email is required"})
	}
	if req.Age < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "age must not be negative"})
	}

	r := &model.Rider{
		Name:             strings.TrimSpace(req.Name),
		Email:            strings.TrimSpace(req.Email),
		Age:              req.Age,
		Region:           req.Region,
		District:         req.District,
		NID:              req.NID,
		Contact:          req.Contact,
		BikeBrand:        req.BikeBrand,
		BikeRegistration: req.BikeRegistration,
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()
	if err := h.Riders.Create(ctx, r); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"acknowledged": true, "insertedId": r.ID})
}

// List handles GET /riders?status=.
func (h *RiderHandler) List(c echo.Context) error {
	var f repository.RiderFilter
	if s := c.QueryParam("status"); s != "" {
		st, err := model.ParseRiderStatus(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		f.Status = st
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()
	items, err := h.Riders.List(ctx, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// UpdateStatus handles PATCH /riders/:id. Approving a rider promotes the
// matching user account to the rider role.
func (h *RiderHandler) UpdateStatus(c echo.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	status, err := model.ParseRiderStatus(body.Status)
	if err != nil || status == model.RiderPending {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be active or rejected"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()
	rider, err := h.Riders.UpdateStatus(ctx, c.Param("id"), status)
	if err != nil {
		return writeError(c, err)
	}
	if status == model.RiderActive {
		err := h.Users.SetRole(ctx, rider.Email, model.RoleRider)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return writeError(c, err)
		}
		if err != nil {
			slog.Warn("approved rider has no user account", "email", rider.Email)
		}
	}
	return c.JSON(http.StatusOK, rider)
}
