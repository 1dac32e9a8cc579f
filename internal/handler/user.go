package handler // user registration endpoints

import (
	"context"  // context carries deadlines and cancellation
	"net/http" // http defines status code constants
	"net/mail" // mail validates address syntax
	"strings"  // strings trims and normalises text

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/parcel-shipping/internal/model"      // domain models
	"github.com/iliyamo/parcel-shipping/internal/repository" // store contracts
)

type UserHandler struct {
	Users repository.UserStore // user accounts keyed by email
}

func NewUserHandler(users repository.UserStore) *UserHandler {
	return &UserHandler{Users: users}
}

type createUserReq struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// Create handles POST /users. It is idempotent by email and never lets the
// client choose a role.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid email is required"})
	}

	u := &model.User{
		Email:       email,
		DisplayName: strings.TrimSpace(req.DisplayName),
		PhotoURL:    strings.TrimSpace(req.PhotoURL),
		Role:        model.RoleUser,
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()
	created, err := h.Users.CreateIfAbsent(ctx, u)
	if err != nil {
		return writeError(c, err)
	}
	if !created {
		return c.JSON(http.StatusOK, echo.Map{"message": "user exists", "inserted": false})
	}
	return c.JSON(http.StatusCreated, echo.Map{"inserted": true, "insertedId": u.ID})
}

// Role handles GET /users/:email/role.
func (h *UserHandler) Role(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, c.Param("email"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"role": u.Role})
}
