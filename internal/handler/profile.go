package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/note-share/internal/repository"
	"github.com/iliyamo/note-share/internal/utils"
)

// ProfileHandler bundles dependencies for the authenticated profile
// endpoints. These routes sit behind the strict JWT middleware, so a
// requester identity is always present.
type ProfileHandler struct {
	Cfg struct {
		BcryptCost int
	}
	Users *repository.UserRepo
}

func NewProfileHandler(bcryptCost int, users *repository.UserRepo) *ProfileHandler {
	h := &ProfileHandler{Users: users}
	h.Cfg.BcryptCost = bcryptCost
	return h
}

type profileResp struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

type profileUpdateReq struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	CurrentPassword string `json:"current_password" form:"current_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
	Confirm         string `json:"confirm" form:"confirm"`
}

// Get handles GET /profile: the requester's own account data.
func (h *ProfileHandler) Get(c echo.Context) error {
	ident := requester(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, ident.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, profileResp{ID: u.ID, Username: u.Username, Email: u.Email})
}

// Update handles POST /profile. Nothing changes — not even the email — until
// the current password verifies, and a new password must be at least 8
// characters and match its confirmation.
func (h *ProfileHandler) Update(c echo.Context) error {
	ident := requester(c)

	var req profileUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username: required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, ident.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "current password is not correct"})
	}

	newHash := ""
	if req.NewPassword != "" {
		if len(req.NewPassword) < utils.MinPasswordLength {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "new_password: length must be at least 8"})
		}
		if req.Confirm != "" && req.Confirm != req.NewPassword {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "passwords must match"})
		}
		if newHash, err = utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash failed"})
		}
	}

	if err := h.Users.UpdateProfile(ctx, u.ID, req.Username, req.Email, newHash); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, profileResp{ID: u.ID, Username: req.Username, Email: req.Email})
}

// Delete handles GET /profile/delete/:userId. Only the account holder may
// delete the account; the cascade removes every owned note and its dependent
// records in one transaction. On success the client lands on the login page.
func (h *ProfileHandler) Delete(c echo.Context) error {
	ident := requester(c)

	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if userID != ident.UserID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.DeleteCascade(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}
