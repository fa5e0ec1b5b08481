package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/note-share/internal/repository"
)

// Index handles GET /. It returns every publicly visible note, newest
// updated first. The route sits behind the response cache.
func (h *NoteHandler) Index(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	notes, err := h.Notes.ListPublic(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"notes": notes})
}

type searchReq struct {
	Query string `json:"q" form:"q" query:"q"`
}

// Search handles GET and POST /search. The substring is matched
// case-insensitively against note titles, bodies and owner usernames.
// An empty query returns an empty result set rather than everything.
func (h *NoteHandler) Search(c echo.Context) error {
	var req searchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return c.JSON(http.StatusOK, echo.Map{"notes": []repository.ListedNote{}})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	notes, err := h.Notes.Search(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"notes": notes})
}

// UserNotes handles GET /user/:username. The username segment is
// percent-decoded before lookup since usernames may contain reserved URL
// characters. Private notes appear only when the requester is that user.
func (h *NoteHandler) UserNotes(c echo.Context) error {
	username, err := url.PathUnescape(c.Param("username"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	ident := requester(c)
	includePrivate := ident.Authenticated() && ident.UserID == user.ID

	notes, err := h.Notes.ListByOwner(ctx, user.ID, includePrivate)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"username": user.Username, "notes": notes})
}

// Stats handles GET /stats: counts of anonymous versus owned notes.
func (h *NoteHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	anon, owned, err := h.Notes.CountByKind(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"anonymous_notes": anon,
		"user_notes":      owned,
	})
}
