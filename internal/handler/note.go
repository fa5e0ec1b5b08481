package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/note-share/internal/access"
	"github.com/iliyamo/note-share/internal/model"
	"github.com/iliyamo/note-share/internal/queue"
	"github.com/iliyamo/note-share/internal/repository"
	queue_publisher "github.com/iliyamo/note-share/internal/service"
	"github.com/iliyamo/note-share/internal/utils"
)

// NoteHandler bundles the repositories used by note endpoints.
type NoteHandler struct {
	Notes *repository.NoteRepo
	Users *repository.UserRepo
}

// NewNoteHandler constructs a NoteHandler and panics if a dependency is nil.
func NewNoteHandler(notes *repository.NoteRepo, users *repository.UserRepo) *NoteHandler {
	if notes == nil || users == nil {
		panic("nil repository passed to NewNoteHandler")
	}
	return &NoteHandler{Notes: notes, Users: users}
}

// ----- DTOs -----

type editReq struct {
	Title   string `json:"title" form:"title"`
	Body    string `json:"body" form:"body"`
	Publish bool   `json:"publish" form:"publish"`
	// Ownership flags; applied only when the requester owns the note.
	// Access mirrors the original private/public radio choice.
	Access     string `json:"access" form:"access"` // "private" | "public" | "" (unchanged)
	AllowEdit  *bool  `json:"allow_edit" form:"allow_edit"`
	Encryption *bool  `json:"encryption" form:"encryption"`
}

type noteResp struct {
	PublicID  string     `json:"public_id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Owner     *ownerPart `json:"owner,omitempty"`
}

type ownerPart struct {
	Username   string `json:"username"`
	IsPrivate  bool   `json:"is_private"`
	AllowEdit  bool   `json:"allow_edit"`
	Encryption bool   `json:"encryption"`
}

const maxTitleLen = 100

// Create handles GET /create. It creates an empty note — owned when the
// request carries a valid identity, anonymous otherwise — and redirects to
// its edit page. Rate-limited at the route level since anyone may call it.
func (h *NoteHandler) Create(c echo.Context) error {
	ident := requester(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, err := h.Notes.Create(ctx, ident.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create note failed"})
	}

	h.publishActivity(c, queue.ActionCreated, n.PublicID, ident.Username)
	return c.Redirect(http.StatusSeeOther, editPath(n.PublicID))
}

// Edit handles GET and POST /edit/:publicId. GET returns the note (plus the
// ownership flags when the requester is the owner) for the edit form. POST
// applies the submitted changes. Both are gated by the access policy: a
// private note redirects non-owners to the owner's listing, an uneditable
// public note redirects to the view page.
func (h *NoteHandler) Edit(c echo.Context) error {
	ident := requester(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, params, err := h.fetch(ctx, c)
	if err != nil {
		return h.notFoundOrFail(c, err)
	}

	dec := access.Resolve(params, ident)
	if !dec.CanView {
		return h.redirectToOwner(ctx, c, params)
	}
	if !dec.CanEdit {
		return c.Redirect(http.StatusSeeOther, viewPath(n.PublicID))
	}

	if c.Request().Method == http.MethodGet {
		return c.JSON(http.StatusOK, h.noteResponse(ctx, n, params, dec))
	}

	var req editReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.Title) > maxTitleLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title: length must be at most 100"})
	}

	n.Title = req.Title
	n.Body = req.Body

	// Ownership flags travel on the same form but only the owner may change
	// them; for everyone else they are silently ignored.
	var updParams *model.NoteParams
	if dec.IsOwner && params != nil {
		switch req.Access {
		case "private":
			params.IsPrivate = true
		case "public":
			params.IsPrivate = false
		}
		if req.AllowEdit != nil {
			params.AllowEdit = *req.AllowEdit
		}
		if req.Encryption != nil {
			params.Encryption = *req.Encryption
		}
		updParams = params
	}

	if err := h.Notes.Update(ctx, n, updParams); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	if req.Publish {
		return c.Redirect(http.StatusSeeOther, viewPath(n.PublicID))
	}
	return c.JSON(http.StatusOK, h.noteResponse(ctx, n, params, dec))
}

// View handles GET /view/:publicId. Viewing is a pure read: resolving the
// capability twice for the same note and requester yields the same outcome.
func (h *NoteHandler) View(c echo.Context) error {
	ident := requester(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, params, err := h.fetch(ctx, c)
	if err != nil {
		return h.notFoundOrFail(c, err)
	}

	dec := access.Resolve(params, ident)
	if !dec.CanView {
		return h.redirectToOwner(ctx, c, params)
	}
	return c.JSON(http.StatusOK, h.noteResponse(ctx, n, params, dec))
}

// Delete handles GET /edit/:publicId/delete. Only anonymous notes and notes
// owned by the requester can be deleted; any denial redirects to the view
// page rather than dead-ending.
func (h *NoteHandler) Delete(c echo.Context) error {
	ident := requester(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, params, err := h.fetch(ctx, c)
	if err != nil {
		return h.notFoundOrFail(c, err)
	}

	dec := access.Resolve(params, ident)
	if !dec.CanDelete {
		return c.Redirect(http.StatusSeeOther, viewPath(n.PublicID))
	}

	if err := h.Notes.DeleteCascade(ctx, n.ID); err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	h.publishActivity(c, queue.ActionDeleted, n.PublicID, ident.Username)
	return c.Redirect(http.StatusSeeOther, "/")
}

// fetch loads the note addressed by the :publicId route parameter together
// with its optional ownership record. Malformed ids short-circuit to
// ErrNoteNotFound without touching the database.
func (h *NoteHandler) fetch(ctx context.Context, c echo.Context) (*model.Note, *model.NoteParams, error) {
	publicID := c.Param("publicId")
	if !utils.ValidPublicID(publicID) {
		return nil, nil, repository.ErrNoteNotFound
	}
	return h.Notes.GetByPublicID(ctx, publicID)
}

func (h *NoteHandler) notFoundOrFail(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrNoteNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
}

// redirectToOwner sends a denied viewer to the owner's public listing
// instead of a bare 403, so a shared link to a since-privatized note still
// leads somewhere useful.
func (h *NoteHandler) redirectToOwner(ctx context.Context, c echo.Context, params *model.NoteParams) error {
	owner, err := h.Users.GetByID(ctx, params.OwnerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.Redirect(http.StatusSeeOther, userNotesPath(owner.Username))
}

func (h *NoteHandler) noteResponse(ctx context.Context, n *model.Note, params *model.NoteParams, dec access.Decision) noteResp {
	resp := noteResp{
		PublicID:  n.PublicID,
		Title:     n.Title,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if params != nil {
		op := ownerPart{
			IsPrivate:  params.IsPrivate,
			AllowEdit:  params.AllowEdit,
			Encryption: params.Encryption,
		}
		if owner, err := h.Users.GetByID(ctx, params.OwnerID); err == nil {
			op.Username = owner.Username
		}
		resp.Owner = &op
	}
	return resp
}

// publishActivity emits a lifecycle event best-effort: a broker outage must
// never fail the note operation that triggered it.
func (h *NoteHandler) publishActivity(c echo.Context, action, publicID, username string) {
	ev := queue.NoteActivityEvent{
		Action:     action,
		PublicID:   publicID,
		Username:   username,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := queue_publisher.PublishNoteActivity(c.Request().Context(), ev); err != nil {
		log.Printf("note activity publish skipped: %v", err)
	}
}
