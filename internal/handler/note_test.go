package handler

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/note-share/internal/middleware"
	"github.com/iliyamo/note-share/internal/repository"
)

func newNoteHandlerMock(t *testing.T) (*NoteHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewNoteHandler(repository.NewNoteRepo(db), repository.NewUserRepo(db)), mock
}

// newCtx builds an echo context for a request; userID zero means anonymous.
func newCtx(t *testing.T, method, target, body string, userID uint64, username string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set(middleware.CtxUserID, float64(userID)) // as the JWT middleware stores it
		c.Set(middleware.CtxUsername, username)
	}
	return c, rec
}

var (
	selectNoteQ   = "SELECT id, public_id, title, body, created_at, updated_at FROM notes"
	selectParamsQ = "SELECT id, note_id, owner_id, is_private, allow_edit, encryption FROM note_params"
	selectUserQ   = "SELECT id, username, email, password_hash, created_at, updated_at FROM users"
)

func expectNote(mock sqlmock.Sqlmock, publicID string) {
	now := time.Now().UTC()
	mock.ExpectQuery(selectNoteQ).WithArgs(publicID).WillReturnRows(
		sqlmock.NewRows([]string{"id", "public_id", "title", "body", "created_at", "updated_at"}).
			AddRow(1, publicID, "T", "B", now, now))
}

func expectParams(mock sqlmock.Sqlmock, ownerID uint64, private, allowEdit, encryption bool) {
	mock.ExpectQuery(selectParamsQ).WithArgs(uint64(1)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "note_id", "owner_id", "is_private", "allow_edit", "encryption"}).
			AddRow(2, 1, ownerID, private, allowEdit, encryption))
}

func expectOwnerLookup(mock sqlmock.Sqlmock, ownerID uint64, username string) {
	now := time.Now().UTC()
	mock.ExpectQuery(selectUserQ).WithArgs(ownerID).WillReturnRows(
		sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at", "updated_at"}).
			AddRow(ownerID, username, "", "x", now, now))
}

func TestView_PrivateNoteRedirectsNonOwnerToOwnerListing(t *testing.T) {
	t.Parallel()
	h, mock := newNoteHandlerMock(t)

	expectNote(mock, "aB3xY9Qw0")
	expectParams(mock, 7, true, false, false)
	expectOwnerLookup(mock, 7, "alice")

	c, rec := newCtx(t, http.MethodGet, "/view/aB3xY9Qw0", "", 9, "bob")
	c.SetParamNames("publicId")
	c.SetParamValues("aB3xY9Qw0")

	require.NoError(t, h.View(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/user/alice", rec.Header().Get(echo.HeaderLocation))
}

func TestView_RedirectTargetIsPercentEncoded(t *testing.T) {
	t.Parallel()
	h, mock := newNoteHandlerMock(t)

	expectNote(mock, "aB3xY9Qw0")
	expectParams(mock, 7, true, false, false)
	expectOwnerLookup(mock, 7, "a b/c")

	c, rec := newCtx(t, http.MethodGet, "/view/aB3xY9Qw0", "", 9, "bob")
	c.SetParamNames("publicId")
	c.SetParamValues("aB3xY9Qw0")

	require.NoError(t, h.View(c))
	assert.Equal(t, "/user/a%20b%2Fc", rec.Header().Get(echo.HeaderLocation))
}

func TestView_AnonymousNoteIsOpenToEveryone(t *testing.T) {
	t.Parallel()
	h, mock := newNoteHandlerMock(t)

	expectNote(mock, "aB3xY9Qw0")
	mock.ExpectQuery(selectParamsQ).WithArgs(uint64(1)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "note_id", "owner_id", "is_private", "allow_edit", "encryption"}))

	c, rec := newCtx(t, http.MethodGet, "/view/aB3xY9Qw0", "", 0, "")
	c.SetParamNames("publicId")
	c.SetParamValues("aB3xY9Qw0")

	require.NoError(t, h.View(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"public_id":"aB3xY9Qw0"`)
	assert.NotContains(t, rec.Body.String(), `"owner"`)
}

func TestView_UnknownPublicIDIs404NotRedirect(t *testing.T) {
	t.Parallel()
	h, mock := newNoteHandlerMock(t)

	mock.ExpectQuery(selectNoteQ).WithArgs("missing00").WillReturnRows(
		sqlmock.NewRows([]string{"id", "public_id", "title", "body", "created_at", "updated_at"}))

	c, rec := newCtx(t, http.MethodGet, "/view/missing00", "", 9, "bob")
	c.SetParamNames("publicId")
	c.SetParamValues("missing00")

	require.NoError(t, h.View(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestView_MalformedPublicIDIs404WithoutQuery(t *testing.T) {
	t.Parallel()
	h, mock := newNoteHandlerMock(t)

	c, rec := newCtx(t, http.MethodGet, "/view/nope", "", 0, "")
	c.SetParamNames("publicId")
	c.SetParamValues("nope")

	require.NoError(t, h.View(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEdit_ReadOnlyNoteRedirectsToView(t *testing.T) {
	t.Parallel()
	h, mock := newNoteHandlerMock(t)

	expectNote(mock, "aB3xY9Qw0")
	expectParams(mock, 7, false, false, false) // public, no edit grant

	c, rec := newCtx(t, http.MethodGet, "/edit/aB3xY9Qw0", "", 9, "bob")
	c.SetParamNames("publicId")
	c.SetParamValues("aB3xY9Qw0")

	require.NoError(t, h.Edit(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/view/aB3xY9Qw0", rec.Header().Get(echo.HeaderLocation))
}

func TestEdit_EncryptionFlagBlocksNonOwnerEdit(t *testing.T) {
	t.Parallel()
	h, mock := newNoteHandlerMock(t)

	expectNote(mock, "aB3xY9Qw0")
	expectParams(mock, 7, false, true, true) // AllowEdit set but Encryption wins

	c, rec := newCtx(t, http.MethodGet, "/edit/aB3xY9Qw0", "", 9, "bob")
	c.SetParamNames("publicId")
	c.SetParamValues("aB3xY9Qw0")

	require.NoError(t, h.Edit(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/view/aB3xY9Qw0", rec.Header().Get(echo.HeaderLocation))
}

func TestEdit_NonOwnerPublishUpdatesNoteButNotParams(t *testing.T) {
	t.Parallel()
	h, mock := newNoteHandlerMock(t)

	expectNote(mock, "aB3xY9Qw0")
	expectParams(mock, 7, false, true, false)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notes SET title = ?, body = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?")).
		WithArgs("New", "Text", uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	body := `{"title":"New","body":"Text","publish":true,"access":"private"}`
	c, rec := newCtx(t, http.MethodPost, "/edit/aB3xY9Qw0", body, 9, "bob")
	c.SetParamNames("publicId")
	c.SetParamValues("aB3xY9Qw0")

	require.NoError(t, h.Edit(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/view/aB3xY9Qw0", rec.Header().Get(echo.HeaderLocation))
	// No note_params UPDATE was expected: the access=private field from a
	// non-owner must be ignored.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEdit_TitleTooLongIsValidationError(t *testing.T) {
	t.Parallel()
	h, mock := newNoteHandlerMock(t)

	expectNote(mock, "aB3xY9Qw0")
	mock.ExpectQuery(selectParamsQ).WithArgs(uint64(1)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "note_id", "owner_id", "is_private", "allow_edit", "encryption"}))

	body := `{"title":"` + strings.Repeat("x", 101) + `"}`
	c, rec := newCtx(t, http.MethodPost, "/edit/aB3xY9Qw0", body, 0, "")
	c.SetParamNames("publicId")
	c.SetParamValues("aB3xY9Qw0")

	require.NoError(t, h.Edit(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelete_NonOwnerIsRedirectedToView(t *testing.T) {
	t.Parallel()
	h, mock := newNoteHandlerMock(t)

	expectNote(mock, "aB3xY9Qw0")
	expectParams(mock, 7, false, true, false) // editable, still not deletable

	c, rec := newCtx(t, http.MethodGet, "/edit/aB3xY9Qw0/delete", "", 9, "bob")
	c.SetParamNames("publicId")
	c.SetParamValues("aB3xY9Qw0")

	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/view/aB3xY9Qw0", rec.Header().Get(echo.HeaderLocation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserNotes_DecodesUsernameAndFiltersPrivate(t *testing.T) {
	t.Parallel()
	h, mock := newNoteHandlerMock(t)
	now := time.Now().UTC()

	// The encoded route parameter must be decoded before the lookup.
	mock.ExpectQuery(selectUserQ).WithArgs("a b").WillReturnRows(
		sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at", "updated_at"}).
			AddRow(7, "a b", "", "x", now, now))
	mock.ExpectQuery("p.is_private = FALSE").WithArgs(uint64(7)).WillReturnRows(
		sqlmock.NewRows([]string{"public_id", "title", "username", "created_at", "updated_at"}).
			AddRow("aB3xY9Qw0", "T", "a b", now, now))

	c, rec := newCtx(t, http.MethodGet, "/user/a%20b", "", 9, "bob")
	c.SetParamNames("username")
	c.SetParamValues("a%20b")

	require.NoError(t, h.UserNotes(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserNotes_SelfSeesPrivateNotes(t *testing.T) {
	t.Parallel()
	h, mock := newNoteHandlerMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(selectUserQ).WithArgs("alice").WillReturnRows(
		sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at", "updated_at"}).
			AddRow(7, "alice", "", "x", now, now))
	// Self listing: the query must not carry the is_private filter.
	mock.ExpectQuery("WHERE p.owner_id = \\?\\s+ORDER BY").WithArgs(uint64(7)).WillReturnRows(
		sqlmock.NewRows([]string{"public_id", "title", "username", "created_at", "updated_at"}).
			AddRow("aB3xY9Qw0", "secret", "alice", now, now))

	c, rec := newCtx(t, http.MethodGet, "/user/alice", "", 7, "alice")
	c.SetParamNames("username")
	c.SetParamValues("alice")

	require.NoError(t, h.UserNotes(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserNotes_UnknownUsernameIs404(t *testing.T) {
	t.Parallel()
	h, mock := newNoteHandlerMock(t)

	mock.ExpectQuery(selectUserQ).WithArgs("ghost").WillReturnRows(
		sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at", "updated_at"}))

	c, rec := newCtx(t, http.MethodGet, "/user/ghost", "", 0, "")
	c.SetParamNames("username")
	c.SetParamValues("ghost")

	require.NoError(t, h.UserNotes(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch_EmptyQueryReturnsNothingWithoutQuerying(t *testing.T) {
	t.Parallel()
	h, mock := newNoteHandlerMock(t)

	c, rec := newCtx(t, http.MethodGet, "/search?q=", "", 0, "")

	require.NoError(t, h.Search(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"notes":[]`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
