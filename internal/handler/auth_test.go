package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/note-share/internal/config"
	"github.com/iliyamo/note-share/internal/repository"
	"github.com/iliyamo/note-share/internal/utils"
)

func newAuthHandlerMock(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	cfg := config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     bcrypt.MinCost,
	}
	return NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), mock
}

func TestRegister_IssuesTokenPair(t *testing.T) {
	t.Parallel()
	h, mock := newAuthHandlerMock(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("bob", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(uint64(3), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	c, rec := newCtx(t, http.MethodPost, "/register",
		`{"username":"bob","password":"longenough","confirm":"longenough"}`, 0, "")

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		User struct {
			ID       uint64 `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
		Access  struct{ Token string } `json:"access"`
		Refresh struct{ Token string } `json:"refresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(3), resp.User.ID)
	assert.Equal(t, "bob", resp.User.Username)
	assert.NotEmpty(t, resp.Access.Token)
	assert.Len(t, resp.Refresh.Token, 96)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_DuplicateUsernameIs409(t *testing.T) {
	t.Parallel()
	h, mock := newAuthHandlerMock(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("bob", "", sqlmock.AnyArg()).
		WillReturnError(errors.New("Error 1062: Duplicate entry 'bob' for key 'users.username'"))

	c, rec := newCtx(t, http.MethodPost, "/register",
		`{"username":"bob","password":"longenough"}`, 0, "")

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
}

func TestRegister_ShortPasswordRejectedBeforeAnyQuery(t *testing.T) {
	t.Parallel()
	h, mock := newAuthHandlerMock(t)

	c, rec := newCtx(t, http.MethodPost, "/register",
		`{"username":"bob","password":"short"}`, 0, "")

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_UnknownUserAndWrongPasswordAreIndistinguishable(t *testing.T) {
	t.Parallel()
	h, mock := newAuthHandlerMock(t)
	now := time.Now().UTC()

	hash, err := utils.HashPassword("rightpass", bcrypt.MinCost)
	require.NoError(t, err)

	// Unknown username.
	mock.ExpectQuery("SELECT id, username, email, password_hash").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at", "updated_at"}))
	c1, rec1 := newCtx(t, http.MethodPost, "/login", `{"username":"ghost","password":"whatever0"}`, 0, "")
	require.NoError(t, h.Login(c1))

	// Known username, wrong password.
	mock.ExpectQuery("SELECT id, username, email, password_hash").
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at", "updated_at"}).
			AddRow(3, "bob", "", hash, now, now))
	c2, rec2 := newCtx(t, http.MethodPost, "/login", `{"username":"bob","password":"wrongpass"}`, 0, "")
	require.NoError(t, h.Login(c2))

	assert.Equal(t, http.StatusUnauthorized, rec1.Code)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
	assert.Equal(t, rec1.Body.String(), rec2.Body.String())
}

func TestLogout_WithoutIdentityOrTokenIs400(t *testing.T) {
	t.Parallel()
	h, mock := newAuthHandlerMock(t)

	c, rec := newCtx(t, http.MethodPost, "/logout", `{}`, 0, "")

	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogout_BearerIdentityRevokesAllSessions(t *testing.T) {
	t.Parallel()
	h, mock := newAuthHandlerMock(t)

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	c, rec := newCtx(t, http.MethodPost, "/logout", `{}`, 3, "bob")

	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
