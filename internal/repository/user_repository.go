package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/note-share/internal/model"
	"github.com/iliyamo/note-share/internal/utils"
)

// UserRepo encapsulates all database queries related to user accounts.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo constructs a UserRepo with the provided DB handle.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create hashes the password and inserts a new user, returning its id. The
// unique constraint on username is authoritative: a duplicate insert, even
// one racing a prior existence check, surfaces as ErrUsernameExists.
func (r *UserRepo) Create(ctx context.Context, username, password, email string, cost int) (uint64, error) {
	username = strings.TrimSpace(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES (?,?,?)",
		username, email, hash)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUsername fetches a user by exact username. Returns ErrUserNotFound
// when no row matches.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx,
		"SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE username = ? LIMIT 1",
		username)
}

// GetByID fetches a user by id. Returns ErrUserNotFound when no row matches.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx,
		"SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE id = ? LIMIT 1",
		id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx, q, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdateProfile writes the user's username, email and, when newPasswordHash
// is non-empty, the password hash. The caller is responsible for verifying
// the current password first; the repository does not re-authenticate. A
// username collision surfaces as ErrUsernameExists.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, username, email, newPasswordHash string) error {
	username = strings.TrimSpace(username)
	var err error
	if newPasswordHash != "" {
		_, err = r.db.ExecContext(ctx,
			"UPDATE users SET username = ?, email = ?, password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
			username, email, newPasswordHash, id)
	} else {
		_, err = r.db.ExecContext(ctx,
			"UPDATE users SET username = ?, email = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
			username, email, id)
	}
	if isDuplicateKey(err) {
		return ErrUsernameExists
	}
	return err
}

// DeleteCascade removes a user account together with everything hanging off
// it: grants on the user's notes, grants the user holds on other notes, all
// owned notes with their ownership rows, and the user's refresh tokens. The
// whole cascade runs in one transaction so a failure partway leaves prior
// state unchanged. Returns ErrUserNotFound when the user row does not exist.
func (r *UserRepo) DeleteCascade(ctx context.Context, userID uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	// Grants other users hold on notes owned by this user.
	if _, err = tx.ExecContext(ctx,
		`DELETE pa FROM private_access pa
		 JOIN note_params np ON np.note_id = pa.note_id
		 WHERE np.owner_id = ?`, userID); err != nil {
		return err
	}
	// Grants this user holds on other people's notes.
	if _, err = tx.ExecContext(ctx,
		"DELETE FROM private_access WHERE user_id = ?", userID); err != nil {
		return err
	}
	// Owned notes; must go before note_params since the join pivots on it.
	if _, err = tx.ExecContext(ctx,
		`DELETE n FROM notes n
		 JOIN note_params np ON np.note_id = n.id
		 WHERE np.owner_id = ?`, userID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"DELETE FROM note_params WHERE owner_id = ?", userID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id = ?", userID); err != nil {
		return err
	}
	var res sql.Result
	if res, err = tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", userID); err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrUserNotFound
		return err
	}
	return nil
}
