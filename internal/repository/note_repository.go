// This file defines the note repository: creation with public-id collision
// retry, lookup by public id together with the optional ownership record,
// edits that always refresh updated_at, transactional cascade deletion and
// the public listing/search queries. A note may exist without a note_params
// row (anonymous note); the repository surfaces that as a nil *NoteParams so
// the access policy can branch on it explicitly.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/note-share/internal/model"
	"github.com/iliyamo/note-share/internal/utils"
)

// maxPublicIDAttempts bounds the regenerate-and-retry loop on a public id
// collision. At 62^9 ids a single retry is already vanishingly rare; five
// attempts means a persistent failure is a real fault, not bad luck.
const maxPublicIDAttempts = 5

// NoteRepo encapsulates all database queries related to notes and their
// ownership records.
type NoteRepo struct {
	db *sql.DB
}

// NewNoteRepo constructs a NoteRepo with the provided DB handle.
func NewNoteRepo(db *sql.DB) *NoteRepo {
	return &NoteRepo{db: db}
}

// ListedNote is one row of the public index, a user listing or a search
// result. Username is empty for anonymous notes.
type ListedNote struct {
	PublicID  string    `json:"public_id"`
	Title     string    `json:"title"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Create inserts a new note with a freshly generated public id. When ownerID
// is non-zero a note_params row is written in the same transaction, so an
// owned note can never exist half-created. On a public_id collision the id
// is regenerated and the insert retried.
func (r *NoteRepo) Create(ctx context.Context, ownerID uint64) (n *model.Note, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var noteID int64
	var publicID string
	for attempt := 0; ; attempt++ {
		publicID, err = utils.NewPublicID()
		if err != nil {
			return nil, err
		}
		var res sql.Result
		res, err = tx.ExecContext(ctx,
			"INSERT INTO notes (public_id) VALUES (?)", publicID)
		if err == nil {
			noteID, err = res.LastInsertId()
			if err != nil {
				return nil, err
			}
			break
		}
		if isDuplicateKey(err) && attempt < maxPublicIDAttempts-1 {
			err = nil
			continue
		}
		return nil, err
	}

	if ownerID != 0 {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO note_params (note_id, owner_id, is_private, allow_edit, encryption) VALUES (?,?,?,?,?)",
			noteID, ownerID, false, false, false); err != nil {
			return nil, err
		}
	}

	n = &model.Note{ID: uint64(noteID), PublicID: publicID}
	if err = tx.QueryRowContext(ctx,
		"SELECT title, body, created_at, updated_at FROM notes WHERE id = ?",
		noteID).Scan(&n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	return n, nil
}

// GetByPublicID fetches a note by its public id together with its ownership
// record. The second return value is nil for anonymous notes. Returns
// ErrNoteNotFound when no note matches.
func (r *NoteRepo) GetByPublicID(ctx context.Context, publicID string) (*model.Note, *model.NoteParams, error) {
	var n model.Note
	err := r.db.QueryRowContext(ctx,
		"SELECT id, public_id, title, body, created_at, updated_at FROM notes WHERE public_id = ? LIMIT 1",
		publicID).Scan(&n.ID, &n.PublicID, &n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNoteNotFound
		}
		return nil, nil, err
	}

	var p model.NoteParams
	err = r.db.QueryRowContext(ctx,
		"SELECT id, note_id, owner_id, is_private, allow_edit, encryption FROM note_params WHERE note_id = ? LIMIT 1",
		n.ID).Scan(&p.ID, &p.NoteID, &p.OwnerID, &p.IsPrivate, &p.AllowEdit, &p.Encryption)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &n, nil, nil // anonymous note
		}
		return nil, nil, err
	}
	return &n, &p, nil
}

// Update persists an edit to a note's title and body and always refreshes
// updated_at. When params is non-nil the ownership flags are written in the
// same transaction, matching the single form submit that carries both.
func (r *NoteRepo) Update(ctx context.Context, n *model.Note, params *model.NoteParams) (err error) {
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

	if _, err = tx.ExecContext(ctx,
		"UPDATE notes SET title = ?, body = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		n.Title, n.Body, n.ID); err != nil {
		return err
	}
	if params != nil {
		if _, err = tx.ExecContext(ctx,
			"UPDATE note_params SET is_private = ?, allow_edit = ?, encryption = ? WHERE note_id = ?",
			params.IsPrivate, params.AllowEdit, params.Encryption, n.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteCascade removes a note together with its ownership record and any
// private-access grants. Dependent rows are deleted first so a failure
// partway through rolls back to the prior state and can never leave an
// ownership row pointing at a deleted note.
func (r *NoteRepo) DeleteCascade(ctx context.Context, noteID uint64) (err error) {
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

	if _, err = tx.ExecContext(ctx, "DELETE FROM private_access WHERE note_id = ?", noteID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM note_params WHERE note_id = ?", noteID); err != nil {
		return err
	}
	var res sql.Result
	if res, err = tx.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", noteID); err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrNoteNotFound
		return err
	}
	return nil
}

// listQuery is the shared projection for index/search/user listings: every
// note joined (outer) to its optional ownership record and owner.
const listQuery = `SELECT n.public_id, n.title, COALESCE(u.username, ''), n.created_at, n.updated_at
	FROM notes n
	LEFT JOIN note_params p ON p.note_id = n.id
	LEFT JOIN users u ON u.id = p.owner_id`

// ListPublic returns every note visible to everyone, newest-updated first.
// A note is visible when it has no ownership record or is not private.
func (r *NoteRepo) ListPublic(ctx context.Context) ([]ListedNote, error) {
	const q = listQuery + `
	WHERE p.id IS NULL OR p.is_private = FALSE
	ORDER BY n.updated_at DESC`
	return r.queryListed(ctx, q)
}

// Search returns notes whose title, body or owner username contains the
// given substring, newest-updated first. Matching is case-insensitive via
// LOWER on both sides so the behavior does not depend on column collation.
// Private notes are excluded regardless of match.
func (r *NoteRepo) Search(ctx context.Context, substring string) ([]ListedNote, error) {
	const q = listQuery + `
	WHERE (p.id IS NULL OR p.is_private = FALSE)
	  AND (LOWER(n.title) LIKE LOWER(?) OR LOWER(n.body) LIKE LOWER(?) OR LOWER(u.username) LIKE LOWER(?))
	ORDER BY n.updated_at DESC`
	pattern := "%" + substring + "%"
	return r.queryListed(ctx, q, pattern, pattern, pattern)
}

// ListByOwner returns the notes owned by a user, newest-updated first. When
// includePrivate is false (the requester is not that user) private notes are
// filtered out.
func (r *NoteRepo) ListByOwner(ctx context.Context, ownerID uint64, includePrivate bool) ([]ListedNote, error) {
	q := listQuery + `
	WHERE p.owner_id = ?`
	if !includePrivate {
		q += ` AND p.is_private = FALSE`
	}
	q += `
	ORDER BY n.updated_at DESC`
	return r.queryListed(ctx, q, ownerID)
}

func (r *NoteRepo) queryListed(ctx context.Context, q string, args ...any) ([]ListedNote, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ListedNote{}
	for rows.Next() {
		var ln ListedNote
		if err := rows.Scan(&ln.PublicID, &ln.Title, &ln.Username, &ln.CreatedAt, &ln.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ln)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByKind returns the number of anonymous and owned notes. Used by the
// stats endpoint.
func (r *NoteRepo) CountByKind(ctx context.Context) (anonymous, owned int64, err error) {
	const q = `SELECT
		COUNT(CASE WHEN p.id IS NULL THEN 1 END),
		COUNT(p.id)
	FROM notes n
	LEFT JOIN note_params p ON p.note_id = n.id`
	err = r.db.QueryRowContext(ctx, q).Scan(&anonymous, &owned)
	return anonymous, owned, err
}
