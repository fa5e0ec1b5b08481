package model

import "time"

// Note represents a row in the `notes` table. Notes are addressed externally
// by PublicID, a random 9-character token that doubles as the capability link
// for anonymous notes; the numeric ID never leaves the service.
//
// Fields:
//  ID        – primary key identifier of the note.
//  PublicID  – unique 9-character token used in URLs, immutable after insert.
//  Title     – optional title, at most 100 characters.
//  Body      – optional note text.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update, refreshed on every mutation.
type Note struct {
	ID        uint64    // notes.id
	PublicID  string    // notes.public_id
	Title     string    // notes.title
	Body      string    // notes.body
	CreatedAt time.Time // notes.created_at
	UpdatedAt time.Time // notes.updated_at
}

// NoteParams is the optional ownership record for a note, one row at most per
// note (`note_params` table). A note without a NoteParams row is anonymous:
// anyone holding the link may view, edit and delete it. The flags are
// independent; Encryption is declared but carries no cryptographic behavior
// beyond gating non-owner edits.
//
// Fields:
//  ID         – primary key identifier.
//  NoteID     – the owned note (unique, enforcing the 0..1 relationship).
//  OwnerID    – the owning user.
//  IsPrivate  – when true only the owner may view the note.
//  AllowEdit  – when true non-owners may edit a public note.
//  Encryption – requested-encryption flag; blocks non-owner edits when set.
type NoteParams struct {
	ID         uint64 // note_params.id
	NoteID     uint64 // note_params.note_id
	OwnerID    uint64 // note_params.owner_id
	IsPrivate  bool   // note_params.is_private
	AllowEdit  bool   // note_params.allow_edit
	Encryption bool   // note_params.encryption
}

// PrivateAccess is an explicit per-user grant to a private note
// (`private_access` table). No business rule consumes grants yet; the table
// exists as the extension point for per-user sharing and participates in
// deletion cascades.
type PrivateAccess struct {
	ID     uint64 // private_access.id
	NoteID uint64 // private_access.note_id
	UserID uint64 // private_access.user_id
}
