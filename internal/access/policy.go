// Package access contains the capability-resolution logic for notes. It is
// deliberately pure: given a note's ownership record (or nil for anonymous
// notes) and the requester's identity, Resolve answers which operations are
// permitted. Handlers translate denials into redirects; nothing in this
// package touches HTTP or the database, which keeps the decision table
// trivially unit-testable.
package access

import "github.com/iliyamo/note-share/internal/model"

// Identity is the requester identity passed explicitly into Resolve. The
// zero value is the anonymous (unauthenticated) requester. Username is
// carried along so handlers can build listing links without an extra lookup.
type Identity struct {
	UserID   uint64
	Username string
}

// Anonymous returns the unauthenticated identity.
func Anonymous() Identity { return Identity{} }

// Authenticated reports whether the identity belongs to a logged-in user.
func (i Identity) Authenticated() bool { return i.UserID != 0 }

// Decision is the capability set resolved for one (note, requester) pair.
// Resolving is idempotent and side-effect free; calling it twice with the
// same inputs always yields the same Decision.
type Decision struct {
	CanView   bool
	CanEdit   bool
	CanDelete bool
	IsOwner   bool
}

// Resolve maps an ownership record and a requester identity to a Decision.
//
//	params == nil                         -> anonymous note, full access for everyone
//	requester owns the note               -> full access
//	IsPrivate and requester is not owner  -> no access at all
//	public, AllowEdit and no Encryption   -> view + edit, never delete
//	public otherwise                      -> view only
//
// The Encryption flag, when set, blocks non-owner edits even if AllowEdit is
// true. The flag has no other effect anywhere in the system.
func Resolve(params *model.NoteParams, requester Identity) Decision {
	if params == nil {
		// No ownership record: the link itself is the capability.
		return Decision{CanView: true, CanEdit: true, CanDelete: true}
	}
	if requester.Authenticated() && requester.UserID == params.OwnerID {
		return Decision{CanView: true, CanEdit: true, CanDelete: true, IsOwner: true}
	}
	if params.IsPrivate {
		return Decision{}
	}
	return Decision{
		CanView: true,
		CanEdit: params.AllowEdit && !params.Encryption,
	}
}
