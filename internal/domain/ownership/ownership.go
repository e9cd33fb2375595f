// Package ownership decides whether an actor may perform owner-only
// mutations (metadata edits, image replacement, deletion) on a book.
package ownership

import (
	"strings"

	"github.com/google/uuid"
)

// CanMutate reports whether actor owns the record. An absent owner or actor
// never matches.
func CanMutate(owner uuid.NullUUID, actor uuid.UUID) bool {
	if !owner.Valid || owner.UUID == uuid.Nil || actor == uuid.Nil {
		return false
	}
	return owner.UUID == actor
}

// Matches compares owner and actor identifiers given as strings. When both
// parse as UUIDs they are compared canonically, so braced, urn-prefixed,
// upper-case or padded forms match. Any other id must be byte-for-byte equal
// after trimming. Empty values never match.
func Matches(ownerID, actorID string) bool {
	owner := strings.TrimSpace(ownerID)
	actor := strings.TrimSpace(actorID)
	if owner == "" || actor == "" {
		return false
	}

	ou, oErr := uuid.Parse(owner)
	au, aErr := uuid.Parse(actor)
	if oErr == nil && aErr == nil {
		return CanMutate(uuid.NullUUID{UUID: ou, Valid: true}, au)
	}
	return owner == actor
}
