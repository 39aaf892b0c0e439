package models

import "strings"

// Member is one participant of a group.
type Member struct {
	// ID is the stable identity of the member (the account email).
	// It is comparable across groups.
	ID string

	// Nickname is the display label inside one group.
	// The same ID may carry different nicknames in different groups.
	Nickname string
}

// Group represents a named set of members sharing expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string

	// Members is the non-empty list of members. The creator is always one of them.
	Members []Member

	// CreatedBy is the member ID of the user who created the group.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// MemberIDs returns the identities of all members in group order.
func (g *Group) MemberIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ID
	}
	return ids
}

// HasMember reports whether id is a member of the group.
func (g *Group) HasMember(id string) bool {
	for _, m := range g.Members {
		if m.ID == id {
			return true
		}
	}
	return false
}

// NormalizeMemberID canonicalizes an identity for comparison and storage.
// Identities are emails, so surrounding space and letter case are ignored.
func NormalizeMemberID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
