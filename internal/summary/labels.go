package summary

import (
	"sort"

	"github.com/mmynk/splittrack/internal/models"
)

// Labeler resolves member identities to display labels.
//
// Resolution order:
//  1. nickname from the most recently created group listing the identity
//     (ties broken by group ID)
//  2. display name of the registered user with that identity
//  3. the identity itself
//
// Labels are for display only; balances are always keyed by identity.
type Labeler struct {
	nicknames    map[string]string
	displayNames map[string]string
}

// NewLabeler builds a labeler from the groups a caller can see and the
// directory display names keyed by identity. Either may be nil.
func NewLabeler(groups []*models.Group, displayNames map[string]string) *Labeler {
	ordered := make([]*models.Group, 0, len(groups))
	for _, g := range groups {
		if g != nil {
			ordered = append(ordered, g)
		}
	}
	// Oldest first so newer groups overwrite.
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt != ordered[j].CreatedAt {
			return ordered[i].CreatedAt < ordered[j].CreatedAt
		}
		return ordered[i].ID < ordered[j].ID
	})

	nicknames := make(map[string]string)
	for _, g := range ordered {
		for _, m := range g.Members {
			if m.Nickname != "" {
				nicknames[m.ID] = m.Nickname
			}
		}
	}

	return &Labeler{nicknames: nicknames, displayNames: displayNames}
}

// Label returns the display label for id.
func (l *Labeler) Label(id string) string {
	if l == nil {
		return id
	}
	if nick, ok := l.nicknames[id]; ok {
		return nick
	}
	if name := l.displayNames[id]; name != "" {
		return name
	}
	return id
}
