package service

import (
	"github.com/mmynk/splittrack/internal/models"
	"github.com/mmynk/splittrack/pkg/api"
)

func toAPIUser(user *models.User) *api.User {
	return &api.User{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   api.Unix(user.CreatedAt),
	}
}

func toAPIGroup(group *models.Group) *api.Group {
	members := make([]api.Member, len(group.Members))
	for i, m := range group.Members {
		members[i] = api.Member{ID: m.ID, Nickname: m.Nickname}
	}
	return &api.Group{
		ID:        group.ID,
		Name:      group.Name,
		Members:   members,
		CreatedBy: group.CreatedBy,
		CreatedAt: api.Unix(group.CreatedAt),
	}
}

func toAPIExpense(e *models.GroupExpense) *api.Expense {
	return &api.Expense{
		ID:           e.ID,
		GroupID:      e.GroupID,
		Description:  e.Description,
		Amount:       e.Amount.String(),
		Payer:        e.Payer,
		Participants: e.Participants,
		Date:         api.Unix(e.Date),
	}
}

func toAPIExpenses(expenses []models.GroupExpense) []*api.Expense {
	out := make([]*api.Expense, len(expenses))
	for i := range expenses {
		out[i] = toAPIExpense(&expenses[i])
	}
	return out
}

func toAPIPersonalExpense(e *models.Expense) *api.PersonalExpense {
	return &api.PersonalExpense{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount.String(),
		Category:    e.Category,
		Date:        api.Unix(e.Date),
	}
}

// fromAPIMembers normalizes identities and drops blanks and repeats,
// keeping the first nickname seen.
func fromAPIMembers(in []api.Member) []models.Member {
	seen := make(map[string]bool, len(in))
	out := make([]models.Member, 0, len(in))
	for _, m := range in {
		id := models.NormalizeMemberID(m.ID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, models.Member{ID: id, Nickname: m.Nickname})
	}
	return out
}
