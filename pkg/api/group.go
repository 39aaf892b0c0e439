package api

// Member is a group member. ID is the member's email.
type Member struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname,omitempty"`
}

type Group struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Members   []Member   `json:"members"`
	CreatedBy string     `json:"created_by"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []Member `json:"members"`
	// CreatorNickname labels the caller inside the new group.
	CreatorNickname string `json:"creator_nickname,omitempty"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

// ListGroupsRequest lists the caller's groups, newest first.
type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type AddMembersRequest struct {
	GroupID string   `json:"group_id"`
	Members []Member `json:"members"`
}

type AddMembersResponse struct {
	Group *Group `json:"group"`
}

type Expense struct {
	ID           string     `json:"id"`
	GroupID      string     `json:"group_id"`
	Description  string     `json:"description"`
	Amount       string     `json:"amount"`
	Payer        string     `json:"payer"`
	Participants []string   `json:"participants"`
	Date         *Timestamp `json:"date,omitempty"`
}

type AddGroupExpenseRequest struct {
	GroupID     string `json:"group_id"`
	Description string `json:"description"`
	// Amount is a positive decimal string, e.g. "12.50".
	Amount string `json:"amount"`
	// Payer defaults to the caller.
	Payer        string     `json:"payer,omitempty"`
	Participants []string   `json:"participants"`
	Date         *Timestamp `json:"date,omitempty"`
}

type AddGroupExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListGroupExpensesRequest struct {
	GroupID string `json:"group_id"`
}

type ListGroupExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"group_id"`
}

// MemberBalance amounts are rounded to two places. Balance is signed:
// positive means the member is owed money.
type MemberBalance struct {
	MemberID  string `json:"member_id"`
	Label     string `json:"label"`
	Paid      string `json:"paid"`
	Owed      string `json:"owed"`
	Balance   string `json:"balance"`
	Formatted string `json:"formatted"`
}

type GetGroupBalancesResponse struct {
	GroupID  string           `json:"group_id"`
	Balances []*MemberBalance `json:"balances"`
}
