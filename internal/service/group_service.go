package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mmynk/splittrack/internal/cache"
	"github.com/mmynk/splittrack/internal/calculator"
	"github.com/mmynk/splittrack/internal/events"
	"github.com/mmynk/splittrack/internal/middleware"
	"github.com/mmynk/splittrack/internal/models"
	"github.com/mmynk/splittrack/internal/storage"
	"github.com/mmynk/splittrack/internal/summary"
	"github.com/mmynk/splittrack/internal/telemetry"
	"github.com/mmynk/splittrack/pkg/api"
	"github.com/mmynk/splittrack/pkg/api/apiconnect"
)

const maxGroupNameLength = 100

// GroupService implements the Connect GroupService
type GroupService struct {
	store     storage.Store
	balances  *cache.GroupBalances
	publisher events.Publisher
	formatter *summary.Formatter
	metrics   *telemetry.Metrics
	origin    string
}

var _ apiconnect.GroupServiceHandler = (*GroupService)(nil)

// GroupOption configures optional GroupService collaborators.
type GroupOption func(*GroupService)

// WithBalanceCache caches computed group balances between writes.
func WithBalanceCache(c *cache.GroupBalances) GroupOption {
	return func(s *GroupService) { s.balances = c }
}

// WithPublisher announces new expenses and members to other replicas. origin identifies
// this replica in the events it sends.
func WithPublisher(p events.Publisher, origin string) GroupOption {
	return func(s *GroupService) {
		s.publisher = p
		s.origin = origin
	}
}

func WithFormatter(f *summary.Formatter) GroupOption {
	return func(s *GroupService) { s.formatter = f }
}

func WithGroupMetrics(m *telemetry.Metrics) GroupOption {
	return func(s *GroupService) { s.metrics = m }
}

// NewGroupService creates a new GroupService with the given storage backend.
// Without options there is no cache, events are dropped and amounts are
// formatted in USD.
func NewGroupService(store storage.Store, opts ...GroupOption) *GroupService {
	s := &GroupService{store: store, publisher: events.Noop{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.formatter == nil {
		s.formatter = defaultFormatter()
	}
	return s
}

// CreateGroup creates a new group. The caller is always a member.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	caller := middleware.GetEmail(ctx)
	name := strings.TrimSpace(req.Msg.Name)
	slog.InfoContext(ctx, "CreateGroup request received",
		"name", name,
		"members_count", len(req.Msg.Members),
		"uid", caller,
	)

	// Validate input
	if name == "" || len(name) > maxGroupNameLength {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("name must be 1-%d characters", maxGroupNameLength))
	}

	members := fromAPIMembers(req.Msg.Members)
	group := &models.Group{Name: name, Members: members, CreatedBy: caller}
	if !group.HasMember(caller) {
		group.Members = append(group.Members, models.Member{ID: caller, Nickname: req.Msg.CreatorNickname})
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.ErrorContext(ctx, "CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.InfoContext(ctx, "Group created", "group_id", group.ID)
	return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(group)}), nil
}

// GetGroup retrieves a group the caller belongs to.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	slog.InfoContext(ctx, "GetGroup request received", "group_id", req.Msg.GroupID)

	group, err := s.groupForCaller(ctx, req.Msg.GroupID)
	if err != nil {
		slog.WarnContext(ctx, "GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.GetGroupResponse{Group: toAPIGroup(group)}), nil
}

// ListGroups returns the caller's groups, newest first.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	caller := middleware.GetEmail(ctx)
	slog.InfoContext(ctx, "ListGroups request received", "uid", caller)

	groups, err := s.store.ListGroupsForMember(ctx, caller)
	if err != nil {
		slog.ErrorContext(ctx, "ListGroups failed", "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*api.Group, len(groups))
	for i, g := range groups {
		out[i] = toAPIGroup(g)
	}

	slog.InfoContext(ctx, "ListGroups successful", "count", len(groups))
	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// AddMembers adds members to a group. Existing members keep their nickname.
func (s *GroupService) AddMembers(ctx context.Context, req *connect.Request[api.AddMembersRequest]) (*connect.Response[api.AddMembersResponse], error) {
	slog.InfoContext(ctx, "AddMembers request received",
		"group_id", req.Msg.GroupID,
		"members_count", len(req.Msg.Members),
	)

	group, err := s.groupForCaller(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	members := fromAPIMembers(req.Msg.Members)
	if len(members) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("at least one member required"))
	}

	if err := s.store.AddGroupMembers(ctx, group.ID, members); err != nil {
		slog.ErrorContext(ctx, "AddMembers failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(mapGroupNotFound(group.ID, err))
	}
	s.membersChanged(ctx, group.ID, members)

	updated, err := s.store.GetGroup(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(mapGroupNotFound(group.ID, err))
	}

	slog.InfoContext(ctx, "Members added", "group_id", group.ID, "members_count", len(updated.Members))
	return connect.NewResponse(&api.AddMembersResponse{Group: toAPIGroup(updated)}), nil
}

// AddGroupExpense records an expense. The payer defaults to the caller, and
// a payer or participant who is not yet a member is added to the group.
func (s *GroupService) AddGroupExpense(ctx context.Context, req *connect.Request[api.AddGroupExpenseRequest]) (*connect.Response[api.AddGroupExpenseResponse], error) {
	caller := middleware.GetEmail(ctx)
	slog.InfoContext(ctx, "AddGroupExpense request received",
		"group_id", req.Msg.GroupID,
		"amount", req.Msg.Amount,
		"participants_count", len(req.Msg.Participants),
	)

	group, err := s.groupForCaller(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Msg.Amount))
	if err != nil {
		return nil, toConnectError(fmt.Errorf("%w: amount %q is not a decimal number", models.ErrInvalidExpense, req.Msg.Amount))
	}

	expense := &models.GroupExpense{
		GroupID:      group.ID,
		Description:  req.Msg.Description,
		Amount:       amount,
		Payer:        req.Msg.Payer,
		Participants: req.Msg.Participants,
		Date:         req.Msg.Date.UnixSeconds(),
	}
	// Fill defaults, then validate
	if strings.TrimSpace(expense.Payer) == "" {
		expense.Payer = caller
	}
	if expense.Date == 0 {
		expense.Date = time.Now().Unix()
	}
	expense.Normalize()
	if err := expense.Validate(); err != nil {
		slog.WarnContext(ctx, "AddGroupExpense rejected", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	// New members are committed on their own, so they are announced even if
	// the expense write below fails.
	if err := s.addMissingMembers(ctx, group, expense); err != nil {
		return nil, toConnectError(err)
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.ErrorContext(ctx, "AddGroupExpense failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(mapGroupNotFound(group.ID, err))
	}
	s.balances.Invalidate(group.ID)

	// The expense is committed; a lost event only delays other replicas
	// until their cache entry is next invalidated or expires.
	event := events.NewExpenseCreated(expense.ID, group.ID, expense.Payer, s.origin)
	if err := s.publisher.PublishExpenseCreated(ctx, event); err != nil {
		slog.WarnContext(ctx, "Failed to publish expense event", "expense_id", expense.ID, "error", err)
	}

	slog.InfoContext(ctx, "Expense created", "expense_id", expense.ID, "group_id", group.ID)
	return connect.NewResponse(&api.AddGroupExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// addMissingMembers adds the expense's payer and participants that are not
// already members of group.
func (s *GroupService) addMissingMembers(ctx context.Context, group *models.Group, expense *models.GroupExpense) error {
	var missing []models.Member
	for _, id := range append([]string{expense.Payer}, expense.Participants...) {
		if !group.HasMember(id) {
			missing = append(missing, models.Member{ID: id})
			group.Members = append(group.Members, models.Member{ID: id})
		}
	}
	if len(missing) == 0 {
		return nil
	}

	if err := s.store.AddGroupMembers(ctx, group.ID, missing); err != nil {
		slog.ErrorContext(ctx, "Failed to add expense members to group", "group_id", group.ID, "error", err)
		return mapGroupNotFound(group.ID, err)
	}
	s.membersChanged(ctx, group.ID, missing)
	slog.InfoContext(ctx, "Auto-added expense members to group", "group_id", group.ID, "new_members", len(missing))
	return nil
}

// membersChanged drops the group's cached balances and tells other replicas
// to do the same.
func (s *GroupService) membersChanged(ctx context.Context, groupID string, members []models.Member) {
	s.balances.Invalidate(groupID)

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	if err := s.publisher.PublishMembersAdded(ctx, events.NewMembersAdded(groupID, ids, s.origin)); err != nil {
		slog.WarnContext(ctx, "Failed to publish members event", "group_id", groupID, "error", err)
	}
}

// ListGroupExpenses returns a group's expenses, newest first.
func (s *GroupService) ListGroupExpenses(ctx context.Context, req *connect.Request[api.ListGroupExpensesRequest]) (*connect.Response[api.ListGroupExpensesResponse], error) {
	slog.InfoContext(ctx, "ListGroupExpenses request received", "group_id", req.Msg.GroupID)

	group, err := s.groupForCaller(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	expenses, err := s.store.ListExpenses(ctx, group.ID)
	if err != nil {
		slog.ErrorContext(ctx, "ListGroupExpenses failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.ListGroupExpensesResponse{Expenses: toAPIExpenses(expenses)}), nil
}

// GetGroupBalances returns each member's net balance in a group, rounded to
// two places. Balances of every member sum to zero before rounding.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	groupID := req.Msg.GroupID
	slog.InfoContext(ctx, "GetGroupBalances request received", "group_id", groupID)

	ctx, span := telemetry.Tracer().Start(ctx, "GroupService.GetGroupBalances",
		trace.WithAttributes(attribute.String("group_id", groupID)))
	defer span.End()

	report, err := s.groupReport(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.WarnContext(ctx, "GetGroupBalances failed", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}

	// Build response
	out := make([]*api.MemberBalance, len(report.Members))
	for i, line := range report.Members {
		out[i] = &api.MemberBalance{
			MemberID:  line.MemberID,
			Label:     line.Label,
			Paid:      line.Paid.StringFixed(summary.Places),
			Owed:      line.Owed.StringFixed(summary.Places),
			Balance:   line.Balance.StringFixed(summary.Places),
			Formatted: s.formatter.Amount(line.Balance),
		}
	}

	slog.InfoContext(ctx, "GetGroupBalances successful", "group_id", groupID, "members_count", len(out))
	return connect.NewResponse(&api.GetGroupBalancesResponse{GroupID: groupID, Balances: out}), nil
}

func (s *GroupService) groupReport(ctx context.Context, groupID string) (summary.GroupReport, error) {
	group, err := s.groupForCaller(ctx, groupID)
	if err != nil {
		return summary.GroupReport{}, err
	}

	balances, err := s.balances.Get(ctx, group.ID, func(ctx context.Context) (calculator.GroupBalances, error) {
		expenses, err := s.store.ListExpenses(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		b, err := calculator.ComputeGroupBalances(group.ID, group.MemberIDs(), expenses)
		s.metrics.ObserveComputation("group", err)
		return b, err
	})
	if err != nil {
		return summary.GroupReport{}, err
	}

	names, err := displayNames(ctx, s.store, balances.IDs())
	if err != nil {
		return summary.GroupReport{}, err
	}
	// The group's own nicknames take precedence in its balance view.
	labels := summary.NewLabeler([]*models.Group{group}, names)
	return summary.BuildGroupReport(group.ID, balances, labels), nil
}

// groupForCaller loads a group and checks the caller is a member.
func (s *GroupService) groupForCaller(ctx context.Context, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("group_id required"))
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, mapGroupNotFound(groupID, err)
	}
	if !group.HasMember(middleware.GetEmail(ctx)) {
		return nil, errNotMember
	}
	return group, nil
}

// mapGroupNotFound turns a store miss into models.ErrUnknownGroup.
func mapGroupNotFound(groupID string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", models.ErrUnknownGroup, groupID)
	}
	return err
}

// displayNames looks up directory display names for ids.
func displayNames(ctx context.Context, users storage.UserStore, ids []string) (map[string]string, error) {
	found, err := users.GetUsersByEmails(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(found))
	for email, u := range found {
		names[email] = u.DisplayName
	}
	return names, nil
}

func defaultFormatter() *summary.Formatter {
	f, err := summary.NewFormatter("USD", "en-US")
	if err != nil {
		panic(err) // constant inputs
	}
	return f
}
