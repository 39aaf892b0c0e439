package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mmynk/splittrack/internal/calculator"
	"github.com/mmynk/splittrack/internal/middleware"
	"github.com/mmynk/splittrack/internal/models"
	"github.com/mmynk/splittrack/internal/storage"
	"github.com/mmynk/splittrack/internal/summary"
	"github.com/mmynk/splittrack/internal/telemetry"
	"github.com/mmynk/splittrack/pkg/api"
	"github.com/mmynk/splittrack/pkg/api/apiconnect"
)

const (
	defaultExpenseLimit = 20
	maxExpenseLimit     = 100
)

// BalanceService answers cross-group questions about one user.
type BalanceService struct {
	store     storage.Store
	formatter *summary.Formatter
	metrics   *telemetry.Metrics
}

var _ apiconnect.BalanceServiceHandler = (*BalanceService)(nil)

// NewBalanceService creates a BalanceService. A nil formatter means USD.
func NewBalanceService(store storage.Store, formatter *summary.Formatter, metrics *telemetry.Metrics) *BalanceService {
	if formatter == nil {
		formatter = defaultFormatter()
	}
	return &BalanceService{store: store, formatter: formatter, metrics: metrics}
}

// GetUserTotals returns what a user owes and is owed across groups, with a
// per-counterparty breakdown. Only groups the caller belongs to are counted.
func (s *BalanceService) GetUserTotals(ctx context.Context, req *connect.Request[api.GetUserTotalsRequest]) (*connect.Response[api.GetUserTotalsResponse], error) {
	caller := middleware.GetEmail(ctx)
	uid := models.NormalizeMemberID(req.Msg.UserID)
	if uid == "" {
		uid = caller
	}
	slog.InfoContext(ctx, "GetUserTotals request received", "user_id", uid, "uid", caller)

	ctx, span := telemetry.Tracer().Start(ctx, "BalanceService.GetUserTotals",
		trace.WithAttributes(attribute.String("user_id", uid)))
	defer span.End()

	report, err := s.userReport(ctx, caller, uid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.WarnContext(ctx, "GetUserTotals failed", "user_id", uid, "error", err)
		return nil, toConnectError(err)
	}

	breakdown := make([]*api.BreakdownEntry, len(report.Entries))
	for i, e := range report.Entries {
		breakdown[i] = &api.BreakdownEntry{
			CounterpartyID: e.CounterpartyID,
			Label:          e.Label,
			Amount:         e.Amount.StringFixed(summary.Places),
			Direction:      string(e.Direction),
			Text:           s.formatter.Describe(e),
		}
	}

	slog.InfoContext(ctx, "GetUserTotals successful", "user_id", uid, "counterparties", len(breakdown))
	return connect.NewResponse(&api.GetUserTotalsResponse{
		UserID:    report.UserID,
		TotalOwe:  report.TotalOwe.StringFixed(summary.Places),
		TotalOwed: report.TotalOwed.StringFixed(summary.Places),
		Net:       report.Net.StringFixed(summary.Places),
		Breakdown: breakdown,
	}), nil
}

// userReport computes uid's totals over the groups caller can see. A uid in
// none of those groups is unknown, even when it is the caller.
func (s *BalanceService) userReport(ctx context.Context, caller, uid string) (summary.UserReport, error) {
	groups, err := s.store.ListGroupsForMember(ctx, caller)
	if err != nil {
		return summary.UserReport{}, err
	}

	visible := make(map[string]bool, len(groups))
	known := false
	for _, g := range groups {
		visible[g.ID] = true
		if g.HasMember(uid) {
			known = true
		}
	}
	if !known {
		return summary.UserReport{}, fmt.Errorf("%w: %s", models.ErrUnknownUser, uid)
	}

	all, err := s.store.ListExpensesForParticipant(ctx, uid)
	if err != nil {
		return summary.UserReport{}, err
	}
	expenses := all[:0]
	for _, e := range all {
		if visible[e.GroupID] {
			expenses = append(expenses, e)
		}
	}

	totals, err := calculator.ComputeUserTotals(uid, expenses)
	s.metrics.ObserveComputation("user", err)
	if err != nil {
		return summary.UserReport{}, err
	}

	names, err := displayNames(ctx, s.store, totals.Counterparties())
	if err != nil {
		return summary.UserReport{}, err
	}
	return summary.BuildUserReport(totals, summary.NewLabeler(groups, names)), nil
}

// ListUserExpenses returns the caller's most recent expenses across all
// groups, as payer or participant.
func (s *BalanceService) ListUserExpenses(ctx context.Context, req *connect.Request[api.ListUserExpensesRequest]) (*connect.Response[api.ListUserExpensesResponse], error) {
	caller := middleware.GetEmail(ctx)

	limit := int(req.Msg.Limit)
	switch {
	case limit <= 0:
		limit = defaultExpenseLimit
	case limit > maxExpenseLimit:
		limit = maxExpenseLimit
	}
	slog.InfoContext(ctx, "ListUserExpenses request received", "uid", caller, "limit", limit)

	expenses, err := s.store.ListExpensesInvolving(ctx, caller, limit)
	if err != nil {
		slog.ErrorContext(ctx, "ListUserExpenses failed", "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.ListUserExpensesResponse{Expenses: toAPIExpenses(expenses)}), nil
}
