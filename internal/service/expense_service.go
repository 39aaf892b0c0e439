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

	"github.com/mmynk/splittrack/internal/middleware"
	"github.com/mmynk/splittrack/internal/models"
	"github.com/mmynk/splittrack/internal/storage"
	"github.com/mmynk/splittrack/pkg/api"
	"github.com/mmynk/splittrack/pkg/api/apiconnect"
)

// ExpenseService implements the Connect ExpenseService: the caller's
// personal ledger. Entries never reach group balances.
type ExpenseService struct {
	store storage.LedgerStore
}

var _ apiconnect.ExpenseServiceHandler = (*ExpenseService)(nil)

func NewExpenseService(store storage.LedgerStore) *ExpenseService {
	return &ExpenseService{store: store}
}

// AddExpense records an entry owned by the caller.
func (s *ExpenseService) AddExpense(ctx context.Context, req *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error) {
	caller := middleware.GetEmail(ctx)
	slog.InfoContext(ctx, "AddExpense request received",
		"amount", req.Msg.Amount,
		"category", req.Msg.Category,
		"uid", caller,
	)

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Msg.Amount))
	if err != nil {
		return nil, toConnectError(fmt.Errorf("%w: amount %q is not a decimal number", models.ErrInvalidExpense, req.Msg.Amount))
	}

	expense := &models.Expense{
		UserID:      caller,
		Description: req.Msg.Description,
		Amount:      amount,
		Category:    req.Msg.Category,
		Date:        req.Msg.Date.UnixSeconds(),
	}
	if expense.Date == 0 {
		expense.Date = time.Now().Unix()
	}
	expense.Normalize()
	if err := expense.Validate(); err != nil {
		slog.WarnContext(ctx, "AddExpense rejected", "error", err)
		return nil, toConnectError(err)
	}

	if err := s.store.CreatePersonalExpense(ctx, expense); err != nil {
		slog.ErrorContext(ctx, "AddExpense failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.InfoContext(ctx, "Personal expense created", "expense_id", expense.ID)
	return connect.NewResponse(&api.AddExpenseResponse{Expense: toAPIPersonalExpense(expense)}), nil
}

// ListExpenses returns the caller's entries, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	caller := middleware.GetEmail(ctx)
	slog.InfoContext(ctx, "ListExpenses request received", "uid", caller)

	expenses, err := s.store.ListPersonalExpenses(ctx, caller)
	if err != nil {
		slog.ErrorContext(ctx, "ListExpenses failed", "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*api.PersonalExpense, len(expenses))
	for i := range expenses {
		out[i] = toAPIPersonalExpense(&expenses[i])
	}
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: out}), nil
}

// DeleteExpense removes one of the caller's entries. Someone else's entry
// looks the same as a missing one.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	caller := middleware.GetEmail(ctx)
	slog.InfoContext(ctx, "DeleteExpense request received", "expense_id", req.Msg.ExpenseID, "uid", caller)

	if req.Msg.ExpenseID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("expense_id required"))
	}

	if err := s.store.DeletePersonalExpense(ctx, caller, req.Msg.ExpenseID); err != nil {
		slog.WarnContext(ctx, "DeleteExpense failed", "expense_id", req.Msg.ExpenseID, "error", err)
		return nil, toConnectError(err)
	}

	slog.InfoContext(ctx, "Personal expense deleted", "expense_id", req.Msg.ExpenseID)
	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}
