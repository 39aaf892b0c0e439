package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/splittrack/internal/models"
	"github.com/mmynk/splittrack/internal/storage"
)

// errNotMember is returned when the caller asks about a group they are not in.
var errNotMember = errors.New("caller is not a member of this group")

// toConnectError maps domain and storage errors onto Connect codes. Each
// query yields exactly one of these outcomes.
func toConnectError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	switch {
	case errors.Is(err, models.ErrInvalidExpense):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, models.ErrUnknownGroup),
		errors.Is(err, models.ErrUnknownUser),
		errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, errNotMember):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, storage.ErrUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
