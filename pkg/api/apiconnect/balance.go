package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splittrack/pkg/api"
)

// BalanceServiceName is the fully-qualified name of the BalanceService service.
const BalanceServiceName = "splittrack.v1.BalanceService"

// These constants are the fully-qualified names of the BalanceService RPCs.
// They are the HTTP paths the handler mounts and the client calls.
const (
	BalanceServiceGetUserTotalsProcedure    = "/splittrack.v1.BalanceService/GetUserTotals"
	BalanceServiceListUserExpensesProcedure = "/splittrack.v1.BalanceService/ListUserExpenses"
)

// BalanceServiceHandler is an implementation of the splittrack.v1.BalanceService service.
type BalanceServiceHandler interface {
	GetUserTotals(context.Context, *connect.Request[api.GetUserTotalsRequest]) (*connect.Response[api.GetUserTotalsResponse], error)
	ListUserExpenses(context.Context, *connect.Request[api.ListUserExpensesRequest]) (*connect.Response[api.ListUserExpensesResponse], error)
}

// NewBalanceServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewBalanceServiceHandler(svc BalanceServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(BalanceServiceGetUserTotalsProcedure, connect.NewUnaryHandler(BalanceServiceGetUserTotalsProcedure, svc.GetUserTotals, opts...))
	mux.Handle(BalanceServiceListUserExpensesProcedure, connect.NewUnaryHandler(BalanceServiceListUserExpensesProcedure, svc.ListUserExpenses, opts...))
	return "/" + BalanceServiceName + "/", mux
}

// BalanceServiceClient is a client for the splittrack.v1.BalanceService service.
type BalanceServiceClient interface {
	GetUserTotals(context.Context, *connect.Request[api.GetUserTotalsRequest]) (*connect.Response[api.GetUserTotalsResponse], error)
	ListUserExpenses(context.Context, *connect.Request[api.ListUserExpensesRequest]) (*connect.Response[api.ListUserExpensesResponse], error)
}

// NewBalanceServiceClient constructs a client for the
// splittrack.v1.BalanceService service. baseURL is the server's scheme and
// host without a trailing slash, e.g. "http://localhost:8080".
func NewBalanceServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) BalanceServiceClient {
	opts = clientOptions(opts)
	return &balanceServiceClient{
		getUserTotals:    connect.NewClient[api.GetUserTotalsRequest, api.GetUserTotalsResponse](httpClient, baseURL+BalanceServiceGetUserTotalsProcedure, opts...),
		listUserExpenses: connect.NewClient[api.ListUserExpensesRequest, api.ListUserExpensesResponse](httpClient, baseURL+BalanceServiceListUserExpensesProcedure, opts...),
	}
}

// balanceServiceClient implements BalanceServiceClient.
type balanceServiceClient struct {
	getUserTotals    *connect.Client[api.GetUserTotalsRequest, api.GetUserTotalsResponse]
	listUserExpenses *connect.Client[api.ListUserExpensesRequest, api.ListUserExpensesResponse]
}

// GetUserTotals calls splittrack.v1.BalanceService.GetUserTotals.
func (c *balanceServiceClient) GetUserTotals(ctx context.Context, req *connect.Request[api.GetUserTotalsRequest]) (*connect.Response[api.GetUserTotalsResponse], error) {
	return c.getUserTotals.CallUnary(ctx, req)
}

// ListUserExpenses calls splittrack.v1.BalanceService.ListUserExpenses.
func (c *balanceServiceClient) ListUserExpenses(ctx context.Context, req *connect.Request[api.ListUserExpensesRequest]) (*connect.Response[api.ListUserExpensesResponse], error) {
	return c.listUserExpenses.CallUnary(ctx, req)
}
