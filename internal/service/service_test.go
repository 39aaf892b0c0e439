package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splittrack/internal/cache"
	"github.com/mmynk/splittrack/internal/events"
	"github.com/mmynk/splittrack/internal/middleware"
	"github.com/mmynk/splittrack/internal/storage/sqlite"
	"github.com/mmynk/splittrack/pkg/api"
	"github.com/mmynk/splittrack/pkg/api/apiconnect"
)

const identityHeader = "X-Test-Identity"

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
	carol = "carol@example.com"
	dave  = "dave@example.com"
)

// testAuthInterceptor puts the identity named in identityHeader into the
// context, defaulting to alice.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			email := req.Header().Get(identityHeader)
			if email == "" {
				email = alice
			}
			return next(middleware.WithIdentity(ctx, "id-"+email, email), req)
		}
	}
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu      sync.Mutex
	events  []*events.ExpenseCreated
	members []*events.MembersAdded
}

func (p *recordingPublisher) PublishExpenseCreated(_ context.Context, msg *events.ExpenseCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
	return nil
}

func (p *recordingPublisher) PublishMembersAdded(_ context.Context, msg *events.MembersAdded) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.members = append(p.members, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) publishedMembers() []*events.MembersAdded {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*events.MembersAdded(nil), p.members...)
}

func (p *recordingPublisher) published() []*events.ExpenseCreated {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*events.ExpenseCreated(nil), p.events...)
}

type testServer struct {
	group     apiconnect.GroupServiceClient
	balance   apiconnect.BalanceServiceClient
	expense   apiconnect.ExpenseServiceClient
	store     *sqlite.SQLiteStore
	balances  *cache.GroupBalances
	publisher *recordingPublisher
}

// setupTestServer serves GroupService, BalanceService and ExpenseService
// over a temp SQLite database.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	dir, err := os.MkdirTemp("", "splittrack-service-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	store, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("failed to create store: %v", err)
	}

	balances := cache.NewGroupBalances(time.Minute, nil)
	publisher := &recordingPublisher{}

	interceptors := connect.WithInterceptors(testAuthInterceptor())
	groupSvc := NewGroupService(store,
		WithBalanceCache(balances),
		WithPublisher(publisher, "test"),
	)
	balanceSvc := NewBalanceService(store, nil, nil)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewGroupServiceHandler(groupSvc, interceptors))
	mux.Handle(apiconnect.NewBalanceServiceHandler(balanceSvc, interceptors))
	mux.Handle(apiconnect.NewExpenseServiceHandler(NewExpenseService(store), interceptors))
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		store.Close()
		os.RemoveAll(dir)
	})

	return &testServer{
		group:     apiconnect.NewGroupServiceClient(http.DefaultClient, server.URL),
		balance:   apiconnect.NewBalanceServiceClient(http.DefaultClient, server.URL),
		expense:   apiconnect.NewExpenseServiceClient(http.DefaultClient, server.URL),
		store:     store,
		balances:  balances,
		publisher: publisher,
	}
}

// as builds a request sent by email.
func as[T any](email string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set(identityHeader, email)
	return req
}

// createGroup creates a group owned by alice with the given other members.
func (s *testServer) createGroup(t *testing.T, name string, members ...api.Member) string {
	t.Helper()
	resp, err := s.group.CreateGroup(context.Background(), as(alice, &api.CreateGroupRequest{
		Name:    name,
		Members: members,
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg.Group.ID
}

func (s *testServer) addExpense(t *testing.T, groupID, amount, payer string, participants ...string) *api.Expense {
	t.Helper()
	resp, err := s.group.AddGroupExpense(context.Background(), as(alice, &api.AddGroupExpenseRequest{
		GroupID:      groupID,
		Description:  "Dinner",
		Amount:       amount,
		Payer:        payer,
		Participants: participants,
	}))
	if err != nil {
		t.Fatalf("AddGroupExpense failed: %v", err)
	}
	return resp.Msg.Expense
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("expected %v, got %v (%v)", want, got, err)
	}
}
