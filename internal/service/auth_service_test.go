package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splittrack/internal/auth"
	"github.com/mmynk/splittrack/internal/middleware"
	"github.com/mmynk/splittrack/internal/storage/sqlite"
	"github.com/mmynk/splittrack/pkg/api"
	"github.com/mmynk/splittrack/pkg/api/apiconnect"
)

// setupAuthServer wires the real bearer-token interceptor in front of the
// auth and group services.
func setupAuthServer(t *testing.T) (apiconnect.AuthServiceClient, apiconnect.GroupServiceClient) {
	t.Helper()

	dir, err := os.MkdirTemp("", "splittrack-auth-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	store, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("failed to create store: %v", err)
	}

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	interceptors := connect.WithInterceptors(middleware.RequireAuth(jwtManager,
		apiconnect.AuthServiceRegisterProcedure,
		apiconnect.AuthServiceLoginProcedure,
	))

	authSvc := NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, logger)
	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAuthServiceHandler(authSvc, interceptors))
	mux.Handle(apiconnect.NewGroupServiceHandler(NewGroupService(store), interceptors))
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		store.Close()
		os.RemoveAll(dir)
	})

	return apiconnect.NewAuthServiceClient(http.DefaultClient, server.URL),
		apiconnect.NewGroupServiceClient(http.DefaultClient, server.URL)
}

func withToken[T any](token string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthFlow(t *testing.T) {
	authClient, groupClient := setupAuthServer(t)
	ctx := context.Background()

	reg, err := authClient.Register(ctx, connect.NewRequest(&api.RegisterRequest{
		Email:       "Alice@Example.com",
		DisplayName: "Alice",
		Password:    "password123",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if reg.Msg.Token == "" {
		t.Fatal("expected token from Register")
	}
	if reg.Msg.User.Email != alice {
		t.Errorf("email: expected %s, got %s", alice, reg.Msg.User.Email)
	}

	login, err := authClient.Login(ctx, connect.NewRequest(&api.LoginRequest{Email: alice, Password: "password123"}))
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	me, err := authClient.GetCurrentUser(ctx, withToken(login.Msg.Token, &api.GetCurrentUserRequest{}))
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if me.Msg.User.ID != reg.Msg.User.ID || me.Msg.User.DisplayName != "Alice" || me.Msg.User.CreatedAt == nil {
		t.Errorf("unexpected current user %+v", me.Msg.User)
	}

	group, err := groupClient.CreateGroup(ctx, withToken(login.Msg.Token, &api.CreateGroupRequest{Name: "Home"}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if group.Msg.Group.CreatedBy != alice || len(group.Msg.Group.Members) != 1 {
		t.Errorf("expected group owned by %s, got %+v", alice, group.Msg.Group)
	}
}

func TestAuthErrors(t *testing.T) {
	authClient, groupClient := setupAuthServer(t)
	ctx := context.Background()

	_, err := authClient.Register(ctx, connect.NewRequest(&api.RegisterRequest{
		Email: bob, DisplayName: "Bob", Password: "password123",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name string
		call func() error
		want connect.Code
	}{
		{"duplicate email", func() error {
			_, err := authClient.Register(ctx, connect.NewRequest(&api.RegisterRequest{Email: "BOB@example.com", DisplayName: "B", Password: "password123"}))
			return err
		}, connect.CodeAlreadyExists},
		{"weak password", func() error {
			_, err := authClient.Register(ctx, connect.NewRequest(&api.RegisterRequest{Email: carol, DisplayName: "C", Password: "short"}))
			return err
		}, connect.CodeInvalidArgument},
		{"invalid email", func() error {
			_, err := authClient.Register(ctx, connect.NewRequest(&api.RegisterRequest{Email: "not-an-email", DisplayName: "C", Password: "password123"}))
			return err
		}, connect.CodeInvalidArgument},
		{"missing display name", func() error {
			_, err := authClient.Register(ctx, connect.NewRequest(&api.RegisterRequest{Email: carol, Password: "password123"}))
			return err
		}, connect.CodeInvalidArgument},
		{"wrong password", func() error {
			_, err := authClient.Login(ctx, connect.NewRequest(&api.LoginRequest{Email: bob, Password: "password124"}))
			return err
		}, connect.CodeUnauthenticated},
		{"unknown email", func() error {
			_, err := authClient.Login(ctx, connect.NewRequest(&api.LoginRequest{Email: dave, Password: "password123"}))
			return err
		}, connect.CodeUnauthenticated},
		{"no token", func() error {
			_, err := groupClient.ListGroups(ctx, connect.NewRequest(&api.ListGroupsRequest{}))
			return err
		}, connect.CodeUnauthenticated},
		{"bad token", func() error {
			_, err := authClient.GetCurrentUser(ctx, withToken("garbage", &api.GetCurrentUserRequest{}))
			return err
		}, connect.CodeUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCode(t, tt.call(), tt.want)
		})
	}
}
