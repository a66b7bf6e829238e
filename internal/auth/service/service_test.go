package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/checkvibe/gatekeeper/internal/auth/domain"
	"github.com/checkvibe/gatekeeper/internal/auth/repository"
	"github.com/checkvibe/gatekeeper/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (authdomain.Service, *gorm.DB) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&authdomain.User{}, &authdomain.Session{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo, sessionRepo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	return New(zap.NewNop(), repo, sessionRepo, node, nil), dbConn
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if user.Plan != "none" {
		t.Fatalf("expected default plan none, got %s", user.Plan)
	}

	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	if err != authdomain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct-password",
	})
	if err != authdomain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  authdomain.CreateUserRequest
		want error
	}{
		{"bad email", authdomain.CreateUserRequest{Email: "nope", Password: "long-enough"}, authdomain.ErrInvalidEmail},
		{"email too long", authdomain.CreateUserRequest{Email: strings.Repeat("a", 320) + "@example.com", Password: "long-enough"}, authdomain.ErrInvalidEmail},
		{"short password", authdomain.CreateUserRequest{Email: "a@example.com", Password: "short"}, authdomain.ErrWeakPassword},
		{"unknown plan", authdomain.CreateUserRequest{Email: "a@example.com", Password: "long-enough", Plan: "gold"}, authdomain.ErrInvalidPlan},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateUser(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "Dup@Example.com", Password: "long-enough", Plan: "Pro"}); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if _, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "dup@example.com", Password: "long-enough"}); !errors.Is(err, authdomain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLoginAuthenticateLogout(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{
		Email:    "carol@example.com",
		Password: "carol-password",
		Plan:     "starter",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	result, err := svc.Login(ctx, authdomain.LoginRequest{Email: "CAROL@example.com", Password: "carol-password"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.RawToken == "" {
		t.Fatal("expected raw session token")
	}
	if result.User.Plan != "starter" {
		t.Fatalf("expected starter plan, got %s", result.User.Plan)
	}

	session, err := svc.Authenticate(ctx, result.RawToken)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if session.UserID != user.ID {
		t.Fatalf("expected session for %s, got %s", user.ID, session.UserID)
	}

	if _, err := svc.Authenticate(ctx, "bogus"); !errors.Is(err, authdomain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}

	if err := svc.Logout(ctx, result.RawToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := svc.Authenticate(ctx, result.RawToken); !errors.Is(err, authdomain.ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
	if err := svc.Logout(ctx, result.RawToken); !errors.Is(err, authdomain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession on second logout, got %v", err)
	}
}

func TestAuthenticateExpiredSession(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "dave@example.com", Password: "dave-password"}); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	result, err := svc.Login(ctx, authdomain.LoginRequest{Email: "dave@example.com", Password: "dave-password"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	past := time.Now().UTC().Add(-time.Minute)
	if err := conn.Model(&authdomain.Session{}).Where("id = ?", result.SessionID).Update("expires_at", past).Error; err != nil {
		t.Fatalf("failed to expire session: %v", err)
	}

	if _, err := svc.Authenticate(ctx, result.RawToken); !errors.Is(err, authdomain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestSetPlan(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "erin@example.com", Password: "erin-password"})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if err := svc.SetPlan(ctx, user.ID, "max"); err != nil {
		t.Fatalf("set plan failed: %v", err)
	}
	got, err := svc.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user failed: %v", err)
	}
	if got.Plan != "max" {
		t.Fatalf("expected plan max, got %s", got.Plan)
	}
	if err := svc.SetPlan(ctx, user.ID, "platinum"); !errors.Is(err, authdomain.ErrInvalidPlan) {
		t.Fatalf("expected ErrInvalidPlan, got %v", err)
	}
	if _, err := svc.GetUser(ctx, 12345); !errors.Is(err, authdomain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
