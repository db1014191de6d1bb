package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"hulugan/backend/internal/domain"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      domain.RoleAdmin,
				BranchID:  "br-poblacion",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager("test-secret", time.Hour, "734591", store)
	_, err := manager.Login(domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", users[0].Password)
	}
}

func TestTokenCarriesBranchClaims(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Name:      "Elena Reyes",
				Role:      domain.RoleAdmin,
				BranchID:  "br-poblacion",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager("test-secret", time.Hour, "734591", store)
	resp, err := manager.Login(domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.BranchID != "br-poblacion" {
		t.Fatalf("expected branch in login response, got %q", resp.BranchID)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != domain.RoleAdmin {
		t.Fatalf("unexpected actor: %+v", actor)
	}
	if actor.BranchID != "br-poblacion" || actor.Name != "Elena Reyes" {
		t.Fatalf("expected branch and name claims, got %+v", actor)
	}
}

func TestCreateAdminStoresPasswordHash(t *testing.T) {
	store := &userStoreStub{users: map[string]domain.UserAccount{}}

	manager := NewAuthManager("test-secret", time.Hour, "734591", store)
	admin, err := manager.CreateAdmin(domain.AdminCreateRequest{
		Username: "bagumbayan",
		Password: "pass1234",
		Name:     "Marco Dizon",
		BranchID: "br-bagumbayan",
	})
	if err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	if admin.Username != "bagumbayan" || admin.BranchID != "br-bagumbayan" {
		t.Fatalf("unexpected admin %+v", admin)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	var found *domain.UserAccount
	for i := range users {
		if users[i].Username == "bagumbayan" {
			found = &users[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("expected admin to be saved")
	}
	if found.Password == "pass1234" {
		t.Fatalf("expected admin password to be hashed")
	}
	if !strings.HasPrefix(found.Password, "$2") {
		t.Fatalf("expected bcrypt hash prefix, got %s", found.Password)
	}

	resp, err := manager.Login(domain.LoginRequest{
		Username: "bagumbayan",
		Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("login with hashed admin failed: %v", err)
	}
	if resp.BranchID != "br-bagumbayan" {
		t.Fatalf("expected branch in login response, got %q", resp.BranchID)
	}
}

func TestCreateAdminRequiresBranch(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "734591", &userStoreStub{users: map[string]domain.UserAccount{}})

	_, err := manager.CreateAdmin(domain.AdminCreateRequest{
		Username: "nobranch",
		Password: "pass1234",
		Name:     "No Branch",
	})
	if err == nil {
		t.Fatalf("expected create admin without branch to fail")
	}
}

func TestManagerPINIsHashedAndStillValidates(t *testing.T) {
	store := &userStoreStub{users: map[string]domain.UserAccount{}}
	manager := NewAuthManager("test-secret", time.Hour, "654321", store)

	if manager.managerPIN == "654321" {
		t.Fatalf("expected manager pin to be stored as hash, got plain-text")
	}

	if !manager.ValidateManagerPIN("654321") {
		t.Fatalf("expected manager pin validation to succeed")
	}

	if manager.ValidateManagerPIN("111111") {
		t.Fatalf("expected wrong manager pin to fail")
	}
}
