package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type failingTouchStore struct {
	*MemoryStore
}

func (failingTouchStore) TouchLastLogin(context.Context, int64, time.Time) error {
	return errors.New("read-only replica")
}

func fastHasher() *PasswordHasher { return &PasswordHasher{iterations: 1000} }

func seedUser(t *testing.T, store *MemoryStore, h *PasswordHasher, email, password string, role Role) User {
	t.Helper()
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	u, err := store.CreateUser(context.Background(), User{
		Email: email, FirstName: "Test", LastName: "User", Role: role, IsActive: true, PasswordHash: hash,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func newTestService(t *testing.T, store IdentityStore) *Service {
	t.Helper()
	svc, err := NewService(store, fastHasher(), newTestTokens(t, &clock{t: time.Now()}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestLoginSuccess(t *testing.T) {
	store := NewMemoryStore()
	u := seedUser(t, store, fastHasher(), "admin@enterprise.com", "admin123", RoleAdmin)
	svc := newTestService(t, store)

	sess, err := svc.Login(context.Background(), "  Admin@Enterprise.com ", "admin123", Origin{IP: "10.0.0.1", UserAgent: "curl"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.User.ID != u.ID || sess.Tokens.AccessToken == "" || sess.Tokens.ExpiresIn != 28800 {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if sess.Origin.IP != "10.0.0.1" || sess.CreatedAt.IsZero() {
		t.Fatalf("session metadata missing: %+v", sess)
	}
	stored, _ := store.UserByID(context.Background(), u.ID)
	if stored.LastLogin == nil {
		t.Fatal("expected last_login to be stamped")
	}
	claims, err := svc.Tokens().Verify(sess.Tokens.AccessToken)
	if err != nil || claims.Role != RoleAdmin {
		t.Fatalf("unexpected claims %+v err=%v", claims, err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	store := NewMemoryStore()
	h := fastHasher()
	u := seedUser(t, store, h, "dev@enterprise.com", "emp123", RoleEmployee)
	disabled := false
	if _, err := store.UpdateUser(context.Background(), u.ID, UserUpdate{IsActive: &disabled}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	seedUser(t, store, h, "ok@enterprise.com", "emp123", RoleEmployee)
	svc := newTestService(t, store)
	ctx := context.Background()

	for _, tc := range []struct{ email, password string }{
		{"ok@enterprise.com", "wrong"},
		{"nobody@enterprise.com", "emp123"},
		{"dev@enterprise.com", "emp123"},
	} {
		_, err := svc.Login(ctx, tc.email, tc.password, Origin{})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login(%s) expected ErrInvalidCredentials, got %v", tc.email, err)
		}
	}
	if _, err := svc.Login(ctx, "", "x", Origin{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLoginSurvivesLastLoginFailure(t *testing.T) {
	mem := NewMemoryStore()
	seedUser(t, mem, fastHasher(), "m@enterprise.com", "manager123", RoleManager)
	svc := newTestService(t, failingTouchStore{mem})

	sess, err := svc.Login(context.Background(), "m@enterprise.com", "manager123", Origin{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.User.LastLogin != nil {
		t.Fatal("last_login should stay unset when the store rejects it")
	}
}

func TestServiceRefreshUsesStoreRole(t *testing.T) {
	store := NewMemoryStore()
	u := seedUser(t, store, fastHasher(), "e@enterprise.com", "emp123", RoleEmployee)
	svc := newTestService(t, store)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "e@enterprise.com", "emp123", Origin{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	promoted := RoleManager
	if _, err := store.UpdateUser(ctx, u.ID, UserUpdate{Role: &promoted}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	pair, user, err := svc.Refresh(ctx, sess.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if user.Role != RoleManager {
		t.Fatalf("expected manager, got %s", user.Role)
	}
	claims, _ := svc.Tokens().Verify(pair.AccessToken)
	if claims.Role != RoleManager {
		t.Fatalf("expected refreshed token to carry manager, got %s", claims.Role)
	}
	if _, _, err := svc.Refresh(ctx, " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
