package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestGateway(t *testing.T, c *clock) (*Gateway, *TokenService) {
	t.Helper()
	tokens := newTestTokens(t, c)
	return NewGateway(tokens, DefaultRegistry()), tokens
}

func TestGateAllowsPermittedCaller(t *testing.T) {
	gw, tokens := newTestGateway(t, &clock{t: time.Now()})
	pair, _ := tokens.Issue(Identity{UserID: 2, Email: "a@enterprise.com", Role: RoleAdmin})

	id, err := gw.Gate("Bearer "+pair.AccessToken, gw.Permission(PermProjectDelete))
	if err != nil {
		t.Fatalf("Gate: %v", err)
	}
	if id.UserID != 2 || id.Role != RoleAdmin || id.Email != "a@enterprise.com" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestGateForbidsMissingPermission(t *testing.T) {
	gw, tokens := newTestGateway(t, &clock{t: time.Now()})
	pair, _ := tokens.Issue(Identity{UserID: 5, Role: RoleEmployee})

	_, err := gw.Gate("Bearer "+pair.AccessToken, gw.Permission(PermProjectDelete))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestGateExpiredIsAuthenticationFailure(t *testing.T) {
	c := &clock{t: time.Now()}
	gw, tokens := newTestGateway(t, c)
	pair, _ := tokens.Issue(Identity{UserID: 5, Role: RoleEmployee})
	c.t = c.t.Add(9 * time.Hour)

	_, err := gw.Gate("Bearer "+pair.AccessToken, gw.Permission(PermProjectDelete))
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if errors.Is(err, ErrForbidden) {
		t.Fatal("expired token must not reach authorization")
	}
}

func TestGateRejectsRefreshTokenAsBearer(t *testing.T) {
	gw, tokens := newTestGateway(t, &clock{t: time.Now()})
	pair, _ := tokens.Issue(Identity{UserID: 5, Role: RoleAdmin})

	if _, err := gw.Authenticate("Bearer " + pair.RefreshToken); !errors.Is(err, ErrTokenWrongType) {
		t.Fatalf("expected ErrTokenWrongType, got %v", err)
	}
}

func TestGateStopsAtFirstFailingCheck(t *testing.T) {
	gw, tokens := newTestGateway(t, &clock{t: time.Now()})
	pair, _ := tokens.Issue(Identity{UserID: 5, Role: RoleEmployee})

	ran := false
	_, err := gw.Gate("Bearer "+pair.AccessToken,
		gw.Role(RoleAdmin),
		func(IdentityContext) error { ran = true; return nil },
	)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if ran {
		t.Fatal("later check ran after a failure")
	}
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		token  string
		err    error
	}{
		{"Bearer abc", "abc", nil},
		{"bearer   abc  ", "abc", nil},
		{"", "", ErrMissingToken},
		{"Bearer ", "", ErrMissingToken},
		{"Basic dXNlcjpwYXNz", "", ErrMissingToken},
		{"Bearer", "", ErrMissingToken},
		{"Token abc", "", ErrMissingToken},
	}
	for _, tc := range cases {
		got, err := ExtractBearer(tc.header)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("ExtractBearer(%q) err=%v, want %v", tc.header, err, tc.err)
			}
			continue
		}
		if err != nil || got != tc.token {
			t.Fatalf("ExtractBearer(%q)=%q,%v want %q", tc.header, got, err, tc.token)
		}
	}
}

func TestRequireHelpers(t *testing.T) {
	gw := NewGateway(nil, DefaultRegistry())
	mgr := IdentityContext{UserID: 3, Role: RoleManager}
	emp := IdentityContext{UserID: 4, Role: RoleEmployee}

	if err := gw.RequireAnyPermission(emp, PermUserUpdate, PermUserUpdateOwn); err != nil {
		t.Fatalf("expected any-permission pass, got %v", err)
	}
	if err := gw.RequireAnyPermission(emp, PermAuditRead, PermSystemConfig); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := gw.RequireRole(mgr, RoleAdmin, RoleManager); err != nil {
		t.Fatalf("expected role pass, got %v", err)
	}
	if err := gw.Authorize(emp, OwnsUserData(4)); err != nil {
		t.Fatalf("expected own data access, got %v", err)
	}
	if err := gw.Authorize(emp, OwnsUserData(3)); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := gw.Authorize(mgr, OwnsUserData(999)); err != nil {
		t.Fatalf("manager should access any user, got %v", err)
	}
}

func TestModifiesProject(t *testing.T) {
	gw := NewGateway(nil, DefaultRegistry())
	p := ProjectRef{ID: 10, CreatorID: 2, AssigneeID: 3}

	if err := gw.Authorize(IdentityContext{UserID: 2, Role: RoleManager}, gw.Permission(PermProjectUpdate), ModifiesProject(p)); err != nil {
		t.Fatalf("creator manager should pass, got %v", err)
	}
	if err := gw.Authorize(IdentityContext{UserID: 4, Role: RoleManager}, ModifiesProject(p)); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	// employees hold no project.update, so the permission check fails first
	if err := gw.Authorize(IdentityContext{UserID: 3, Role: RoleEmployee}, gw.Permission(PermProjectUpdate), ModifiesProject(p)); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
