package auth

import (
	"context"
	"errors"
)

// DemoUsers are the development accounts. Their passwords are public.
func DemoUsers() []NewUser {
	return []NewUser{
		{Email: "admin@enterprise.com", Password: "admin123", FirstName: "Admin", LastName: "Sistema", Role: RoleAdmin},
		{Email: "manager.tech@enterprise.com", Password: "manager123", FirstName: "Laura", LastName: "Tecnología", Role: RoleManager},
		{Email: "developer1@enterprise.com", Password: "emp123", FirstName: "Diego", LastName: "Desarrollo", Role: RoleEmployee},
	}
}

// SeedDemo creates the demo accounts, resetting the password of any that
// already exist so the published credentials keep working.
func SeedDemo(ctx context.Context, users *UserService) ([]User, error) {
	out := make([]User, 0, 3)
	for _, in := range DemoUsers() {
		u, err := users.Create(ctx, in)
		if errors.Is(err, ErrConflict) {
			u, err = users.SetPassword(ctx, in.Email, in.Password)
		}
		if err != nil {
			return out, err
		}
		out = append(out, u)
	}
	return out, nil
}
