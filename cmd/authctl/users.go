package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/auth"
)

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print PBKDF2 material for a password (reads stdin when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordArg(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			material, err := auth.NewPasswordHasher().Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), material)
			return nil
		},
	}
}

func createUserCmd(g *globals) *cobra.Command {
	var in auth.NewUser
	var role string
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				pw, err := passwordArg(cmd.InOrStdin(), nil)
				if err != nil {
					return err
				}
				in.Password = pw
			}
			in.Role = auth.Role(role)

			users, db, err := g.userService()
			if err != nil {
				return err
			}
			defer db.Close()
			ctx, cancel := g.context(cmd)
			defer cancel()

			u, err := users.Create(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d <%s> role=%s\n", u.ID, u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleEmployee), "Role (admin, manager, employee)")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	return cmd
}

func setPasswordCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "set-password <email> [password]",
		Short: "Replace an account password",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordArg(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}
			users, db, err := g.userService()
			if err != nil {
				return err
			}
			defer db.Close()
			ctx, cancel := g.context(cmd)
			defer cancel()

			u, err := users.SetPassword(ctx, args[0], password)
			if errors.Is(err, auth.ErrNotFound) {
				return fmt.Errorf("no account registered for %s", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", u.Email)
			return nil
		},
	}
}

func seedDemoCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Create the demo accounts or reset their passwords",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, db, err := g.userService()
			if err != nil {
				return err
			}
			defer db.Close()
			ctx, cancel := g.context(cmd)
			defer cancel()

			seeded, err := auth.SeedDemo(ctx, users)
			if err != nil {
				return err
			}
			demo := auth.DemoUsers()
			for i, u := range seeded {
				fmt.Fprintf(cmd.OutOrStdout(), "%-30s %-9s %s\n", u.Email, u.Role, demo[i].Password)
			}
			return nil
		},
	}
}

// passwordArg takes the first argument or one line from r.
func passwordArg(r io.Reader, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}

func printList(w io.Writer, verb string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(w, "nothing %s\n", verb)
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "%s %s\n", verb, item)
	}
}
