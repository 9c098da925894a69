package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/migrate"
)

func migrateCmd(g *globals) *cobra.Command {
	var (
		migrationsDir string
		seedsDir      string
	)
	cmd := &cobra.Command{
		Use:   "migrate [up|down|seed|status]",
		Short: "Apply, roll back or list schema migrations",
		Args:  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{
			"up", "down", "seed", "status",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := g.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			migrations, seeds := migrate.Embedded()
			if migrationsDir != "" {
				migrations = os.DirFS(migrationsDir)
			}
			if seedsDir != "" {
				seeds = os.DirFS(seedsDir)
			}
			mgr := migrate.NewManager(db.DB(), migrate.WithSources(migrations, seeds))

			ctx, cancel := g.context(cmd)
			defer cancel()
			out := cmd.OutOrStdout()

			switch args[0] {
			case "up":
				applied, err := mgr.Up(ctx)
				if err != nil {
					return fmt.Errorf("migrate up: %w", err)
				}
				printList(out, "applied", applied)
			case "seed":
				applied, err := mgr.Seed(ctx)
				if err != nil {
					return fmt.Errorf("migrate seed: %w", err)
				}
				printList(out, "seeded", applied)
			case "down":
				name, err := mgr.Down(ctx)
				if err != nil {
					return fmt.Errorf("migrate down: %w", err)
				}
				fmt.Fprintf(out, "rolled back %s\n", name)
			case "status":
				history, err := mgr.Status(ctx)
				if err != nil {
					return fmt.Errorf("migrate status: %w", err)
				}
				for _, item := range history {
					fmt.Fprintln(out, item)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&migrationsDir, "migrations", "", "Directory of SQL migrations (default: embedded)")
	cmd.Flags().StringVar(&seedsDir, "seeds", "", "Directory of SQL seeds (default: embedded)")
	return cmd
}
