package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jiffoo/mall/internal/infrastructure/migration"
	"github.com/jiffoo/mall/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errSQLiteMigrations = errors.New("SQL migrations target postgres; sqlite databases are created by auto-migrate (run mallctl seed or the server with database.auto_migrate)")

func newMigrateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect schema migrations",
	}

	var upSteps int
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.withMigrator(func(m *migration.Migrator) error {
				if upSteps > 0 {
					return m.Steps(upSteps)
				}
				return m.Up()
			})
		},
	}
	up.Flags().IntVar(&upSteps, "steps", 0, "Apply at most this many migrations (0 applies all)")

	var downSteps int
	var downAll bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.withMigrator(func(m *migration.Migrator) error {
				if downAll {
					return m.Down()
				}
				if downSteps < 1 {
					return fmt.Errorf("--steps must be at least 1")
				}
				return m.Steps(-downSteps)
			})
		},
	}
	down.Flags().IntVar(&downSteps, "steps", 1, "Number of migrations to roll back")
	down.Flags().BoolVar(&downAll, "all", false, "Roll back every migration")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withMigrator(func(m *migration.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version: %d\ndirty: %t\n", v, dirty)
				return nil
			})
		},
	}

	gotoCmd := &cobra.Command{
		Use:   "goto VERSION",
		Short: "Migrate up or down to VERSION",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			target, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return a.withMigrator(func(m *migration.Migrator) error {
				return m.GoTo(uint(target))
			})
		},
	}

	force := &cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it, clearing the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			target, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return a.withMigrator(func(m *migration.Migrator) error {
				return m.Force(target)
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the migrations embedded in this binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := migration.ListMigrations(migrations.FS)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	var dir, description string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Write the next numbered up/down migration pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mf, err := migration.CreateMigration(dir, args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", mf.UpPath, mf.DownPath)
			return nil
		},
	}
	create.Flags().StringVar(&dir, "dir", "migrations", "Directory holding the migration files")
	create.Flags().StringVar(&description, "description", "", "Description written into the file header")

	cmd.AddCommand(up, down, version, gotoCmd, force, list, create)
	return cmd
}

func (a *app) withMigrator(fn func(*migration.Migrator) error) error {
	if a.cfg.Database.Driver == "sqlite" {
		return errSQLiteMigrations
	}
	m, err := migration.NewFromURL(a.cfg.Database.DSN(), a.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			a.log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return fn(m)
}
