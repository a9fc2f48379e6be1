package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/services"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/sweeper"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, rm, err := ctx.ensureStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := rm.RunMigrations(cmd.Context(), db); err != nil {
				return fmt.Errorf("migration error: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newUserAddCommand(ctx *commandContext) *cobra.Command {
	var email, role string

	cmd := &cobra.Command{
		Use:   "useradd <username>",
		Short: "Create a user account, reading the password from the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword(cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return err
			}
			if isTerminal(stdinFd()) {
				again, err := promptPassword(cmd.ErrOrStderr(), "Repeat password: ")
				if err != nil {
					return err
				}
				if again != password {
					return errors.New("passwords do not match")
				}
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, rm, err := ctx.ensureStore(cmd.Context())
			if err != nil {
				return err
			}

			var emailPtr *string
			if email != "" {
				emailPtr = &email
			}

			users := services.NewUserService(db, rm, auth.NewBcryptHasher(cfg.BcryptCost), cfg.DBTimeout)
			u, err := users.Register(cmd.Context(), args[0], password, emailPtr, role)
			if err != nil {
				if errors.Is(err, common.ErrorAlreadyExists) {
					return fmt.Errorf("user %q already exists", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d, role %s)\n", u.Username, u.ID, u.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&role, "role", common.RoleUser, "Role: user or admin")
	return cmd
}

func newUserDelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "userdel <id>",
		Short: "Delete a user together with their sessions and library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, rm, err := ctx.ensureStore(cmd.Context())
			if err != nil {
				return err
			}

			users := services.NewUserService(db, rm, auth.NewBcryptHasher(cfg.BcryptCost), cfg.DBTimeout)
			if err := users.Delete(cmd.Context(), id); err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return fmt.Errorf("user %d not found", id)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted user %d\n", id)
			return nil
		},
	}
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired refresh tokens once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, rm, err := ctx.ensureStore(cmd.Context())
			if err != nil {
				return err
			}

			sw := sweeper.New(rm.RefreshTokens(db), cfg.SweepInterval, cfg.DBTimeout, time.Now, ctx.logger())
			n, err := sw.Sweep(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep error: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired refresh tokens\n", n)
			return nil
		},
	}
}
