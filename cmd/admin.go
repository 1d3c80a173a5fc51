package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/schedcli/internal/controller"
	"github.com/teemow/schedcli/internal/logging"
	"github.com/teemow/schedcli/internal/render"
)

func newAdminCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the schedules of other users (admin only)",
	}
	cmd.AddCommand(
		newAdminUsersCmd(c),
		newAdminSchedulesCmd(c),
		newAdminAddCmd(c),
		newAdminDeleteCmd(c),
	)
	return cmd
}

// requireAdmin restores the session and checks the admin capability. Fetch
// failures while restoring are logged; the admin panel loads on its own.
func (c *cli) requireAdmin(ctx context.Context) error {
	startErr := c.app.Start(ctx)
	st := c.app.State()
	if st.Mode == controller.ModeLoggedOut {
		if startErr != nil {
			return startErr
		}
		return errNotLoggedIn
	}
	if !st.Admin {
		return controller.ErrNotAdmin
	}
	if startErr != nil {
		c.logger.Warn("failed to load session data", logging.Err(startErr))
	}
	return nil
}

// selectUser selects userID in the admin panel. A failed fetch is not fatal
// for actions that re-fetch the selection afterwards.
func (c *cli) selectUser(ctx context.Context, userID int64) error {
	err := c.app.SelectUser(ctx, userID)
	if errors.Is(err, controller.ErrNotLoggedIn) || errors.Is(err, controller.ErrNotAdmin) {
		return err
	}
	return nil
}

func newAdminUsersCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireAdmin(cmd.Context()); err != nil {
				return err
			}
			if c.app.State().Users == nil {
				if err := c.app.LoadUsers(cmd.Context()); err != nil {
					return err
				}
			}
			return render.WriteUsers(cmd.OutOrStdout(), c.app.State().Users)
		},
	}
}

func newAdminSchedulesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "schedules USER_ID",
		Short: "List the schedule entries of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			if err := c.requireAdmin(cmd.Context()); err != nil {
				return err
			}
			selectErr := c.app.SelectUser(cmd.Context(), userID)
			if err := render.WriteSelection(cmd.OutOrStdout(), c.app.State().Selected, c.app.Location()); err != nil {
				return err
			}
			return selectErr
		},
	}
}

func newAdminAddCmd(c *cli) *cobra.Command {
	var f entryFlags

	cmd := &cobra.Command{
		Use:   "add USER_ID",
		Short: "Add an entry to a user's schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			in, err := f.input(c)
			if err != nil {
				return err
			}
			if err := c.requireAdmin(cmd.Context()); err != nil {
				return err
			}
			if err := c.selectUser(cmd.Context(), userID); err != nil {
				return err
			}
			if err := c.app.AdminCreateEntry(cmd.Context(), in); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schedule added")
			return render.WriteSelection(cmd.OutOrStdout(), c.app.State().Selected, c.app.Location())
		},
	}

	f.register(cmd.Flags())
	return cmd
}

func newAdminDeleteCmd(c *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete USER_ID SCHEDULE_ID",
		Short: "Delete an entry from a user's schedule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			id, err := parseID("schedule id", args[1])
			if err != nil {
				return err
			}
			if err := c.requireAdmin(cmd.Context()); err != nil {
				return err
			}
			if err := c.selectUser(cmd.Context(), userID); err != nil {
				return err
			}
			if !yes {
				ok, err := confirm(cmd, fmt.Sprintf("Delete schedule %d of user %d?", id, userID))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}
			if err := c.app.AdminDeleteEntry(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schedule %d deleted\n", id)
			return render.WriteSelection(cmd.OutOrStdout(), c.app.State().Selected, c.app.Location())
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
