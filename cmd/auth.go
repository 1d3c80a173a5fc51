package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/schedcli/internal/logging"
	"github.com/teemow/schedcli/internal/render"
)

func newLoginCmd(c *cli) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Long: `Log in with email and password. The returned token is stored in the
session file and used by every other command until logout.

When --password is omitted it is read from standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readPassword(cmd, "Password: "); err != nil {
					return err
				}
			}
			if err := c.app.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			st := c.app.State()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as user %d\n", st.UserID())
			return render.WriteWeek(cmd.OutOrStdout(), c.app.Week())
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(c *cli) *cobra.Command {
	var username, email, password string
	var login bool

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account. Without --login you stay logged out and log in
separately; with --login the new account is logged in right away.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Register(cmd.Context(), username, email, password, login); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !login {
				fmt.Fprintln(out, "Registered. Log in with `schedcli login`.")
				return nil
			}
			fmt.Fprintf(out, "Registered and logged in as user %d\n", c.app.State().UserID())
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "User name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	cmd.Flags().BoolVar(&login, "login", false, "Log in after registering")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// A fetch failure does not change who is logged in.
			if err := c.app.Start(cmd.Context()); err != nil {
				c.logger.Warn("failed to refresh schedule data", logging.Err(err))
			}
			return render.WriteWhoami(cmd.OutOrStdout(), c.app.State(), c.now())
		},
	}
}
