package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/teemow/schedcli/internal/calendar"
	"github.com/teemow/schedcli/internal/controller"
	"github.com/teemow/schedcli/internal/render"
)

func newWeekCmd(c *cli) *cobra.Command {
	var (
		date       string
		prev, next int
	)

	cmd := &cobra.Command{
		Use:   "week",
		Short: "Show a week of your schedule as an hour grid",
		Long: `Show the week (Monday to Sunday) containing today, or the date given
with --date, as an hour grid. --prev and --next move the week back or forward.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			if date != "" {
				ref, err := calendar.ParseDate(date, c.app.Location())
				if err != nil {
					return err
				}
				c.app.SetReference(ref)
			}
			c.app.ShiftWeek(next - prev)
			return render.WriteWeek(cmd.OutOrStdout(), c.app.Week())
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Show the week containing this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&prev, "prev", 0, "Go back this many weeks")
	cmd.Flags().IntVar(&next, "next", 0, "Go forward this many weeks")
	return cmd
}

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all of your schedule entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			return render.WriteEntries(cmd.OutOrStdout(), c.app.State().Entries, c.app.Location(), c.now())
		},
	}
}

// entryFlags are the fields of a new schedule entry.
type entryFlags struct {
	title       string
	start       string
	end         string
	description string
	location    string
}

func (f *entryFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.title, "title", "", "Title")
	fs.StringVar(&f.start, "start", "", "Start time (YYYY-MM-DDTHH:MM in the display time zone, or RFC 3339)")
	fs.StringVar(&f.end, "end", "", "End time (YYYY-MM-DDTHH:MM in the display time zone, or RFC 3339)")
	fs.StringVar(&f.description, "description", "", "Description")
	fs.StringVar(&f.location, "location", "", "Location")
}

func (f *entryFlags) input(c *cli) (controller.EntryInput, error) {
	in := controller.EntryInput{
		Title:       f.title,
		Description: f.description,
		Location:    f.location,
	}
	var err error
	if f.start != "" {
		if in.Start, err = calendar.ParseDateTime(f.start, c.app.Location()); err != nil {
			return in, err
		}
	}
	if f.end != "" {
		if in.End, err = calendar.ParseDateTime(f.end, c.app.Location()); err != nil {
			return in, err
		}
	}
	return in, nil
}

func newAddCmd(c *cli) *cobra.Command {
	var f entryFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an entry to your schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := f.input(c)
			if err != nil {
				return err
			}
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			if !in.Start.IsZero() {
				c.app.SetReference(in.Start)
			}
			if err := c.app.CreateEntry(cmd.Context(), in); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schedule added")
			return render.WriteWeek(cmd.OutOrStdout(), c.app.Week())
		},
	}

	f.register(cmd.Flags())
	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete SCHEDULE_ID",
		Short: "Delete an entry from your schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("schedule id", args[0])
			if err != nil {
				return err
			}
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			if !yes {
				ok, err := confirm(cmd, fmt.Sprintf("Delete schedule %d?", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}
			if err := c.app.DeleteEntry(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schedule %d deleted\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}
