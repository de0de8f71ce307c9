package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"gymschedule/internal/calendar"
	"gymschedule/internal/config"
	"gymschedule/internal/cursor"
	"gymschedule/internal/rearrange"
	"gymschedule/internal/service"
	"gymschedule/internal/slots"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "timetable",
		Short:         "Gym timetable and reservation manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "configuration file")

	// withApp runs fn with a fully wired app and tears it down afterwards.
	withApp := func(fn func(ctx context.Context, a *app, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfgPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			return fn(ctx, a, cmd.OutOrStdout(), args)
		}
	}

	root.AddCommand(
		newAddMemberCmd(withApp),
		newRemoveMemberCmd(withApp),
		newRearrangeCmd(withApp),
		newNewMonthCmd(withApp),
		newShowCmd(withApp),
		newUndoCmd(withApp),
	)
	return root
}

type runner func(fn func(ctx context.Context, a *app, out io.Writer, args []string) error) func(*cobra.Command, []string) error

func newAddMemberCmd(withApp runner) *cobra.Command {
	var hour, email, notes string

	cmd := &cobra.Command{
		Use:   "add-member NAME",
		Short: "Register a member and book their remaining training hours",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.Flags().StringVar(&hour, "hour", "", "training hour, e.g. 17:00")
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("hour")

	cmd.RunE = withApp(func(ctx context.Context, a *app, out io.Writer, args []string) error {
		res, err := a.svc.AddMember(ctx, service.NewMember{
			Name:         strings.Join(args, " "),
			TrainingHour: hour,
			Email:        email,
			Notes:        notes,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Added %s (%s) at %s\n", res.Member.Name, res.Member.ID, res.Member.TrainingHour)
		for _, month := range sortedKeys(res.Booked) {
			fmt.Fprintf(out, "  %s: %d reservations\n", month, len(res.Booked[month]))
			if skipped := res.Skipped[month]; len(skipped) > 0 {
				fmt.Fprintf(out, "  %s: full, skipped %s\n", month, strings.Join(skipped, ", "))
			}
		}
		return nil
	})
	return cmd
}

func newRemoveMemberCmd(withApp runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-member ID",
		Short: "Remove a member and all of their reservations",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withApp(func(ctx context.Context, a *app, out io.Writer, args []string) error {
		if err := a.svc.RemoveMember(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %s\n", args[0])
		return nil
	})
	return cmd
}

func newRearrangeCmd(withApp runner) *cobra.Command {
	var (
		add    []string
		remove []int
	)

	cmd := &cobra.Command{
		Use:   "rearrange ID",
		Short: "Move a member's reservations between days",
		Long: `Move a member's reservations between days.

--add takes day numbers followed by the hour they should be booked at, e.g.
--add 1,3,08:00,5,17:00. --remove takes the day numbers to clear.
Days before today refer to next month.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringSliceVar(&add, "add", nil, "days and hours to book")
	cmd.Flags().IntSliceVar(&remove, "remove", nil, "days to clear")

	cmd.RunE = withApp(func(ctx context.Context, a *app, out io.Writer, args []string) error {
		plan, err := a.svc.Rearrange(ctx, rearrange.Request{
			Member: args[0],
			Add:    splitTokens(add),
			Remove: remove,
		})
		if err != nil {
			return err
		}
		for _, cs := range plan.ChangeSets() {
			fmt.Fprintf(out, "%s:\n", cs.MonthLabel())
			for _, s := range cs.SlotsToAdd {
				fmt.Fprintf(out, "  + %s\n", s)
			}
			for _, d := range cs.DaysToRearrange {
				fmt.Fprintf(out, "  - %s\n", d)
			}
		}
		return nil
	})
	return cmd
}

func newNewMonthCmd(withApp runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new-month [YYYY-MM]",
		Short: "Create a month's timetable from the members' training hours",
		Long:  "Create a month's timetable from the members' training hours. Defaults to next month.",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.RunE = withApp(func(ctx context.Context, a *app, out io.Writer, args []string) error {
		year, month, err := targetMonth(args, a.now())
		if err != nil {
			return err
		}
		rows, err := a.svc.CreateMonth(ctx, year, month)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Created %s with %d reservations\n", calendar.MonthLabel(year, month), len(rows))
		return nil
	})
	return cmd
}

func newShowCmd(withApp runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a member's reservations",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withApp(func(ctx context.Context, a *app, out io.Writer, args []string) error {
		tt, err := a.svc.MemberSchedule(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%s), training hour %s\n", tt.Member.Name, tt.Member.ID, tt.Member.TrainingHour)
		printSlots(out, tt.Month+" done", tt.Past)
		printSlots(out, tt.Month+" upcoming", tt.Future)
		if tt.NextMonth != "" {
			printSlots(out, tt.NextMonth, tt.Next)
		}
		return nil
	})
	return cmd
}

func newUndoCmd(withApp runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Restore the sheets written by the last command",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withApp(func(ctx context.Context, a *app, out io.Writer, _ []string) error {
		entry, err := a.svc.Undo(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Undid %s from %s\n", entry.Command, entry.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	})
	return cmd
}

func (a *app) now() cursor.Cursor {
	loc, err := a.cfg.Location()
	if err != nil {
		return cursor.SystemClock{}.Now()
	}
	return cursor.SystemClock{Location: loc}.Now()
}

// targetMonth resolves the optional YYYY-MM argument, defaulting to the
// month after now.
func targetMonth(args []string, now cursor.Cursor) (int, int, error) {
	if len(args) == 0 {
		y, m := calendar.NextMonth(now.Year, now.Month)
		return y, m, nil
	}
	return calendar.ParseMonthLabel(args[0])
}

// splitTokens accepts "1,3,08:00" as well as "1 3 08:00".
func splitTokens(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Fields(v)...)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printSlots(out io.Writer, title string, list []slots.Slot) {
	fmt.Fprintf(out, "  %s (%d):\n", title, len(list))
	for _, s := range list {
		fmt.Fprintf(out, "    %s\n", s)
	}
}
