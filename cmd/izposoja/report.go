package main

import (
	"context"
	"fmt"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
)

const timeLayout = "2006-01-02 15:04"

// reportOptions holds flags for the per-borrower reporting commands.
type reportOptions struct {
	*rootOptions
	Borrower string
	At       string
}

func (o *reportOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Borrower, "borrower", "b", "", "borrower id (the user's numeric id)")
	cmd.Flags().StringVar(&o.At, "at", "", "evaluate at this RFC 3339 time instead of now")
	_ = cmd.MarkFlagRequired("borrower")
}

// service opens the database and builds a lending service whose clock is
// pinned to --at when it is set.
func (o *reportOptions) service() (*lending.Service, func(), error) {
	var opts []lending.Option
	if o.At != "" {
		at, err := time.Parse(time.RFC3339, o.At)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --at time: %w", err)
		}
		opts = append(opts, lending.WithClock(lending.ClockFunc(func() time.Time { return at })))
	}

	database, err := o.openExisting()
	if err != nil {
		return nil, nil, err
	}
	return lending.NewService(database, o.policy, opts...), func() { database.Close() }, nil
}

func newLoansCommand(root *rootOptions) *cobra.Command {
	opts := &reportOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List a borrower's open loans",
		Long: `List the open loans of one borrower, soonest due first.

Examples:
  izposoja loans --borrower 7
  izposoja loans --borrower 7 --format json`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := opts.service()
			if err != nil {
				return err
			}
			defer closeDB()

			loans, err := svc.ListActiveLoans(context.Background(), opts.Borrower)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), loans)
			}
			return writeLoans(cmd.OutOrStdout(), loans, svc.Policy().MaxRenewals)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func newNoticesCommand(root *rootOptions) *cobra.Command {
	opts := &reportOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "notices",
		Short: "Show a borrower's due-soon and overdue reminders",
		Long: `Show reminders for loans that are overdue or due within the
reminder window.

Examples:
  izposoja notices --borrower 7
  izposoja notices --borrower 7 --at 2026-03-17T09:00:00Z`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := opts.service()
			if err != nil {
				return err
			}
			defer closeDB()

			notices, err := svc.ListNotifications(context.Background(), opts.Borrower)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), notices)
			}
			return writeNotices(cmd.OutOrStdout(), notices)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeLoans(w io.Writer, loans []lending.ActiveLoan, maxRenewals int) error {
	if len(loans) == 0 {
		_, err := fmt.Fprintln(w, "no open loans")
		return err
	}
	for _, l := range loans {
		_, err := fmt.Fprintf(w, "%s (copy %d)  due %s  renewals %d/%d\n",
			l.Title, l.CopyID, l.DueAt.UTC().Format(timeLayout), l.RenewalCount, maxRenewals)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeNotices(w io.Writer, notices []model.Notification) error {
	if len(notices) == 0 {
		_, err := fmt.Fprintln(w, "no notifications")
		return err
	}
	for _, n := range notices {
		status := "due"
		if n.Overdue {
			status = "overdue"
		}
		_, err := fmt.Fprintf(w, "%-8s %-7s %s (copy %d, due %s)\n",
			status, days(n.DaysDelta), n.Title, n.CopyID, n.DueAt.UTC().Format(timeLayout))
		if err != nil {
			return err
		}
	}
	return nil
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
