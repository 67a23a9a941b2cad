package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"apartment/internal/core"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func summaryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <register-id>",
		Short: "Show totals and balance of a register",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRegisterID(args[0])
			if err != nil {
				return err
			}
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			s, err := sess.ledger.Summary(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("summary: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Register\t%s\n", s.RegisterID)
			fmt.Fprintf(w, "Total in\t%s\t(%d)\n", s.TotalIn.StringFixed(core.AmountScale), s.InCount)
			fmt.Fprintf(w, "Total out\t%s\t(%d)\n", s.TotalOut.StringFixed(core.AmountScale), s.OutCount)
			fmt.Fprintf(w, "Balance\t%s\n", s.Balance.StringFixed(core.AmountScale))
			fmt.Fprintf(w, "Transactions\t%d\n", s.TransactionCount)
			last := "-"
			if s.LastTransactionDate != nil {
				last = s.LastTransactionDate.In(sess.loc).Format(time.DateTime)
			}
			fmt.Fprintf(w, "Last transaction\t%s\n", last)
			return w.Flush()
		},
	}
}

func monthlyCmd(opts *rootOptions) *cobra.Command {
	var year, month int
	cmd := &cobra.Command{
		Use:   "monthly <register-id>",
		Short: "Show the daily breakdown of one month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRegisterID(args[0])
			if err != nil {
				return err
			}
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			m, err := sess.ledger.MonthlySummary(cmd.Context(), id, year, month)
			if err != nil {
				return fmt.Errorf("monthly summary: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(w, "Date\tIn\tOut\t\n")
			fmt.Fprintf(w, "%s\t%s\t%s\t\n", strings.Repeat("-", 10), strings.Repeat("-", 8), strings.Repeat("-", 8))
			for _, d := range m.Daily {
				fmt.Fprintf(w, "%s\t%s\t%s\t\n", d.Date,
					d.TotalIn.StringFixed(core.AmountScale),
					d.TotalOut.StringFixed(core.AmountScale))
			}
			fmt.Fprintf(w, "Total\t%s\t%s\t\n",
				m.TotalIn.StringFixed(core.AmountScale),
				m.TotalOut.StringFixed(core.AmountScale))
			fmt.Fprintf(w, "Balance\t%s\t\t\n", m.Balance.StringFixed(core.AmountScale))
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "calendar year")
	cmd.Flags().IntVar(&month, "month", 0, "calendar month (1-12)")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func registersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "registers",
		Short: "List active cash registers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			regs, err := sess.registers.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list registers: %w", err)
			}
			if len(regs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No registers found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID\tYear\tCreated\n")
			for _, r := range regs {
				fmt.Fprintf(w, "%s\t%d\t%s\n", r.ID, r.Year, r.CreatedAt.In(sess.loc).Format(time.DateOnly))
			}
			return w.Flush()
		},
	}
}

func parseRegisterID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid register id %q", s)
	}
	return id, nil
}
