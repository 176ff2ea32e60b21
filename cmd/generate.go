package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trueberryless-org/npmx-weekly/internal/history"
	"github.com/trueberryless-org/npmx-weekly/internal/newsletter"
)

var (
	flagBackfillSeq  int
	flagBackfillFrom string
	flagBackfillTo   string
)

var weeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Generate this week's post",
	Long: `Fetch the signal reports of the current week (Monday through Friday), summarize
the high-relevance topics and write the next numbered MDX post, dated the coming Sunday.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := recorded(history.KindWeekly, func() (newsletter.Result, error) {
			g, err := newGenerator()
			if err != nil {
				return newsletter.Result{}, err
			}
			return g.Weekly(cmd.Context())
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s with %d topics.\n", res.Path, res.Topics)
		return nil
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Generate a post for an explicit date range",
	Example: `  npmx-weekly backfill --seq 1 --from 2026-01-05 --to 2026-01-09`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := recorded(history.KindBackfill, func() (newsletter.Result, error) {
			res := newsletter.Result{Sequence: flagBackfillSeq}
			from, err := parseDate(flagBackfillFrom)
			if err != nil {
				return res, fmt.Errorf("invalid --from value: %w", err)
			}
			to, err := parseDate(flagBackfillTo)
			if err != nil {
				return res, fmt.Errorf("invalid --to value: %w", err)
			}
			g, err := newGenerator()
			if err != nil {
				return res, err
			}
			res, err = g.Backfill(cmd.Context(), flagBackfillSeq, from, to)
			res.Sequence = flagBackfillSeq
			return res, err
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s with %d topics.\n", res.Path, res.Topics)
		return nil
	},
}

func init() {
	backfillCmd.Flags().IntVar(&flagBackfillSeq, "seq", 0, "sequence number of the post to write")
	backfillCmd.Flags().StringVar(&flagBackfillFrom, "from", "", "first day of the range (YYYY-MM-DD)")
	backfillCmd.Flags().StringVar(&flagBackfillTo, "to", "", "last day of the range, used as the post date (YYYY-MM-DD)")
	backfillCmd.MarkFlagRequired("seq")
	backfillCmd.MarkFlagRequired("from")
	backfillCmd.MarkFlagRequired("to")
}
