package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/trueberryless-org/npmx-weekly/internal/history"
)

const defaultRetention = 180 * 24 * time.Hour

var (
	flagPruneOlderThan string
	flagHistoryKind    string
	flagHistoryLimit   int
	flagHistoryFailed  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistory()
		if err != nil {
			return err
		}
		defer db.Close()

		opts := history.QueryOpts{Kind: flagHistoryKind, Limit: flagHistoryLimit}
		if flagHistoryFailed {
			opts.Status = history.StatusFailed
		}
		runs, err := db.List(opts)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}

		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			seq := ""
			if r.Sequence > 0 {
				seq = "#" + strconv.Itoa(r.Sequence)
			}
			result := r.Artifact
			if r.Status == history.StatusFailed {
				result = truncate(r.Detail, 60)
			}
			rows = append(rows, []string{
				humanize.Time(r.StartedAt),
				r.Kind,
				seq,
				r.Status,
				formatElapsed(r.Duration()),
				result,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Started", "Kind", "Seq", "Status", "Took", "Result"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
		))
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old runs from the history",
	Long: `Delete recorded runs older than the retention period and reclaim disk space.

Defaults to 180d unless overridden with --older-than.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		retention := defaultRetention
		if flagPruneOlderThan != "" {
			d, err := parseSince(flagPruneOlderThan)
			if err != nil {
				return fmt.Errorf("invalid --older-than value: %w", err)
			}
			retention = d
		}

		db, err := openHistory()
		if err != nil {
			return err
		}
		defer db.Close()

		deleted, err := db.Prune(retention)
		if err != nil {
			return fmt.Errorf("pruning: %w", err)
		}

		out := cmd.OutOrStdout()
		if deleted == 0 {
			fmt.Fprintln(out, "Nothing to prune.")
		} else {
			fmt.Fprintf(out, "Pruned %d run(s) older than %s.\n", deleted, formatDuration(retention))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show run history and content statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := cfg.HistoryDBPath()
		db, err := openHistory()
		if err != nil {
			return err
		}
		defer db.Close()

		s, err := db.Stats(dbPath)
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		store := newStore()
		nextPost, err := store.NextPost()
		if err != nil {
			return err
		}

		lastSuccess := "never"
		if !s.LastSuccess.IsZero() {
			lastSuccess = humanize.Time(s.LastSuccess)
		}
		rows := [][]string{
			{"History", dbPath},
			{"Size", humanize.Bytes(uint64(s.SizeBytes))},
			{"Runs", humanize.Comma(int64(s.Runs))},
			{"Failed", humanize.Comma(int64(s.Failed))},
			{"Last success", lastSuccess},
			{"Posts dir", store.PostsDir},
			{"Next post", "#" + strconv.Itoa(nextPost)},
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Stat", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
		return nil
	},
}

func init() {
	pruneCmd.Flags().StringVar(&flagPruneOlderThan, "older-than", "", "override retention period (e.g., 30d, 720h)")
	historyCmd.Flags().StringVar(&flagHistoryKind, "kind", "", "only show runs of this kind (weekly, backfill, email-draft, email-send, subscribe)")
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "maximum number of runs to show")
	historyCmd.Flags().BoolVar(&flagHistoryFailed, "failed", false, "only show failed runs")
}
