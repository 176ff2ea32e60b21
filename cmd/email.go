package cmd

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/trueberryless-org/npmx-weekly/internal/browser"
	"github.com/trueberryless-org/npmx-weekly/internal/history"
	"github.com/trueberryless-org/npmx-weekly/internal/newsletter"
	"github.com/trueberryless-org/npmx-weekly/internal/render"
)

var (
	flagDraftSeq    int
	flagPreviewOpen bool
)

var emailCmd = &cobra.Command{
	Use:   "email",
	Short: "Draft, preview and send the email edition",
}

var emailDraftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Write an email draft from this week's signals",
	Long: `Summarize this week's high-relevance signals into a short email and write it
to <emails_dir>/<n>.json. Without --seq the newest post number is used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := recorded(history.KindEmailDraft, func() (newsletter.Result, error) {
			g, err := newGenerator()
			if err != nil {
				return newsletter.Result{Sequence: flagDraftSeq}, err
			}
			return g.DraftEmail(cmd.Context(), flagDraftSeq)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote draft %s with %d topics.\n", res.Path, res.Topics)
		return nil
	},
}

var emailSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Broadcast the newest email draft",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := recorded(history.KindEmailSend, func() (newsletter.Result, error) {
			s, err := newSender()
			if err != nil {
				return newsletter.Result{}, err
			}
			return s.SendLatest(cmd.Context())
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Broadcast %s sent for npmx Weekly #%d.\n", res.BroadcastID, res.Sequence)
		return nil
	},
}

var emailPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render the newest draft to a local HTML file",
	Long: `Render the newest email draft without the post link and unsubscribe footer and
write it to a temporary HTML file. No credentials are needed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := &newsletter.Sender{Store: newStore(), Emails: newEmails()}
		html, res, err := s.PreviewLatest()
		if err != nil {
			return err
		}

		path := filepath.Join(os.TempDir(), fmt.Sprintf("npmx-weekly-%d.html", res.Sequence))
		if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
			return fmt.Errorf("writing preview: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Preview of %s (%q) written to %s\n", filepath.Base(res.Path), render.PostTitle(res.Sequence), path)

		if flagPreviewOpen {
			u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
			if err := browser.Open(u.String()); err != nil {
				log.Warn().Err(err).Msg("could not open browser")
			}
		}
		return nil
	},
}

func init() {
	emailDraftCmd.Flags().IntVar(&flagDraftSeq, "seq", 0, "sequence number of the draft (default: newest post)")
	emailPreviewCmd.Flags().BoolVar(&flagPreviewOpen, "open", false, "open the preview in a browser")

	emailCmd.AddCommand(emailDraftCmd)
	emailCmd.AddCommand(emailSendCmd)
	emailCmd.AddCommand(emailPreviewCmd)
}
