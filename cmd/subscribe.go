package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trueberryless-org/npmx-weekly/internal/history"
	"github.com/trueberryless-org/npmx-weekly/internal/newsletter"
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <email>",
	Short: "Add a reader to the newsletter segment",
	Long: `Create the contact, add it to the configured segment and send the welcome email.
An existing contact is not an error; a failed welcome email is only logged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := recorded(history.KindSubscribe, func() (newsletter.Result, error) {
			res := newsletter.Result{Path: args[0]}
			s, err := newSender()
			if err != nil {
				return res, err
			}
			return res, s.Subscribe(cmd.Context(), args[0])
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Subscribed %s.\n", args[0])
		return nil
	},
}
