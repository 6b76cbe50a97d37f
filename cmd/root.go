package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/form-relay/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "formrelay",
	Short: "Relay form submissions into Slack for accept/reject review",
	Long: `formrelay receives form submissions over a webhook, posts them to a
Slack channel with Accept and Reject buttons, relays the reviewer's
decision to a second channel, and mirrors channel messages back as the bot.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
