package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/form-relay/internal/audit"
	"github.com/ziadkadry99/form-relay/internal/config"
	"github.com/ziadkadry99/form-relay/internal/db"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recent Slack deliveries",
	Long:  `Prints delivery records from the audit database: which posts went to which channel and whether Slack accepted them. Message content is never recorded.`,
	Args:  cobra.NoArgs,
	RunE:  runAudit,
}

func init() {
	auditCmd.Flags().Int("limit", 20, "maximum number of records")
	auditCmd.Flags().String("kind", "", "filter by kind: notification, decision, mirror")
	auditCmd.Flags().String("outcome", "", "filter by outcome: delivered, rejected, failed")
	auditCmd.Flags().String("channel", "", "filter by channel")
	auditCmd.Flags().Duration("since", 0, "only records newer than this (e.g. 24h)")
	auditCmd.Flags().Bool("json", false, "output records as JSON")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	kind, _ := cmd.Flags().GetString("kind")
	outcome, _ := cmd.Flags().GetString("outcome")
	channel, _ := cmd.Flags().GetString("channel")
	since, _ := cmd.Flags().GetDuration("since")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// The audit listing does not need Slack credentials, so skip Validate.
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.Audit.Enabled {
		return fmt.Errorf("audit is disabled in %s", cfgFile)
	}
	if _, err := os.Stat(cfg.Audit.Path); err != nil {
		return fmt.Errorf("no audit database at %s: run `formrelay server` first", cfg.Audit.Path)
	}

	database, err := db.Open(cfg.Audit.Path)
	if err != nil {
		return fmt.Errorf("opening audit database: %w", err)
	}
	defer database.Close()

	filter := audit.QueryFilter{
		Kind:    audit.Kind(kind),
		Outcome: audit.Outcome(outcome),
		Channel: channel,
		Limit:   limit,
	}
	if since > 0 {
		t := time.Now().Add(-since)
		filter.Since = &t
	}

	entries, err := audit.NewStore(database).Query(context.Background(), filter)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []audit.Entry{}
		}
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No deliveries recorded.")
		return nil
	}
	printAuditTable(os.Stdout, entries)
	return nil
}

func printAuditTable(out io.Writer, entries []audit.Entry) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tKIND\tCHANNEL\tACTOR\tOUTCOME\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime),
			e.Kind, e.Channel, e.Actor, e.Outcome, e.Error)
	}
	tw.Flush()
}
