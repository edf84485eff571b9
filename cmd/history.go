package cmd

import (
	"fmt"
	"time"

	"github.com/USA-RedDragon/upmyfee/internal/config"
	"github.com/USA-RedDragon/upmyfee/internal/db"
	"github.com/USA-RedDragon/upmyfee/internal/db/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "history",
		Short:         "List recorded fee rewrites",
		RunE:          runHistory,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterHistoryFlags(cmd)
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	config, err := config.LoadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	err = config.ValidateHistory()
	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	setupLogging(config.LogLevel)

	database, err := db.MakeDB(config.History.Database)
	if err != nil {
		return fmt.Errorf("failed to make database: %w", err)
	}
	defer db.Close(database)

	var rewrites []models.Rewrite
	if config.TxID != "" {
		rewrites, err = models.ListRewritesByTxID(database, config.TxID)
	} else {
		rewrites, err = models.ListRewrites(database)
	}
	if err != nil {
		return fmt.Errorf("failed to list rewrites: %w", err)
	}

	if len(rewrites) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No rewrites recorded.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Date", "TxID", "Status", "Fee", "New Fee", "Recipient", "New Amount", "New TxID", "Error"})
	t.AppendSeparator()
	for _, rewrite := range rewrites {
		t.AppendRow(table.Row{
			rewrite.CreatedAt.Format(time.RFC3339),
			rewrite.TxID,
			rewrite.Status,
			rewrite.OriginalFee.String(),
			rewrite.NewFee.String(),
			rewrite.Recipient,
			rewrite.NewAmount.String(),
			rewrite.NewTxID.StringValue(),
			rewrite.Error.StringValue(),
		})
	}
	t.Render()
	return nil
}
