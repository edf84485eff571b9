package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/USA-RedDragon/upmyfee/internal/config"
	"github.com/USA-RedDragon/upmyfee/internal/console"
	"github.com/USA-RedDragon/upmyfee/internal/db"
	"github.com/USA-RedDragon/upmyfee/internal/db/models"
	"github.com/USA-RedDragon/upmyfee/internal/metrics"
	"github.com/USA-RedDragon/upmyfee/internal/rewrite"
	"github.com/USA-RedDragon/upmyfee/internal/rpc"
	"github.com/USA-RedDragon/upmyfee/internal/storage"
	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/mattn/go-nulltype"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const cleanupTimeout = 10 * time.Second

func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "upmyfee",
		Short:   "Re-issue an unconfirmed transaction with a higher fee",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(cmd)
	cmd.AddCommand(newHistoryCommand())
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	config, err := config.LoadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	setupLogging(config.LogLevel)
	slog.Debug("upmyfee", "version", cmd.Annotations["version"], "commit", cmd.Annotations["commit"])

	fee, err := config.FeeAmount()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := metrics.NewMetrics()
	client, err := rpc.NewClient(config.RPC.URL, rpc.Options{
		Timeout:            config.RPC.Timeout,
		InsecureSkipVerify: config.RPC.Insecure,
		Metrics:            metrics,
	})
	if err != nil {
		return fmt.Errorf("invalid RPC URL: %w", err)
	}
	slog.Debug("Using node", "endpoint", client.Endpoint().String())

	opts := []rewrite.Option{rewrite.WithUnlockTimeout(config.UnlockTimeout)}
	if config.Export.Enabled {
		store, err := storage.NewStorage(ctx, config.Export)
		if err != nil {
			return fmt.Errorf("failed to open export storage: %w", err)
		}
		defer store.Close()
		opts = append(opts, rewrite.WithExporter(storage.NewExporter(store)))
	}

	var database *gorm.DB
	if config.History.Enabled {
		database, err = db.MakeDB(config.History.Database)
		if err != nil {
			return fmt.Errorf("failed to make database: %w", err)
		}
		slog.Debug("Database connection established")
	}

	engine := rewrite.NewEngine(client, console.New(cmd.InOrStdin(), cmd.OutOrStdout()), opts...)
	plan, result, rewriteErr := engine.Rewrite(ctx, rewrite.Request{
		TxID:      config.TxID,
		Payer:     config.Payer,
		Recipient: config.To,
		Fee:       fee,
		Debug:     config.Debug,
	})

	status := rewriteStatus(result, rewriteErr)
	metrics.IncrementRewrites(string(status))

	if rewriteErr == nil && result.State == rewrite.StateDone {
		fmt.Fprintf(cmd.OutOrStdout(), "New TxID: %s\n", result.TxID)
	}
	if rewriteErr != nil && config.Debug {
		slog.Debug("Rewrite failed", "stack", errors.Wrap(rewriteErr, 0).ErrorStack())
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	errGrp := errgroup.Group{}
	if database != nil {
		errGrp.Go(func() error {
			// runs that failed before a plan existed have nothing to record
			if plan.TxID != "" {
				record := newRecord(plan, result, status, rewriteErr)
				if err := models.CreateRewrite(database.WithContext(cleanupCtx), record); err != nil {
					return fmt.Errorf("failed to record rewrite: %w", err)
				}
				slog.Debug("Recorded rewrite", "run", record.RunID)
			}
			return db.Close(database)
		})
	}
	if config.Metrics.Enabled {
		errGrp.Go(func() error {
			if err := metrics.Push(cleanupCtx, config.Metrics.PushgatewayURL, config.Metrics.Job); err != nil {
				return fmt.Errorf("failed to push metrics: %w", err)
			}
			return nil
		})
	}
	if err := errGrp.Wait(); err != nil {
		slog.Error("Cleanup error", "error", err.Error())
	}

	return rewriteErr
}

func rewriteStatus(result rewrite.Result, err error) models.RewriteStatus {
	switch {
	case err != nil:
		return models.RewriteStatusFailed
	case result.State == rewrite.StateDone:
		return models.RewriteStatusBroadcast
	case result.Cancelled() && result.SignedHex != "":
		return models.RewriteStatusSigned
	default:
		return models.RewriteStatusCancelled
	}
}

func newRecord(plan rewrite.Plan, result rewrite.Result, status models.RewriteStatus, err error) *models.Rewrite {
	record := &models.Rewrite{
		RunID:          uuid.NewString(),
		TxID:           plan.TxID,
		Payer:          plan.Payer,
		Recipient:      plan.Recipient,
		OriginalFee:    plan.OriginalFee,
		NewFee:         plan.NewFee,
		FeeDelta:       plan.FeeDelta,
		OriginalAmount: plan.OriginalPayerAmount,
		NewAmount:      plan.NewPayerAmount,
		Status:         status,
		State:          string(result.State),
	}
	if result.TxID != "" {
		record.NewTxID = nulltype.NullStringOf(result.TxID)
	}
	if result.SignedHex != "" {
		record.SignedHex = nulltype.NullStringOf(result.SignedHex)
	}
	if err != nil {
		record.Error = nulltype.NullStringOf(err.Error())
	}
	return record
}
