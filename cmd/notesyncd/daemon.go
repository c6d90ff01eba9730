package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openmined/notesync/internal/noteapi"
	"github.com/openmined/notesync/internal/notecore"
	"github.com/openmined/notesync/internal/notedb"
	"github.com/openmined/notesync/internal/noteconfig"
	"github.com/openmined/notesync/internal/notelog"
	"github.com/openmined/notesync/internal/notestore"
	"github.com/openmined/notesync/internal/version"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newDaemonCmd())
}

func newDaemonCmd() *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Start the notesync client daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runDaemon(cmd)
		},
	}
	return daemonCmd
}

func runDaemon(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := noteconfig.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ws, err := notestore.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	if err := ws.Setup(); err != nil {
		return fmt.Errorf("setup workspace: %w", err)
	}
	defer ws.Unlock()

	closeLog, err := notelog.Setup(notelog.Options{
		LogFilePath: ws.LogsDir + string(os.PathSeparator) + "notesyncd.log",
		Verbose:     verbose,
	})
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer closeLog()

	slog.Info("notesyncd", "version", version.Version, "server_url", cfg.ServerURL, "data_dir", cfg.DataDir)

	db, err := notedb.NewSqliteDB(notedb.WithPath(ws.DBPath))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	store, err := notedb.NewStore(db)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	remote, err := noteapi.New(noteapi.Config{
		BaseURL:     cfg.ServerURL,
		AccessToken: cfg.AccessToken,
	})
	if err != nil {
		return fmt.Errorf("build remote api client: %w", err)
	}

	core, err := notecore.NewCore(store, remote, notecore.SystemClock{}, cfg.QueueConfig())
	if err != nil {
		return fmt.Errorf("wire core: %w", err)
	}
	if err := core.Recover(); err != nil {
		return fmt.Errorf("recover: %w", err)
	}

	core.Online.Set(true, cfg.AccessToken != "" || cfg.RefreshToken != "", true)

	return runRetryLoop(cmd.Context(), core, cfg.QueueConfig().RetryCheckInterval)
}

// runRetryLoop periodically drains both the pending queue and operations
// ready for retry until ctx is cancelled, mirroring the teacher's
// ticker-driven background goroutines (e.g. the SDK's auto token refresh
// loop). Draining Pending here, not just Failed, catches ops enqueued
// offline that never got an immediate-processing attempt.
func runRetryLoop(ctx context.Context, core *notecore.Core, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("notesyncd: shutting down")
			return nil
		case <-ticker.C:
			if !core.Online.IsOnline() {
				continue
			}
			if err := core.Processor.ProcessQueue(ctx); err != nil && !errors.Is(err, notecore.ErrQueueAlreadyProcessing) {
				slog.Error("notesyncd: process queue", "error", err)
			}
			if err := core.Processor.ProcessRetries(ctx); err != nil && !errors.Is(err, notecore.ErrQueueAlreadyProcessing) {
				slog.Error("notesyncd: process retries", "error", err)
			}
		}
	}
}
