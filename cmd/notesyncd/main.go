// Command notesyncd runs the notesync client daemon: the offline
// operation queue and sync coordination core wired to a sqlite store and
// an HTTP remote API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/openmined/notesync/internal/noteconfig"
	"github.com/openmined/notesync/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "notesyncd",
	Short:   "Notesync client daemon",
	Version: version.Detailed(),
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", noteconfig.DefaultConfigPath, "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
