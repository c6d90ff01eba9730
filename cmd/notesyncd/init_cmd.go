package main

import (
	"fmt"

	"github.com/openmined/notesync/internal/noteconfig"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	var email, dataDir, serverURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a notesync client config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")

			if cfg, err := noteconfig.LoadFromFile(configPath); err == nil {
				fmt.Printf("already initialized: %s\n", cfg.Path)
				return nil
			}

			cfg := &noteconfig.Config{
				Path:      configPath,
				Email:     email,
				DataDir:   dataDir,
				ServerURL: serverURL,
			}
			if cfg.DataDir == "" {
				cfg.DataDir = noteconfig.DefaultDataDir
			}
			if cfg.ServerURL == "" {
				cfg.ServerURL = noteconfig.DefaultServerURL
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return err
			}

			fmt.Printf("wrote config to %s\n", cfg.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&dataDir, "datadir", "d", noteconfig.DefaultDataDir, "data directory")
	cmd.Flags().StringVarP(&serverURL, "server", "s", noteconfig.DefaultServerURL, "notesync server url")

	return cmd
}
