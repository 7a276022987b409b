// Package main provides boardctl, a terminal companion for the board
// service: sign in, inspect boards and follow live board activity.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"boardsync/session"
)

var (
	// configFile is set by the --config flag.
	configFile string

	// sessions is the local session store, opened on startup.
	sessions *session.Store
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "boardctl",
	Short: "boardctl is a terminal client for collaborative boards",
	Long: `boardctl talks to the board service from the terminal. It signs in with
an existing access token, lists boards and their columns, and follows a
board's realtime activity as other collaborators edit it.`,
	PersistentPreRunE: openSession,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if sessions != nil {
			return sessions.Close()
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ~/.boardsync/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(boardsCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(themeCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("boardctl v0.1.0")
	},
}

func openSession(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	path := cfg.GetString(cfgKeySessionDB)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, ".boardsync", "session.db")
	}
	sessions, err = session.Open(path)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	return nil
}
