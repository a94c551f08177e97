// Package cli implements the recall CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jsahoo/recall/internal/logging"
	"github.com/jsahoo/recall/internal/store"
)

var (
	dbPath  string
	verbose bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Session and memory store for conversational agents",
	Long:  "Persistent conversation history plus short-term and long-term agent memory. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $RECALL_DB or ~/.recall/recall.db)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log store operations to stderr")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("RECALL_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".recall", "recall.db")
}

func cliLogger() logging.Logger {
	if verbose {
		return logging.NewDefault()
	}
	return logging.NoOpLogger{}
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath(), store.WithLogger(cliLogger()))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
