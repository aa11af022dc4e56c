package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "turing",
	Short: "Turing is a single-tape deterministic Turing machine engine",
	Long: `Turing creates, steps and runs single-tape deterministic Turing machines.

Machines are stored in memory, in JSON files, in SQLite or in Redis (TURING_STORE)
and can be driven from this CLI, over HTTP (serve) or by AI agents (mcp).`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags override the TURING_* environment.
	rootCmd.PersistentFlags().String("store", "", "Machine store: memory, file, sqlite or redis (env TURING_STORE)")
	rootCmd.PersistentFlags().String("dir", "", "Directory of the file store (env TURING_FILE_DIR)")
	rootCmd.PersistentFlags().String("db", "", "Path of the SQLite database (env TURING_SQLITE_PATH)")
	rootCmd.PersistentFlags().String("redis", "", "Redis address (env TURING_REDIS_ADDR)")
	rootCmd.PersistentFlags().String("catalog", "", "Directory of machine templates (env TURING_CATALOG_DIR)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (env TURING_LOG_LEVEL)")
}
