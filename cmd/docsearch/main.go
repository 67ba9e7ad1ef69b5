// Command docsearch queries Sphinx search indexes from the terminal, builds
// new indexes from JSON-lines documents, load-tests a running searcher and
// mints admin keys.
//
// Usage:
//
//	docsearch query -i qnetvo=docs/_build/html/searchindex.js chsh inequality
//	docsearch build --out site/ pages.jsonl
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           "docsearch",
		Short:         "Search and build Sphinx documentation indexes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Logs go to stderr so results on stdout stay pipeable.
			logger.SetupWriter(cmd.ErrOrStderr(), logLevel, "text")
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	root.AddCommand(
		newQueryCmd(),
		newObjectCmd(),
		newInspectCmd(),
		newBuildCmd(),
		newBenchCmd(),
		newKeygenCmd(),
	)
	return root
}
