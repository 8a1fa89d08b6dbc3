package cmd

import (
	"fmt"
	"os"

	"payshield/internal/config"
	"payshield/internal/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	tab      string
	logLevel string
	cfg      config.Config
}

// NewRootCmd builds the payshield command tree. Every invocation acts as
// one browser tab, restored from the tab's stored record.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "payshield",
		Short: "PayShield client - sign in and watch the identity of a tab",
		Long: `payshield drives the client identity layer from the terminal. Each
command runs against one named tab; tabs of the same origin share state
through Redis when REDIS_ADDR is set.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.cfg = config.Load()
			level := opts.logLevel
			if level == "" {
				level = "warn"
			}
			logger.SetOutput(zerolog.ConsoleWriter{Out: os.Stderr}, level)
		},
	}

	root.PersistentFlags().StringVar(&opts.tab, "tab", "default", "Tab to act as")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (default warn)")

	root.AddCommand(
		loginCmd(opts),
		signupCmd(opts),
		logoutCmd(opts),
		whoamiCmd(opts),
		watchCmd(opts),
	)
	return root
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
