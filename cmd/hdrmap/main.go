// Package main is the entry point for the hdrmap binary.
// It converts headers between flat and multi-valued forms and serves
// gateway proxy events through the header mapper.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bhatti/gateway-header-mapper/headermapper"
)

const defaultLogLevel = "info"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hdrmap",
		Short:         "Header mapping between gateway, HTTP and gRPC representations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("log-level", "l", defaultLogLevel, "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newFlattenCmd(),
		newExpandCmd(),
		newEventCmd(),
		newServeCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

// newLogger builds a JSON slog logger on stderr for the --log-level flag
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	levelName, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}

	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", levelName)
	}

	return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})), nil
}

func newMapperLogger(cmd *cobra.Command) (headermapper.Logger, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}
	return headermapper.NewSlogLogger(logger), nil
}

// openInput returns the named file, or the command's stdin when no file is
// given or the name is "-".
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, nil
}
