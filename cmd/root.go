package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "mlrose",
	Short: "Randomized optimization for neural network weights",
	Long: `mlrose trains feed-forward neural networks by searching the weight
space with randomized optimization: hill climbing with restarts, simulated
annealing, a genetic algorithm, or plain gradient descent. Fitted models are
stored on disk and can be served, resumed and queried over HTTP.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Logs go to stderr so commands like predict can emit CSV on
		// stdout.
		handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: parseLogLevel(logLevel),
		})
		slog.SetDefault(slog.New(handler))
	},
}

func parseLogLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}
