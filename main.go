package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voxquery/internal/bootstrap"
	"voxquery/internal/config"
	"voxquery/internal/logging"
	"voxquery/internal/tui"
)

var (
	// Global flags
	envFile string
	verbose bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "voxquery",
	Short: "Turn spoken or typed questions into formal queries and run them",
	Long: `voxquery walks a question through three stages: the natural language
query, the formal query generated from it, and the result of executing that
query. Each stage can be edited and revisited.

Run without arguments to start the terminal interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}

		// The terminal interface owns stdout, so it only logs to file.
		var console io.Writer
		if verbose && cmd != cmd.Root() {
			console = os.Stderr
		}
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(logging.Options{File: cfg.Log.File, Level: level, Console: console})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Debug("configuration loaded", zap.String("command", cmd.Name()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTerminal(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging, mirrored to stderr outside the terminal interface")

	askCmd.Flags().StringVar(&askAudio, "audio", "", "transcribe this audio file instead of using the arguments")
	askCmd.Flags().BoolVar(&askDryRun, "dry-run", false, "print the formal query without executing it")

	rootCmd.AddCommand(askCmd, desktopCmd)
}

func runTerminal(ctx context.Context) error {
	bridge := tui.NewEventBridge()
	defer bridge.Close()

	services, err := bootstrap.Build(cfg, bridge, logger)
	if err != nil {
		return err
	}
	return tui.Run(ctx, services.Controller, bridge)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
