package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"remedy/internal/version"
)

// logger is built in PersistentPreRunE; commands may use it afterwards.
var logger = zap.NewNop()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "remedy",
		Short: "Classify build-log diagnostics and apply automated fixes",
		Long: `remedy reads a compiler/build log, groups its errors and warnings into
known categories, ranks them by file and module, and can rewrite the
affected source files for the categories it knows how to fix.`,
		Version:           version.Version,
		PersistentPreRunE: initLogger,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	// Глобальные флаги
	pf := root.PersistentFlags()
	pf.String("root", "", "project root (default: directory of the nearest remedy.toml, else cwd)")
	pf.String("config", "", "explicit path to remedy.toml")
	pf.String("format", "text", "output format (text|json|yaml|short)")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("verbose", false, "debug logging")
	pf.String("log-format", "console", "log format on stderr (console|json)")
	pf.Bool("timings", false, "show timing information")
	pf.Int("max-files", 50, "maximum number of files listed in text output (0 = all)")

	root.AddCommand(newClassifyCmd())
	root.AddCommand(newRemediateCmd())
	root.AddCommand(newJournalCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func initLogger(cmd *cobra.Command, args []string) error {
	verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
	if err != nil {
		return err
	}
	format, err := cmd.Root().PersistentFlags().GetString("log-format")
	if err != nil {
		return err
	}
	var cfg zap.Config
	switch format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		return fmt.Errorf("invalid --log-format value %q (expected console|json)", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l
	return nil
}

// main runs the root command; fatal errors exit 1, runs with per-item
// failures exit 2.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	os.Exit(1)
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
