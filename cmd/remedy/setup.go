package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"remedy/internal/config"
	"remedy/internal/driver"
	"remedy/internal/project"
	"remedy/internal/report"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
	// formatShort prints one "path:line:col: severity [category] message" line per diagnostic.
	formatShort outputFormat = "short"
)

// runFlags are the persistent flags every run command shares.
type runFlags struct {
	root       string
	configPath string
	format     outputFormat
	color      bool
	timings    bool
	maxFiles   int
}

func readRunFlags(cmd *cobra.Command) (runFlags, error) {
	pf := cmd.Root().PersistentFlags()
	var f runFlags
	var err error
	if f.root, err = pf.GetString("root"); err != nil {
		return f, err
	}
	if f.configPath, err = pf.GetString("config"); err != nil {
		return f, err
	}
	format, err := pf.GetString("format")
	if err != nil {
		return f, err
	}
	if f.format, err = readFormat(format); err != nil {
		return f, err
	}
	colorFlag, err := pf.GetString("color")
	if err != nil {
		return f, err
	}
	if f.color, err = readColorMode(colorFlag); err != nil {
		return f, err
	}
	if f.timings, err = pf.GetBool("timings"); err != nil {
		return f, err
	}
	if f.maxFiles, err = pf.GetInt("max-files"); err != nil {
		return f, err
	}
	if f.maxFiles < 0 {
		return f, fmt.Errorf("--max-files must not be negative")
	}
	return f, nil
}

func readFormat(value string) (outputFormat, error) {
	switch outputFormat(strings.ToLower(strings.TrimSpace(value))) {
	case "", formatText:
		return formatText, nil
	case formatJSON:
		return formatJSON, nil
	case formatYAML:
		return formatYAML, nil
	case formatShort:
		return formatShort, nil
	default:
		return "", fmt.Errorf("unsupported format %q (must be text, json, yaml or short)", value)
	}
}

// resolveRoot returns the explicit root, else the directory holding the
// nearest remedy.toml, else the working directory.
func resolveRoot(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	manifest, ok, err := project.FindManifest(cwd)
	if err != nil {
		return "", err
	}
	if ok {
		return filepath.Dir(manifest), nil
	}
	return cwd, nil
}

// prepareRequest reads the log and the configuration for a run over logPath.
func prepareRequest(cmd *cobra.Command, logPath string, mode report.Mode) (driver.Request, runFlags, error) {
	f, err := readRunFlags(cmd)
	if err != nil {
		return driver.Request{}, f, err
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		return driver.Request{}, f, fmt.Errorf("read log: %w", err)
	}
	root, err := resolveRoot(f.root)
	if err != nil {
		return driver.Request{}, f, err
	}
	root, err = project.ValidateRoot(root)
	if err != nil {
		return driver.Request{}, f, fmt.Errorf("%w: %w", driver.ErrInvalidRoot, err)
	}
	cfg, src, err := config.Load(root, f.configPath)
	if err != nil {
		return driver.Request{}, f, fmt.Errorf("config: %w", err)
	}
	logger.Debug("configuration loaded",
		zap.String("root", root),
		zap.String("manifest", src.Manifest),
		zap.String("env_file", src.EnvFile))

	return driver.Request{
		Log:     data,
		LogPath: logPath,
		Root:    root,
		Mode:    mode,
		Config:  cfg,
		Logger:  logger,
	}, f, nil
}

// finish prints the outcome and converts a failing status into an exitError.
func finish(cmd *cobra.Command, s *driver.Session, out *driver.Outcome, f runFlags) error {
	if err := writeReport(cmd.OutOrStdout(), out.Report, s.Diagnostics(), f); err != nil {
		return err
	}
	if f.timings {
		printTimings(cmd.ErrOrStderr(), s.Timer())
	}
	if out.ExitCode != driver.ExitOK {
		cmd.SilenceErrors = true
		return &exitError{code: out.ExitCode}
	}
	return nil
}
