package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"remedy/internal/driver"
	"remedy/internal/report"
)

func newRemediateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remediate [flags] <build.log>",
		Short: "Apply automated fixes for the diagnostics of a build log",
		Long: `Classify the log, then run the known fixes against the affected files.
By default nothing is written (--dry-run); --apply backs every file up under
the backup root before its first change and records a journal of the run.`,
		Args: cobra.ExactArgs(1),
		RunE: runRemediate,
	}
	cmd.Flags().Bool("dry-run", false, "simulate fixes without writing (default)")
	cmd.Flags().Bool("apply", false, "write fixes to disk")
	cmd.Flags().Int("jobs", 0, "max parallel files (0 = config value)")
	cmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	cmd.Flags().String("backup-root", "", "backup directory relative to the project root")
	return cmd
}

func runRemediate(cmd *cobra.Command, args []string) error {
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	apply, err := cmd.Flags().GetBool("apply")
	if err != nil {
		return err
	}
	if dryRun && apply {
		return fmt.Errorf("--dry-run and --apply are mutually exclusive")
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	if jobs < 0 {
		return fmt.Errorf("--jobs must not be negative")
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}
	backupRoot, err := cmd.Flags().GetString("backup-root")
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	runMode := report.ModeDryRun
	if apply {
		runMode = report.ModeApply
	}
	req, f, err := prepareRequest(cmd, args[0], runMode)
	if err != nil {
		return err
	}
	if jobs > 0 {
		req.Config.Remediation.Jobs = jobs
	}
	if backupRoot != "" {
		req.Config.Backup.Root = backupRoot
	}
	if err := req.Config.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := cmd.Context()
	s, err := driver.Analyze(ctx, req)
	if err != nil {
		return err
	}
	if shouldUseTUI(mode) {
		err = remediateWithUI(ctx, "remediate ("+string(runMode)+")", s)
	} else {
		err = s.Remediate(ctx, nil)
	}
	if err != nil {
		return err
	}
	return finish(cmd, s, s.Finish(), f)
}
