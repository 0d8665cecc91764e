package main

import (
	"github.com/spf13/cobra"

	"remedy/internal/driver"
	"remedy/internal/report"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <build.log>",
		Short: "Classify and rank the diagnostics of a build log",
		Long:  "Parse the log, assign every diagnostic a category and print counts per category, module and file. No file is written.",
		Args:  cobra.ExactArgs(1),
		RunE:  runClassify,
	}
}

func runClassify(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	req, f, err := prepareRequest(cmd, args[0], report.ModeClassify)
	if err != nil {
		return err
	}
	s, err := driver.Analyze(cmd.Context(), req)
	if err != nil {
		return err
	}
	return finish(cmd, s, s.Finish(), f)
}
