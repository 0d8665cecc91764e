package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"remedy/internal/report"
)

func newJournalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "journal <journal.mp>",
		Short: "Print the modification journal of an apply run",
		Args:  cobra.ExactArgs(1),
		RunE:  runJournal,
	}
}

func runJournal(cmd *cobra.Command, args []string) error {
	f, err := readRunFlags(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true
	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	defer file.Close()
	j, err := report.ReadJournal(file)
	if err != nil {
		return err
	}
	return writeJournal(cmd.OutOrStdout(), j, f)
}

func writeJournal(out io.Writer, j *report.Journal, f runFlags) error {
	switch f.format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(j)
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(j); err != nil {
			return err
		}
		return enc.Close()
	}
	p := newPalette(f.color)
	p.head.Fprintf(out, "run %s", j.RunID)
	fmt.Fprintf(out, " at %s\n", j.Started.Format(time.RFC3339))
	fmt.Fprintf(out, "root: %s\n", j.Root)
	for _, r := range j.Records {
		fmt.Fprintf(out, "  %s:%d  %s  %s\n", r.Path, r.Line, p.ok.Sprint(r.RuleID), p.dim.Sprintf("backup %s", r.BackupPath))
	}
	fmt.Fprintf(out, "%d modifications\n", len(j.Records))
	return nil
}
