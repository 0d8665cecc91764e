package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"remedy/internal/diag"
	"remedy/internal/report"
)

const messageWidth = 110

type textOpts struct {
	Color    bool
	MaxFiles int
}

type palette struct {
	head, err, warn, ok, dim, accent *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		head:   color.New(color.Bold),
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow),
		ok:     color.New(color.FgGreen),
		dim:    color.New(color.Faint),
		accent: color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{p.head, p.err, p.warn, p.ok, p.dim, p.accent} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	if s == diag.SevWarning {
		return p.warn
	}
	return p.err
}

var titler = cases.Title(language.English)

// categoryTitle turns "missing_member" into "Missing Member".
func categoryTitle(c diag.Category) string {
	return titler.String(strings.ReplaceAll(string(c), "_", " "))
}

func writeReport(out io.Writer, rep *report.Report, diags []*diag.Diagnostic, f runFlags) error {
	switch f.format {
	case formatJSON:
		return report.WriteJSON(out, rep)
	case formatYAML:
		return report.WriteYAML(out, rep)
	case formatShort:
		if len(diags) > 0 {
			_, err := fmt.Fprintln(out, diag.FormatShort(diags))
			return err
		}
		return nil
	default:
		renderText(out, rep, textOpts{Color: f.color, MaxFiles: f.maxFiles})
		return nil
	}
}

func renderText(out io.Writer, rep *report.Report, opts textOpts) {
	p := newPalette(opts.Color)
	t := rep.Totals

	p.head.Fprintf(out, "remedy %s", rep.Mode)
	if rep.LogPath != "" {
		fmt.Fprintf(out, " %s", rep.LogPath)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "diagnostics: %d (%s, %s)\n", t.Diagnostics,
		p.err.Sprintf("%d errors", t.Errors), p.warn.Sprintf("%d warnings", t.Warnings))

	if len(rep.Categories) > 0 {
		fmt.Fprintln(out)
		p.head.Fprintln(out, "categories:")
		for _, c := range rep.Categories {
			fmt.Fprintf(out, "  %-28s %5d\n", categoryTitle(c.Category), c.Count)
		}
	}

	if len(rep.Remediable) > 0 {
		fmt.Fprintln(out)
		p.head.Fprintln(out, "fixable:")
		for _, c := range rep.Remediable {
			fmt.Fprintf(out, "  %-28s %5d  %s\n", categoryTitle(c.Category), c.Count,
				p.dim.Sprint(strings.Join(limit(c.Files, opts.MaxFiles), ", ")))
		}
	}

	if len(rep.Modules) > 0 {
		fmt.Fprintln(out)
		p.head.Fprintln(out, "modules:")
		for _, m := range rep.Modules {
			fmt.Fprintf(out, "  %-28s %5d  %s\n", m.Module, m.Total, p.dim.Sprintf("%d files", m.Files))
		}
	}

	if len(rep.RankedFiles) > 0 {
		fmt.Fprintln(out)
		p.head.Fprintln(out, "top files:")
		for _, fc := range limit(rep.RankedFiles, opts.MaxFiles) {
			fmt.Fprintf(out, "  %-40s %5d", runewidth.Truncate(fc.Path, 40, "..."), fc.Total)
			if fc.Modules > 1 {
				fmt.Fprintf(out, "  %s", p.dim.Sprintf("%d modules", fc.Modules))
			}
			fmt.Fprintln(out)
		}
	}

	if len(rep.Files) > 0 {
		fmt.Fprintln(out)
		p.head.Fprintln(out, "files:")
		files := limit(rep.Files, opts.MaxFiles)
		for _, fr := range files {
			fmt.Fprintf(out, "  %s %s  %s\n", p.accent.Sprint(fr.Path), p.dim.Sprintf("[%s]", fr.Module),
				fileCounts(fr))
			for _, d := range fr.Diagnostics {
				msg := runewidth.Truncate(d.Message, messageWidth, "...")
				fmt.Fprintf(out, "    %d:%d %s [%s] %s\n", d.Line, d.Column,
					p.severity(d.Severity).Sprint(d.Severity), d.Category, msg)
				for _, n := range d.Notes {
					p.dim.Fprintf(out, "      %s\n", runewidth.Truncate(n, messageWidth, "..."))
				}
			}
		}
		if rest := len(rep.Files) - len(files); rest > 0 {
			p.dim.Fprintf(out, "  ... %d more files (raise --max-files)\n", rest)
		}
	}

	if len(rep.Modifications) > 0 {
		fmt.Fprintln(out)
		label := "modified:"
		if rep.Mode != report.ModeApply {
			label = "would modify:"
		}
		p.head.Fprintln(out, label)
		for _, m := range rep.Modifications {
			fmt.Fprintf(out, "  %s:%d  %s", m.Path, m.Line, p.ok.Sprint(m.RuleID))
			if m.BackupPath != "" {
				fmt.Fprintf(out, "  %s", p.dim.Sprintf("backup %s", m.BackupPath))
			}
			fmt.Fprintln(out)
		}
	}

	if len(rep.Skipped) > 0 {
		fmt.Fprintln(out)
		p.head.Fprintln(out, "skipped:")
		for _, s := range rep.Skipped {
			loc := s.Path
			if s.Line > 0 {
				loc = fmt.Sprintf("%s:%d", s.Path, s.Line)
			}
			if s.RuleID != "" {
				loc += " " + s.RuleID
			}
			fmt.Fprintf(out, "  %s: %s\n", loc, p.dim.Sprint(s.Reason))
		}
	}

	if len(rep.Failures) > 0 {
		fmt.Fprintln(out)
		p.err.Fprintln(out, "failures:")
		for _, i := range rep.Failures {
			fmt.Fprintf(out, "  %s\n", i.Error())
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "modified files: %d, rules applied: %d, failures: %d, classification misses: %d\n",
		t.ModifiedFiles, t.RulesApplied, t.Failures, t.Misses)
	if rep.Journal != "" {
		fmt.Fprintf(out, "journal: %s\n", rep.Journal)
	}
	if rep.Partial {
		p.warn.Fprintln(out, "run was interrupted; some files were not processed")
	}
}

// limit returns at most n leading items; n <= 0 means all.
func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func fileCounts(fr report.FileReport) string {
	parts := make([]string, 0, 2)
	if fr.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", fr.Errors))
	}
	if fr.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", fr.Warnings))
	}
	return strings.Join(parts, ", ")
}
