// Package aggregate computes read-only counts and rankings over classified
// diagnostics. Ties are always broken by first appearance in the input.
package aggregate

import (
	"sort"

	"remedy/internal/diag"
)

// CategoryCount is one row of the category ranking.
type CategoryCount struct {
	Category diag.Category `json:"category" yaml:"category"`
	Count    int           `json:"count" yaml:"count"`
}

// FileGroup collects the diagnostics of one file within one module.
type FileGroup struct {
	Module      string             `json:"module" yaml:"module"`
	Path        string             `json:"path" yaml:"path"`
	Total       int                `json:"total" yaml:"total"`
	Errors      int                `json:"errors" yaml:"errors"`
	Warnings    int                `json:"warnings" yaml:"warnings"`
	Categories  []CategoryCount    `json:"categories" yaml:"categories"`
	Diagnostics []*diag.Diagnostic `json:"-" yaml:"-"`
}

// ModuleCount is one row of the module ranking.
type ModuleCount struct {
	Module   string `json:"module" yaml:"module"`
	Total    int    `json:"total" yaml:"total"`
	Errors   int    `json:"errors" yaml:"errors"`
	Warnings int    `json:"warnings" yaml:"warnings"`
	Files    int    `json:"files" yaml:"files"`
}

// FileCount is one row of the per-path ranking. A path compiled into several
// modules is counted once with the totals of all of them.
type FileCount struct {
	Path     string `json:"path" yaml:"path"`
	Total    int    `json:"total" yaml:"total"`
	Errors   int    `json:"errors" yaml:"errors"`
	Warnings int    `json:"warnings" yaml:"warnings"`
	Modules  int    `json:"modules" yaml:"modules"`
}

// Summary is the aggregate view of one run.
type Summary struct {
	Total    int
	Errors   int
	Warnings int
	// ByCategory maps each category to its count.
	ByCategory map[diag.Category]int
	// Categories is ranked by descending count.
	Categories []CategoryCount
	// Files holds one group per (module, path), ranked by descending total.
	Files []FileGroup
	// Modules is ranked by descending total.
	Modules []ModuleCount
	// RankedFiles holds one row per path, ranked by descending total.
	RankedFiles []FileCount
}

type fileKey struct {
	module string
	path   string
}

// Aggregate groups and ranks diags. It never modifies them.
func Aggregate(diags []*diag.Diagnostic) Summary {
	s := Summary{ByCategory: make(map[diag.Category]int)}

	catOrder := make([]diag.Category, 0, 16)
	fileIdx := make(map[fileKey]int)
	fileCats := make([]map[diag.Category]int, 0)
	fileCatOrder := make([][]diag.Category, 0)
	modIdx := make(map[string]int)
	modFiles := make([]map[string]bool, 0)
	pathIdx := make(map[string]int)
	pathMods := make([]map[string]bool, 0)

	for _, d := range diags {
		cat := d.Category()
		if cat == "" {
			cat = diag.Fallback(d.Severity)
		}
		s.Total++
		isErr := d.Severity >= diag.SevError
		if isErr {
			s.Errors++
		} else {
			s.Warnings++
		}

		if _, ok := s.ByCategory[cat]; !ok {
			catOrder = append(catOrder, cat)
		}
		s.ByCategory[cat]++

		module := d.Module
		if module == "" {
			module = diag.UnknownModule
		}
		key := fileKey{module: module, path: d.SourcePath}
		fi, ok := fileIdx[key]
		if !ok {
			fi = len(s.Files)
			fileIdx[key] = fi
			s.Files = append(s.Files, FileGroup{Module: module, Path: d.SourcePath})
			fileCats = append(fileCats, make(map[diag.Category]int))
			fileCatOrder = append(fileCatOrder, nil)
		}
		g := &s.Files[fi]
		g.Total++
		if isErr {
			g.Errors++
		} else {
			g.Warnings++
		}
		g.Diagnostics = append(g.Diagnostics, d)
		if _, seen := fileCats[fi][cat]; !seen {
			fileCatOrder[fi] = append(fileCatOrder[fi], cat)
		}
		fileCats[fi][cat]++

		pi, ok := pathIdx[d.SourcePath]
		if !ok {
			pi = len(s.RankedFiles)
			pathIdx[d.SourcePath] = pi
			s.RankedFiles = append(s.RankedFiles, FileCount{Path: d.SourcePath})
			pathMods = append(pathMods, make(map[string]bool))
		}
		fc := &s.RankedFiles[pi]
		fc.Total++
		if isErr {
			fc.Errors++
		} else {
			fc.Warnings++
		}
		if !pathMods[pi][module] {
			pathMods[pi][module] = true
			fc.Modules++
		}

		mi, ok := modIdx[module]
		if !ok {
			mi = len(s.Modules)
			modIdx[module] = mi
			s.Modules = append(s.Modules, ModuleCount{Module: module})
			modFiles = append(modFiles, make(map[string]bool))
		}
		m := &s.Modules[mi]
		m.Total++
		if isErr {
			m.Errors++
		} else {
			m.Warnings++
		}
		if !modFiles[mi][d.SourcePath] {
			modFiles[mi][d.SourcePath] = true
			m.Files++
		}
	}

	s.Categories = rankCategories(catOrder, s.ByCategory)
	for i := range s.Files {
		s.Files[i].Categories = rankCategories(fileCatOrder[i], fileCats[i])
	}
	sort.SliceStable(s.Files, func(i, j int) bool {
		return s.Files[i].Total > s.Files[j].Total
	})
	sort.SliceStable(s.Modules, func(i, j int) bool {
		return s.Modules[i].Total > s.Modules[j].Total
	})
	sort.SliceStable(s.RankedFiles, func(i, j int) bool {
		return s.RankedFiles[i].Total > s.RankedFiles[j].Total
	})
	return s
}

// rankCategories orders categories by descending count; order holds first
// appearance and breaks ties.
func rankCategories(order []diag.Category, counts map[diag.Category]int) []CategoryCount {
	out := make([]CategoryCount, 0, len(order))
	for _, c := range order {
		out = append(out, CategoryCount{Category: c, Count: counts[c]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// FilesIn returns the distinct paths that have diagnostics of cat, in ranking order.
func (s Summary) FilesIn(cat diag.Category) []string {
	var out []string
	seen := make(map[string]bool)
	for _, g := range s.Files {
		for _, c := range g.Categories {
			if c.Category == cat && !seen[g.Path] {
				seen[g.Path] = true
				out = append(out, g.Path)
			}
		}
	}
	return out
}
