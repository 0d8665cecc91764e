package diag

import (
	"fmt"
	"sort"
)

// Bag is an ordered collection of diagnostics.
type Bag struct {
	items []*Diagnostic
}

func NewBag(capacity int) *Bag {
	if capacity < 0 {
		capacity = 0
	}
	return &Bag{items: make([]*Diagnostic, 0, capacity)}
}

// Add добавляет диагностику в конец.
func (b *Bag) Add(d *Diagnostic) {
	if d == nil {
		return
	}
	b.items = append(b.items, d)
}

// HasErrors возвращает true, если есть хотя бы одна диагностика с Severity >= Error
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity >= SevError {
			return true
		}
	}
	return false
}

// HasWarnings возвращает true, если есть хотя бы одно предупреждение
func (b *Bag) HasWarnings() bool {
	for _, d := range b.items {
		if d.Severity == SevWarning {
			return true
		}
	}
	return false
}

// длина
func (b *Bag) Len() int {
	return len(b.items)
}

// Items возвращает read-only slice диагностик.
// ВАЖНО: не модифицируйте возвращаемый срез! (он указывает на внутренний массив Bag)
func (b *Bag) Items() []*Diagnostic {
	return b.items
}

// Sort сортирует диагностики по: path, line, column, severity (desc), seq
// для стабильного и детерминированного порядка вывода.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.SourcePath != dj.SourcePath {
			return di.SourcePath < dj.SourcePath
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Column != dj.Column {
			return di.Column < dj.Column
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Seq < dj.Seq
	})
}

// простая дедупликация (по позиции, severity и тексту); первое вхождение остаётся
func (b *Bag) Dedup() int {
	seen := make(map[string]bool, len(b.items))
	kept := make([]*Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		key := fmt.Sprintf("%s:%d:%d:%d:%s", d.SourcePath, d.Line, d.Column, d.Severity, d.Message)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, d)
	}
	dropped := len(b.items) - len(kept)
	b.items = kept
	return dropped
}
