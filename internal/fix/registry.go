package fix

import (
	"fmt"

	"remedy/internal/config"
	"remedy/internal/diag"
)

// Kind says whether a remedy may change the number of lines in a file.
type Kind uint8

const (
	// LineLocal remedies edit only the reported line and keep the line count.
	LineLocal Kind = iota
	// Structural remedies may insert lines and run after all line-local ones.
	Structural
)

func (k Kind) String() string {
	if k == Structural {
		return "structural"
	}
	return "line-local"
}

// Remedy is a named transform registered for a category.
type Remedy struct {
	ID       string
	Category diag.Category
	Title    string
	Kind     Kind
	Apply    Transform
}

// Option mutates a remedy during construction.
type Option func(*Remedy)

// WithTitle sets a human-readable description.
func WithTitle(title string) Option {
	return func(r *Remedy) {
		r.Title = title
	}
}

// AsStructural marks the remedy as one that may insert lines.
func AsStructural() Option {
	return func(r *Remedy) {
		r.Kind = Structural
	}
}

// NewRemedy builds a line-local remedy unless options say otherwise.
func NewRemedy(id string, cat diag.Category, apply Transform, opts ...Option) Remedy {
	r := Remedy{ID: id, Category: cat, Title: id, Kind: LineLocal, Apply: apply}
	for _, opt := range opts {
		if opt != nil {
			opt(&r)
		}
	}
	return r
}

// Registry maps categories to their remedies in registration order.
type Registry struct {
	byCat map[diag.Category][]Remedy
	ids   map[string]bool
}

func NewEmptyRegistry() *Registry {
	return &Registry{byCat: make(map[diag.Category][]Remedy), ids: make(map[string]bool)}
}

// NewRegistry returns the built-in remedies bound to the configured tables.
func NewRegistry(cfg config.Remediation) *Registry {
	r := NewEmptyRegistry()
	for _, rem := range []Remedy{
		NewRemedy("missing_member.rename", diag.CatMissingMember, RenameMember(cfg),
			WithTitle("replace a removed member with its configured successor")),
		NewRemedy("extraneous_close_brace.remove", diag.CatExtraneousCloseBrace, RemoveExtraBrace,
			WithTitle("blank a stray closing brace")),
		NewRemedy("unterminated_string.unescape", diag.CatUnterminatedString, UnescapeQuotes,
			WithTitle("unescape quotes in an @available attribute")),
		NewRemedy("sendable_property.annotate", diag.CatSendableProperty, AnnotateSendable,
			WithTitle("mark a closure-typed property @Sendable")),
		NewRemedy("type_not_found.import", diag.CatTypeNotFound, EnsureStatement(ImportForType(cfg)),
			WithTitle("add the import or alias that declares the type"), AsStructural()),
	} {
		// Built-in ids are unique.
		_ = r.Register(rem)
	}
	return r
}

// Register appends rem to its category.
func (r *Registry) Register(rem Remedy) error {
	if rem.ID == "" || rem.Category == "" || rem.Apply == nil {
		return fmt.Errorf("fix: remedy needs id, category and transform")
	}
	if r.ids[rem.ID] {
		return fmt.Errorf("fix: duplicate remedy id %q", rem.ID)
	}
	r.ids[rem.ID] = true
	r.byCat[rem.Category] = append(r.byCat[rem.Category], rem)
	return nil
}

// For returns the remedies for cat.
func (r *Registry) For(cat diag.Category) []Remedy {
	return r.byCat[cat]
}

// Remediable reports whether any remedy exists for cat.
func (r *Registry) Remediable(cat diag.Category) bool {
	return len(r.byCat[cat]) > 0
}
