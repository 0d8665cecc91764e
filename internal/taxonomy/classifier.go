package taxonomy

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"remedy/internal/diag"
)

// Match is the result of classifying one message.
type Match struct {
	Category diag.Category
	// RuleID is empty for fallbacks.
	RuleID   string
	Captures diag.Captures
	Fallback bool
}

// Stats counts classification outcomes for a run.
type Stats struct {
	Matched    int
	Fallbacks  int
	ByCategory map[diag.Category]int
	// Misses lists the diagnostics that fell back, in input order.
	Misses []diag.Issue
}

// Classifier is safe for concurrent use. Matching is pure, so results are
// memoised by severity and message.
type Classifier struct {
	table *Table
	cache *lru.Cache[string, Match]
	log   *zap.Logger
}

// NewClassifier returns a classifier over table. cacheSize <= 0 disables the cache.
func NewClassifier(table *Table, cacheSize int, log *zap.Logger) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Classifier{table: table, log: log}
	if cacheSize > 0 {
		cache, err := lru.New[string, Match](cacheSize)
		if err == nil {
			c.cache = cache
		}
	}
	return c
}

// Match returns the first rule matching msg, or the fallback for sev.
func (c *Classifier) Match(sev diag.Severity, msg string) Match {
	key := strconv.Itoa(int(sev)) + "\x00" + msg
	if c.cache != nil {
		if m, ok := c.cache.Get(key); ok {
			return m
		}
	}
	m := c.match(sev, msg)
	if c.cache != nil {
		c.cache.Add(key, m)
	}
	return m
}

func (c *Classifier) match(sev diag.Severity, msg string) Match {
	for _, r := range c.table.rules {
		if caps, ok := r.matches(sev, msg); ok {
			return Match{Category: r.Category, RuleID: r.ID, Captures: caps}
		}
	}
	return Match{Category: diag.Fallback(sev), Fallback: true}
}

// Classify assigns d its category and returns the match used.
func (c *Classifier) Classify(d *diag.Diagnostic) (Match, error) {
	m := c.Match(d.Severity, d.Message)
	var caps diag.Captures
	if len(m.Captures) > 0 {
		caps = make(diag.Captures, len(m.Captures))
		for k, v := range m.Captures {
			caps[k] = v
		}
	}
	if err := d.Classify(m.Category, m.RuleID, caps); err != nil {
		return m, err
	}
	return m, nil
}

// ClassifyAll classifies every diagnostic not yet classified.
func (c *Classifier) ClassifyAll(diags []*diag.Diagnostic) Stats {
	st := Stats{ByCategory: make(map[diag.Category]int)}
	for _, d := range diags {
		if d.Classified() {
			st.ByCategory[d.Category()]++
			continue
		}
		m, err := c.Classify(d)
		if err != nil {
			c.log.Warn("classify", zap.Error(err))
			continue
		}
		st.ByCategory[m.Category]++
		if m.Fallback {
			st.Fallbacks++
			st.Misses = append(st.Misses, diag.Issue{
				Kind:   diag.ClassificationMiss,
				Path:   d.SourcePath,
				Line:   int(d.Line),
				Reason: "no rule matched: " + d.Message,
			})
			continue
		}
		st.Matched++
	}
	c.log.Debug("classified",
		zap.Int("matched", st.Matched),
		zap.Int("fallbacks", st.Fallbacks))
	return st
}
