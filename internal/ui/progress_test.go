package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"remedy/internal/pipeline"
)

func TestProgressModelAppliesEvents(t *testing.T) {
	ch := make(chan pipeline.Event)
	m := NewProgressModel("remediate", []string{"A.swift", "B.swift"}, ch).(*progressModel)

	m.applyEvent(pipeline.Event{File: "A.swift", Stage: pipeline.StageTransform, Status: pipeline.StatusWorking})
	assert.Equal(t, "fixing", m.items[0].status)
	assert.InDelta(t, 0.2, m.percent(), 1e-9)

	m.applyEvent(pipeline.Event{File: "A.swift", Status: pipeline.StatusDone})
	m.applyEvent(pipeline.Event{File: "B.swift", Status: pipeline.StatusSkipped})
	assert.Equal(t, "done", m.items[0].status)
	assert.Equal(t, "skipped", m.items[1].status)
	assert.InDelta(t, 1.0, m.percent(), 1e-9)

	// unknown files are ignored
	m.applyEvent(pipeline.Event{File: "C.swift", Status: pipeline.StatusError})
	assert.Len(t, m.items, 2)
}

func TestProgressModelView(t *testing.T) {
	ch := make(chan pipeline.Event)
	m := NewProgressModel("remediate", []string{"Sources/App/Very/Long/Path/File.swift"}, ch).(*progressModel)
	m.width = 30
	v := m.View()
	assert.Contains(t, v, "remediate")
	assert.Contains(t, v, "queued")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := truncate("abcdefghijklmnop", 10)
	assert.True(t, strings.HasSuffix(long, "..."))
	assert.LessOrEqual(t, len(long), 10)
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestProgressModelCtrlCInterrupts(t *testing.T) {
	ch := make(chan pipeline.Event)
	m := NewProgressModel("remediate", []string{"A.swift"}, ch)
	assert.False(t, Interrupted(m))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.NotNil(t, cmd)
	assert.True(t, Interrupted(next))
}
