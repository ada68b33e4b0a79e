package main

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dd0wney/cluso-flowscope/pkg/config"
	"github.com/dd0wney/cluso-flowscope/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, file string) model {
	t.Helper()
	m := initialModel(filepath.Join("../../examples/workflows", file), config.Default(), logging.NewNopLogger())
	require.False(t, m.messageErr, m.message)
	return m
}

func press(m model, msg tea.KeyMsg) model {
	next, _ := m.Update(msg)
	return next.(model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelLoadsEveryLevel(t *testing.T) {
	m := newTestModel(t, "loop.yaml")

	require.Len(t, m.reports, 2)
	assert.Equal(t, "loop-demo", m.reports[0].Name)
	assert.Len(t, m.nodeTable.Rows(), 4)
	assert.Contains(t, m.View(), "no structural errors")
}

func TestModelTabsCycleLevels(t *testing.T) {
	m := newTestModel(t, "loop.yaml")

	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, m.current)
	assert.Len(t, m.nodeTable.Rows(), 1)

	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, m.current)

	m = press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 1, m.current)
}

func TestModelFilterNarrowsRows(t *testing.T) {
	m := newTestModel(t, "broken.yaml")

	m = press(m, runes("/"))
	require.True(t, m.filter.Focused())
	for _, r := range "open" {
		m = press(m, runes(string(r)))
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.filter.Focused())
	rows := m.nodeTable.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "Open Loop", rows[0][1])
}

func TestModelErrorsView(t *testing.T) {
	m := newTestModel(t, "broken.yaml")

	m = press(m, runes("e"))
	assert.Equal(t, errorsView, m.view)
	assert.NotEmpty(t, m.errorList.Items())

	m = press(m, runes("e"))
	assert.Equal(t, nodesView, m.view)
}

func TestModelCycleStateRecomputes(t *testing.T) {
	m := newTestModel(t, "loop.yaml")

	// First row is the reader, which starts configured.
	require.Equal(t, "Reader", m.nodeTable.SelectedRow()[1])
	require.Equal(t, "configured", m.nodeTable.SelectedRow()[2])

	m = press(m, runes("s"))
	assert.False(t, m.messageErr, m.message)
	assert.Equal(t, "queued", m.nodeTable.SelectedRow()[2])
	assert.Contains(t, m.message, "queued")
}

func TestModelReportsMissingFile(t *testing.T) {
	m := initialModel("does-not-exist.yaml", config.Default(), logging.NewNopLogger())
	assert.True(t, m.messageErr)
	assert.Contains(t, m.View(), "No workflow loaded")
}
