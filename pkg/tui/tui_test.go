package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/risk"
)

func sampleSnapshot(t *testing.T) Snapshot {
	t.Helper()
	g := bowtie.NewGraph()
	top, err := g.SetTopEvent("Loss of containment")
	require.NoError(t, err)
	threat, err := g.AddNode(bowtie.NewThreat("Overpressure", 5, 4))
	require.NoError(t, err)
	barrier, err := g.AddNode(bowtie.NewBarrier("Relief valve", bowtie.Preventive, 50))
	require.NoError(t, err)
	_, err = g.Connect(threat.ID, barrier.ID)
	require.NoError(t, err)
	_, err = g.Connect(barrier.ID, top.ID)
	require.NoError(t, err)

	return Snapshot{
		Title:       "refinery",
		Graph:       g,
		Report:      risk.Compute(g),
		Diagnostics: bowtie.Diagnose(g),
	}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func loaded(t *testing.T) Model {
	t.Helper()
	snap := sampleSnapshot(t)
	m := New(func() (Snapshot, error) { return snap, nil })
	m, _ = update(t, m, loadedMsg{snap: snap})
	return m
}

func TestModel_InitLoads(t *testing.T) {
	snap := sampleSnapshot(t)
	calls := 0
	m := New(func() (Snapshot, error) {
		calls++
		return snap, nil
	})

	cmd := m.Init()
	require.NotNil(t, cmd)
	msg := cmd()
	lm, ok := msg.(loadedMsg)
	require.True(t, ok)
	assert.Equal(t, 1, calls)
	assert.NoError(t, lm.err)

	assert.Contains(t, m.View(), "Loading...")
	m, _ = update(t, m, lm)
	view := m.View()
	assert.Contains(t, view, "refinery")
	assert.Contains(t, view, "Overpressure")
	assert.Contains(t, view, "Loaded 3 nodes")
}

func TestModel_SelectionDetails(t *testing.T) {
	m := loaded(t)

	row, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, bowtie.KindThreat, row.Kind)
	assert.Contains(t, m.View(), "Base: 20 → Residual: 10")

	m, _ = update(t, m, keyRune('j'))
	row, ok = m.Selected()
	require.True(t, ok)
	assert.Equal(t, bowtie.KindBarrier, row.Kind)
	assert.Contains(t, m.View(), "Effectiveness: 50%")
}

func TestModel_Tabs(t *testing.T) {
	m := loaded(t)
	assert.Equal(t, nodesView, m.currentView)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, summaryView, m.currentView)
	assert.Contains(t, m.View(), "threats Σ 10")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, diagnosticsView, m.currentView)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, nodesView, m.currentView)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, diagnosticsView, m.currentView)
}

func TestModel_LoadErrorKeepsSnapshot(t *testing.T) {
	m := loaded(t)

	m, _ = update(t, m, loadedMsg{err: errors.New("file vanished")})
	view := m.View()
	assert.Contains(t, view, "Load error: file vanished")
	assert.Contains(t, view, "Overpressure")
	assert.True(t, m.messageErr)
}

func TestModel_ReloadAndQuit(t *testing.T) {
	m := loaded(t)

	_, cmd := update(t, m, keyRune('r'))
	require.NotNil(t, cmd)
	_, ok := cmd().(loadedMsg)
	assert.True(t, ok)

	_, cmd = update(t, m, keyRune('q'))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModel_CursorClampedOnShrink(t *testing.T) {
	m := loaded(t)
	m, _ = update(t, m, keyRune('j'))
	m, _ = update(t, m, keyRune('j'))

	g := bowtie.NewGraph()
	_, err := g.SetTopEvent("Only")
	require.NoError(t, err)
	m, _ = update(t, m, loadedMsg{snap: Snapshot{Graph: g, Report: risk.Compute(g)}})

	row, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "Only", row.Label)
}
