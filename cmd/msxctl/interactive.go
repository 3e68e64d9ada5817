package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/msx-toolkit/scenario"
)

const playInterval = 50 * time.Millisecond

type modelState int

const (
	stateReady modelState = iota
	statePlaying
	stateDone
	stateFailed
)

type interactiveModel struct {
	ctx      context.Context
	run      *scenario.Session
	filename string
	probes   []scenario.Probe
	bar      progress.Model
	last     scenario.Sample
	first    []float64
	err      error
	state    modelState
	started  bool
	busy     bool
}

type stepMsg struct {
	smp scenario.Sample
	err error
}

type tickMsg struct{}

type finishedMsg struct{ err error }

func newInteractiveModel(ctx context.Context, filename string, run *scenario.Session) *interactiveModel {
	return &interactiveModel{
		ctx:      ctx,
		run:      run,
		filename: filename,
		probes:   run.Probes(),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(min(terminalWidth(80)-4, 60))),
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) step() tea.Msg {
	if !m.started {
		if err := m.run.Init(m.ctx); err != nil {
			return stepMsg{err: err}
		}
		m.started = true
	}
	smp, err := m.run.Step(m.ctx)
	return stepMsg{smp: smp, err: err}
}

func (m *interactiveModel) finish() tea.Msg {
	return finishedMsg{err: m.run.Finish(m.ctx)}
}

func tick() tea.Cmd {
	return tea.Tick(playInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateDone || m.state == stateFailed {
				return m, tea.Quit
			}
			// Stop here: close the project without writing outputs.
			m.run.Close(m.ctx)
			return m, tea.Quit

		case " ", "enter", "n":
			if m.state == stateReady && !m.busy {
				m.busy = true
				return m, m.step
			}

		case "r":
			if m.state == stateReady {
				m.state = statePlaying
				if !m.busy {
					m.busy = true
					return m, m.step
				}
			}

		case "p":
			if m.state == statePlaying {
				m.state = stateReady
			}
		}

	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, 60)

	case stepMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.state = stateFailed
			m.run.Close(m.ctx)
			return m, nil
		}
		m.last = msg.smp
		if m.first == nil {
			m.first = msg.smp.Values
		}
		if msg.smp.Clock.Done() {
			m.busy = true
			return m, m.finish
		}
		if m.state == statePlaying {
			return m, tick()
		}

	case tickMsg:
		if m.state == statePlaying && !m.busy {
			m.busy = true
			return m, m.step
		}

	case finishedMsg:
		m.busy = false
		m.err = msg.err
		m.state = stateDone
		if msg.err != nil {
			m.state = stateFailed
		}
	}
	return m, nil
}

func (m *interactiveModel) fraction() float64 {
	c := m.last.Clock
	total := c.Time + c.TimeLeft
	if total <= 0 {
		if m.state == stateDone {
			return 1
		}
		return 0
	}
	return float64(c.Time) / float64(total)
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("MSX Stepper"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	b.WriteString(m.bar.ViewAs(m.fraction()))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %d  %s\n\n", labelStyle.Render("step"), m.run.Steps(), clockText(m.last.Clock))

	if len(m.probes) == 0 {
		b.WriteString(helpStyle.Render("No watched values. Add a watch list to the run file."))
		b.WriteString("\n")
	} else {
		width := 0
		for _, p := range m.probes {
			width = max(width, len(p.Label))
		}
		fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("%-*s  %14s  %14s", width, "watch", "initial", "current")))
		for i, p := range m.probes {
			initial, current := "-", "-"
			if m.first != nil {
				initial = fmt.Sprintf("%.6g", m.first[i])
				current = fmt.Sprintf("%.6g", m.last.Values[i])
			}
			fmt.Fprintf(&b, "%-*s  %14s  %s\n", width, p.Label, initial, valueStyle.Render(fmt.Sprintf("%14s", current)))
		}
	}
	b.WriteString("\n")

	switch m.state {
	case stateReady:
		b.WriteString(helpStyle.Render("space step • r run • q quit"))
	case statePlaying:
		b.WriteString(warnStyle.Render("running"))
		b.WriteString("  ")
		b.WriteString(helpStyle.Render("p pause • q quit"))
	case stateDone:
		b.WriteString(labelStyle.Render("Simulation complete."))
		b.WriteString("  ")
		b.WriteString(helpStyle.Render("q quit"))
	case stateFailed:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q quit"))
	}
	b.WriteString("\n")
	return b.String()
}
