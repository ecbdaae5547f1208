package view

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cv-app-yz/cv-app/internal/submission"
)

// ErrInterrupted is returned when the user quits while a submission is in flight.
var ErrInterrupted = errors.New("interrupted")

type snapshotMsg submission.Snapshot

type submitDoneMsg struct {
	outcome submission.Outcome
	err     error
}

type progressModel struct {
	label    string
	submit   func() (submission.Outcome, error)
	spinner  spinner.Model
	snapshot submission.Snapshot
	outcome  submission.Outcome
	err      error
	done     bool
}

func newProgressModel(label string, submit func() (submission.Outcome, error)) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return progressModel{
		label:   label,
		submit:  submit,
		spinner: s,
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.doSubmit(), m.spinner.Tick)
}

func (m progressModel) doSubmit() tea.Cmd {
	submit := m.submit
	return func() tea.Msg {
		outcome, err := submit()
		return submitDoneMsg{outcome: outcome, err: err}
	}
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case submitDoneMsg:
		m.outcome = msg.outcome
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case snapshotMsg:
		m.snapshot = submission.Snapshot(msg)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = ErrInterrupted
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}

	line := fmt.Sprintf("%s Analyzing %s...", m.spinner.View(), m.label)
	if m.snapshot.Blocked() && m.snapshot.AttemptID != "" {
		line += mutedStyle.Render(fmt.Sprintf("  (attempt %s)", shortID(m.snapshot.AttemptID)))
	}
	return line + "\n"
}

// RunSubmission shows a spinner while submit runs. The spinner line follows the
// controller's snapshots and disappears once the submission resolves.
func RunSubmission(ctrl *submission.Controller, label string, submit func() (submission.Outcome, error)) (submission.Outcome, error) {
	p := tea.NewProgram(newProgressModel(label, submit))

	unsubscribe := ctrl.OnChange(func(s submission.Snapshot) {
		p.Send(snapshotMsg(s))
	})
	defer unsubscribe()

	final, err := p.Run()
	if err != nil {
		return submission.OutcomeFailed, err
	}

	m := final.(progressModel)
	return m.outcome, m.err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
