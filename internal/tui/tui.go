// Package tui renders vote summaries for the terminal, as a one-shot report
// or as a live view that refreshes on an interval.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"governance-analytics/internal/rollup"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const fetchTimeout = 10 * time.Second

// Fetcher loads the current summary. A nil summary with a nil error means
// the summary is unavailable right now.
type Fetcher func(ctx context.Context) (*rollup.Summary, error)

// summaryMsg carries the result of one fetch
type summaryMsg struct {
	summary *rollup.Summary
	err     error
	at      time.Time
}

type tickMsg time.Time

// Model holds the TUI state
type Model struct {
	proposalID uint64
	fetch      Fetcher
	interval   time.Duration

	summary   *rollup.Summary
	err       error
	fetchedAt time.Time
	width     int
	height    int
}

func NewModel(proposalID uint64, fetch Fetcher, interval time.Duration) Model {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return Model{proposalID: proposalID, fetch: fetch, interval: interval}
}

// Init starts the first fetch
func (m Model) Init() tea.Cmd {
	return m.fetchCmd()
}

func (m Model) fetchCmd() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		s, err := fetch(ctx)
		return summaryMsg{summary: s, err: err, at: time.Now()}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case summaryMsg:
		m.err = msg.err
		m.fetchedAt = msg.at
		if msg.err == nil {
			m.summary = msg.summary
		}
		return m, m.tickCmd()

	case tickMsg:
		return m, m.fetchCmd()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.fetchCmd()
		}
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 || m.fetchedAt.IsZero() {
		return "Loading..."
	}

	status := fmt.Sprintf("updated %s · r refresh · q quit", m.fetchedAt.Format("15:04:05"))
	if m.err != nil {
		status = fmt.Sprintf("fetch failed: %v · r retry · q quit", m.err)
	}
	footer := mutedStyle.Render(status)

	if m.summary == nil {
		width := max(m.width, minWidth)
		body := lipgloss.JoinVertical(lipgloss.Left,
			topLine(width),
			styledLine(fmt.Sprintf(" Proposal #%d", m.proposalID), width, titleStyle),
			formatInfoLine(" summary unavailable", width),
			bottomLine(width))
		return lipgloss.JoinVertical(lipgloss.Left, body, footer)
	}
	return lipgloss.JoinVertical(lipgloss.Left, Render(*m.summary, m.width), footer)
}

// Watch runs the live view until the user quits or ctx is cancelled.
func Watch(ctx context.Context, proposalID uint64, fetch Fetcher, interval time.Duration) error {
	p := tea.NewProgram(NewModel(proposalID, fetch, interval), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
