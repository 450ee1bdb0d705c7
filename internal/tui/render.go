package tui

import (
	"fmt"
	"strings"

	"governance-analytics/internal/address"
	"governance-analytics/internal/rollup"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const minWidth = 40

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	forStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	againstSty = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	mutedStyle = lipgloss.NewStyle().Faint(true)
)

func padToWidth(s string, width int) string {
	current := runewidth.StringWidth(s)
	if current >= width {
		return runewidth.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-current)
}

func topLine(width int) string {
	return "┌" + strings.Repeat("─", width-2) + "┐"
}

func separatorLine(width int) string {
	if width < 2 {
		return strings.Repeat("─", width)
	}
	return "├" + strings.Repeat("─", width-2) + "┤"
}

func bottomLine(width int) string {
	return "└" + strings.Repeat("─", width-2) + "┘"
}

func formatInfoLine(text string, width int) string {
	if width < 2 {
		return padToWidth(text, width)
	}
	return "│" + padToWidth(text, width-2) + "│"
}

// styledLine pads before styling so escape codes never count toward width.
func styledLine(text string, width int, style lipgloss.Style) string {
	return "│" + style.Render(padToWidth(text, width-2)) + "│"
}

func wrapLines(text string, width int) []string {
	return strings.Split(runewidth.Wrap(text, width), "\n")
}

func bar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(pct/100*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func voterLabel(s string) string {
	if address.IsValid(s) {
		return address.Short(s)
	}
	return runewidth.Truncate(s, 15, "…")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Render draws a boxed report of one summary, width columns wide.
func Render(s rollup.Summary, width int) string {
	if width < minWidth {
		width = minWidth
	}
	inner := width - 4 // borders and one space of padding on each side
	t := s.VotingTrends

	var lines []string
	lines = append(lines, topLine(width))
	lines = append(lines, styledLine(fmt.Sprintf(" Proposal #%d", s.ProposalID), width, titleStyle))
	lines = append(lines, separatorLine(width))

	barWidth := inner - 18
	rows := []struct {
		label string
		pct   float64
		style lipgloss.Style
	}{
		{"For", t.ForPercentage, forStyle},
		{"Against", t.AgainstPercentage, againstSty},
		{"Abstain", t.AbstainPercentage, mutedStyle},
	}
	for _, r := range rows {
		text := fmt.Sprintf(" %-8s %6.1f%%  %s", r.label, r.pct, bar(r.pct, barWidth))
		lines = append(lines, styledLine(text, width, r.style))
	}
	lines = append(lines, formatInfoLine(fmt.Sprintf(" votes: %d  weight: %.2f  quorum: %s  majority: %s",
		t.TotalVotes, t.TotalWeight, yesNo(t.QuorumReached), yesNo(t.MajorityReached)), width))

	lines = append(lines, separatorLine(width))
	lines = append(lines, styledLine(fmt.Sprintf(" Largest voters (%.1f%% of weight)", s.WhaleActivity.WhaleInfluence), width, titleStyle))
	if len(s.WhaleActivity.LargestVoters) == 0 {
		lines = append(lines, formatInfoLine(" none", width))
	}
	for i, v := range s.WhaleActivity.LargestVoters {
		lines = append(lines, formatInfoLine(fmt.Sprintf(" %d. %-15s %-8s %.2f", i+1, voterLabel(v.Address), v.VoteType, v.VotingPower), width))
	}

	lines = append(lines, separatorLine(width))
	lines = append(lines, styledLine(" Insights", width, titleStyle))
	for _, in := range s.Insights {
		for i, l := range wrapLines(in, inner-2) {
			prefix := "   "
			if i == 0 {
				prefix = " • "
			}
			lines = append(lines, formatInfoLine(prefix+l, width))
		}
	}

	lines = append(lines, separatorLine(width))
	for _, l := range wrapLines(s.Summary, inner) {
		lines = append(lines, formatInfoLine(" "+l, width))
	}
	lines = append(lines, bottomLine(width))

	return strings.Join(lines, "\n")
}
