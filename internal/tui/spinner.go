package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/strrl/split-specs-dashboard/internal/sessions"
)

// NoticeTTL is how long a notification stays before it dismisses itself.
const NoticeTTL = 10 * time.Second

// Spinner represents a loading spinner
type Spinner struct {
	frames []string
	frame  int
}

// NewSpinner creates a new spinner
func NewSpinner() *Spinner {
	return &Spinner{
		frames: []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"},
	}
}

// Next advances the spinner to the next frame
func (s *Spinner) Next() {
	s.frame = (s.frame + 1) % len(s.frames)
}

// View returns the current spinner frame
func (s *Spinner) View() string {
	return s.frames[s.frame]
}

// LoadingIndicator shows a spinner next to the current loading state
type LoadingIndicator struct {
	spinner *Spinner
	state   sessions.LoadingState
}

// NewLoadingIndicator creates an idle indicator
func NewLoadingIndicator() *LoadingIndicator {
	return &LoadingIndicator{spinner: NewSpinner()}
}

// Set changes the state. It reports whether the indicator went from idle to
// busy, in which case the caller starts ticking.
func (l *LoadingIndicator) Set(state sessions.LoadingState) bool {
	wasBusy := l.Busy()
	l.state = state
	return !wasBusy && l.Busy()
}

// State returns the current state
func (l *LoadingIndicator) State() sessions.LoadingState {
	return l.state
}

// Busy reports whether a remote call is in flight
func (l *LoadingIndicator) Busy() bool {
	return l.state != sessions.StateIdle && l.state != sessions.StateError
}

// Tick advances the spinner animation
func (l *LoadingIndicator) Tick() {
	l.spinner.Next()
}

// View renders the indicator, empty when not busy
func (l *LoadingIndicator) View() string {
	if !l.Busy() {
		return ""
	}
	spinnerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	messageStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	return fmt.Sprintf("%s %s…",
		spinnerStyle.Render(l.spinner.View()),
		messageStyle.Render(l.state.String()))
}

// Notification is a dismissible message shown above the footer
type Notification struct {
	ID    int
	Text  string
	Error bool
}

// View renders the notification
func (n Notification) View() string {
	if n.Error {
		return errorNoticeStyle.Render("✗ " + n.Text + "  [esc]")
	}
	return infoNoticeStyle.Render("✓ " + n.Text + "  [esc]")
}

// expireNoticeCmd dismisses notification id after NoticeTTL unless a newer
// one replaced it.
func expireNoticeCmd(id int) tea.Cmd {
	return tea.Tick(NoticeTTL, func(time.Time) tea.Msg {
		return NoticeExpiredMsg{ID: id}
	})
}

// tickCmd creates a ticker for spinner animation
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
