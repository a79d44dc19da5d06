package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/strrl/split-specs-dashboard/internal/format"
	"github.com/strrl/split-specs-dashboard/internal/viewmodel"
	"github.com/strrl/split-specs-dashboard/pkg/models"
)

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	var status string
	switch {
	case m.confirm != nil:
		status = confirmStyle.Render(m.confirm.prompt)
	case m.notice != nil:
		status = m.notice.View()
	default:
		status = m.loading.View()
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s", m.renderHeader(), m.viewport.View(), status, m.renderFooter())
}

func (m model) renderHeader() string {
	title := "split-specs"
	switch m.currentMode {
	case loginView:
		if m.signUp {
			title += " - Sign up"
		} else {
			title += " - Sign in"
		}
	case projectsView:
		title += " - Projects"
	case projectView:
		title += " - " + m.currentProject
	case sessionView:
		if m.session != nil {
			title += fmt.Sprintf(" - %s / %s", m.currentProject, m.session.ID)
		}
	case historyView:
		title += " - History of " + m.historyFile
	case statsView:
		title += " - Stats of " + m.currentProject
	case apiKeysView:
		title += " - API keys"
	case emulateView:
		title += " - Emulate"
	}
	return headerStyle.Render(title)
}

func (m model) renderFooter() string {
	var info string
	switch m.currentMode {
	case loginView:
		info = "tab: next field • enter: submit • ctrl+n: toggle sign in/up • esc: quit"
	case projectsView:
		info = "↑/↓: navigate • enter: open • a: api keys • e: emulate • r: refresh • L: sign out • q: quit"
	case projectView:
		info = "↑/↓: navigate • enter: open • n/p: page • s: stats • x: delete project • r: refresh • esc: back"
	case sessionView:
		info = "↑/↓: navigate • h: spec history • x: delete session • r: refresh • esc: back"
	case historyView, statsView:
		info = "pgup/pgdown: scroll • esc: back"
	case apiKeysView:
		if m.keyForm != nil {
			info = "enter: create • esc: cancel"
		} else {
			info = "↑/↓: navigate • c: create • x: delete • esc: back"
		}
	case emulateView:
		if m.emulated == nil {
			info = "tab: next field • enter: create session • esc: back"
		} else {
			info = "enter: request next spec • esc: back"
		}
	}
	return dimStyle.Render(info)
}

// renderBody returns the viewport content and the line holding the cursor,
// or -1 when the view has none.
func (m model) renderBody() (string, int) {
	switch m.currentMode {
	case loginView:
		return m.renderLogin(), -1
	case projectsView:
		return m.renderProjects()
	case projectView:
		return m.renderProject()
	case sessionView:
		return m.renderSession()
	case historyView:
		return m.renderHistory(), -1
	case statsView:
		return m.renderStats(), -1
	case apiKeysView:
		return m.renderApiKeys()
	case emulateView:
		return m.renderEmulate(), -1
	}
	return "", -1
}

func cursorPrefix(selected bool) string {
	if selected {
		return "> "
	}
	return "  "
}

func lineStyle(selected bool) lipgloss.Style {
	if selected {
		return selectedStyle
	}
	return normalStyle
}

func (m model) renderLogin() string {
	var s strings.Builder
	action := "Sign in"
	if m.signUp {
		action = "Create an account"
	}
	s.WriteString(titleStyle.Render(action) + "\n\n")
	s.WriteString(m.authForm.view())
	return s.String()
}

func (m model) renderProjects() (string, int) {
	if len(m.projects) == 0 {
		if m.loading.Busy() {
			return "", -1
		}
		return emptyStyle.Render("No projects yet. Press e to emulate a session."), -1
	}

	var s strings.Builder
	for i, name := range m.projects {
		selected := i == m.projectCursor
		s.WriteString(lineStyle(selected).Render(cursorPrefix(selected)+name) + "\n")
	}
	return s.String(), m.projectCursor
}

func (m model) renderProject() (string, int) {
	if m.page == nil {
		return "", -1
	}

	var s strings.Builder
	pager := m.page.Pager
	pageLabel := "no sessions"
	if pager.PageCount() > 0 {
		pageLabel = fmt.Sprintf("page %d of %d", pager.Page+1, pager.PageCount())
	}
	s.WriteString(titleStyle.Render(fmt.Sprintf("%s • %s",
		format.Count("session", pager.Total), pageLabel)) + "\n")
	s.WriteString(dimStyle.Render(fmt.Sprintf("  %-19s  %-19s  %-8s  %-9s  %-12s  %s",
		"Start", "End", "Duration", "Saved", "Machines", "Specs")) + "\n")

	header := 2
	for i, sum := range m.page.Summaries {
		selected := i == m.sessionCursor
		line := fmt.Sprintf("%s%-19s  %-19s  %-8s  ",
			cursorPrefix(selected),
			format.Timestamp(sum.Start),
			format.Timestamp(sum.End),
			sum.DurationLabel)
		saved := fmt.Sprintf("%-9s", sum.SavedLabel)
		rest := fmt.Sprintf("  %-12s  %d", sum.MachineLabel, sum.SpecCount)
		s.WriteString(lineStyle(selected).Render(line) +
			savedStyle(sum.SavedDuration).Render(saved) +
			lineStyle(selected).Render(rest) + "\n")
	}
	return s.String(), header + m.sessionCursor
}

func (m model) renderSession() (string, int) {
	if m.session == nil {
		return "", -1
	}
	sum := m.summary

	var s strings.Builder
	s.WriteString(titleStyle.Render("Session "+sum.ID) + "\n")
	s.WriteString(fmt.Sprintf("Start: %s   End: %s   Duration: %s\n",
		format.Timestamp(sum.Start), format.Timestamp(sum.End), sum.DurationLabel))
	s.WriteString(fmt.Sprintf("Expected serial: %s   Saved: %s   Speed-up: %s   Avg spec: %s\n",
		format.Duration(sum.ExpectedSerialDuration),
		savedStyle(sum.SavedDuration).Render(orPlaceholder(sum.SavedLabel)),
		sum.SpeedUp, sum.AverageSpecDuration))

	machines := viewmodel.MachineStats(*m.session)
	s.WriteString(fmt.Sprintf("%s:", sum.MachineLabel))
	if len(machines) == 0 {
		s.WriteString(" none")
	}
	for _, ms := range machines {
		s.WriteString(fmt.Sprintf("  %s (%s, %s)", ms.Machine, format.Count("spec", ms.Specs), format.Duration(ms.Duration)))
	}
	s.WriteString("\n\n")

	s.WriteString(dimStyle.Render(fmt.Sprintf("  %-40s  %-8s  %-19s  %-19s  %-12s  %s",
		"File", "Estimate", "Start", "End", "Machine", "Status")) + "\n")
	header := 6

	for i, row := range viewmodel.SpecRows(m.session.Backlog) {
		selected := i == m.specCursor
		line := fmt.Sprintf("%s%-40s  %-8s  %-19s  %-19s  %-12s  ",
			cursorPrefix(selected), row.File, row.Estimated, row.Start, row.End, row.Machine)
		s.WriteString(lineStyle(selected).Render(line) + toneStyle(row.Status.Tone).Render(row.Status.Label) + "\n")
	}
	return s.String(), header + m.specCursor
}

func orPlaceholder(s string) string {
	if s == "" {
		return format.Placeholder
	}
	return s
}

func (m model) renderHistory() string {
	if len(m.history) == 0 {
		if m.loading.Busy() {
			return ""
		}
		return emptyStyle.Render("No completed session ran " + m.historyFile)
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(format.Count("run", len(m.history))) + "\n")
	s.WriteString(dimStyle.Render(fmt.Sprintf("%-19s  %-19s  %-8s  %-12s  %-8s  %s",
		"Session start", "Session end", "Estimate", "Machine", "Share %", "Result")) + "\n")
	for _, r := range m.history {
		status := viewmodel.ClassifySpec(specOf(r))
		s.WriteString(fmt.Sprintf("%-19s  %-19s  %-8s  %-12s  %-8s  %s\n",
			format.Timestamp(r.SessionStart),
			format.Timestamp(r.SessionEnd),
			format.Duration(r.EstimatedDuration),
			orPlaceholder(r.AssignedTo),
			r.Share,
			toneStyle(status.Tone).Render(status.Label)))
	}
	return s.String()
}

func specOf(r viewmodel.SpecHistoryRecord) models.Spec {
	return models.Spec{AssignedTo: r.AssignedTo, Start: r.Start, End: r.End, Passed: r.Passed}
}

func (m model) renderStats() string {
	if len(m.fileStats) == 0 {
		if m.loading.Busy() {
			return ""
		}
		return emptyStyle.Render("No completed runs yet")
	}

	sum := m.statsSummary
	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf("%s • %s • pass rate %s",
		format.Count("session", sum.Sessions), format.Count("run", sum.Runs), sum.PassRate.PercentLabel())) + "\n")
	s.WriteString(dimStyle.Render(fmt.Sprintf("%-40s  %4s  %8s  %8s  %8s  %6s  %6s  %8s  %s",
		"File", "Runs", "Avg", "Min", "Max", "Passed", "Failed", "Machines", "Last seen")) + "\n")
	for _, f := range m.fileStats {
		s.WriteString(fmt.Sprintf("%-40s  %4d  %8s  %8s  %8s  %6d  %6d  %8d  %s\n",
			f.File, f.Runs,
			format.Duration(int64(f.AvgDuration)),
			format.Duration(f.MinDuration),
			format.Duration(f.MaxDuration),
			f.Passed, f.Failed, f.Machines,
			format.Timestamp(f.LastSeen)))
	}
	return s.String()
}

func (m model) renderApiKeys() (string, int) {
	var s strings.Builder
	if m.createdKey != "" {
		s.WriteString(titleStyle.Render("New key (shown once): ") + m.createdKey + "\n\n")
	}
	if m.keyForm != nil {
		s.WriteString(m.keyForm.view())
		s.WriteString(dimStyle.Render("Expires " + format.Timestamp(m.svc.DefaultKeyExpiry().Unix())))
		return s.String(), -1
	}
	if len(m.keys) == 0 {
		if m.loading.Busy() {
			return s.String(), -1
		}
		s.WriteString(emptyStyle.Render("No API keys. Press c to create one."))
		return s.String(), -1
	}

	header := strings.Count(s.String(), "\n") + 1
	s.WriteString(dimStyle.Render(fmt.Sprintf("  %-30s  %-19s  %s", "Name", "Expires", "")) + "\n")
	for i, k := range m.keys {
		selected := i == m.keyCursor
		line := fmt.Sprintf("%s%-30s  %-19s  ", cursorPrefix(selected), k.Name, k.ExpireLabel)
		expired := ""
		if k.Expired {
			expired = toneStyle(viewmodel.ToneDanger).Render("expired")
		}
		s.WriteString(lineStyle(selected).Render(line) + expired + "\n")
	}
	return s.String(), header + m.keyCursor
}

func (m model) renderEmulate() string {
	var s strings.Builder
	if m.emulated == nil {
		s.WriteString(titleStyle.Render("Create a session") + "\n\n")
		s.WriteString(m.emulateForm.view())
		return s.String()
	}

	s.WriteString(titleStyle.Render("Session created") + "\n")
	s.WriteString(fmt.Sprintf("project: %s\nid: %s\n\n", m.emulated.ProjectName, m.emulated.SessionID))

	if m.emulateSession == nil {
		s.WriteString(emptyStyle.Render("no specs received") + "\n\n")
	} else {
		s.WriteString(dimStyle.Render(fmt.Sprintf("%-40s  %-8s  %-19s  %-19s  %-12s  %s",
			"Name", "Estimate", "Start", "End", "Machine", "Status")) + "\n")
		for _, row := range viewmodel.SpecRows(m.emulateSession.Backlog) {
			s.WriteString(fmt.Sprintf("%-40s  %-8s  %-19s  %-19s  %-12s  %s\n",
				row.File, row.Estimated, row.Start, row.End, row.Machine,
				toneStyle(row.Status.Tone).Render(row.Status.Label)))
		}
		s.WriteString("\n")
	}

	if m.lastAssignment != "" {
		s.WriteString("next spec: " + selectedStyle.Render(m.lastAssignment) + "\n\n")
	}
	s.WriteString(m.machineForm.view())
	return s.String()
}
