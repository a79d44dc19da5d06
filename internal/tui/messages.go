package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/strrl/split-specs-dashboard/internal/sessions"
	"github.com/strrl/split-specs-dashboard/internal/stats"
	"github.com/strrl/split-specs-dashboard/internal/viewmodel"
	"github.com/strrl/split-specs-dashboard/pkg/models"
)

// Message types for async operations
type (
	// ProjectsLoadedMsg contains the project names
	ProjectsLoadedMsg struct {
		Projects []string
		Error    error
	}

	// ProjectPageLoadedMsg contains one page of a project's sessions
	ProjectPageLoadedMsg struct {
		Page  *sessions.ProjectPage
		Error error
	}

	// SessionLoadedMsg contains a session snapshot
	SessionLoadedMsg struct {
		Session *models.Session
		Error   error
	}

	// HistoryLoadedMsg contains the history of one spec file
	HistoryLoadedMsg struct {
		Project string
		File    string
		Records []viewmodel.SpecHistoryRecord
		Error   error
	}

	// StatsLoadedMsg contains project-wide file statistics
	StatsLoadedMsg struct {
		Project string
		Files   []stats.FileStats
		Summary stats.Summary
		Error   error
	}

	// ApiKeysLoadedMsg contains the user's API keys
	ApiKeysLoadedMsg struct {
		Keys  []sessions.ApiKeyRow
		Error error
	}

	// ApiKeyCreatedMsg carries the secret of a new key
	ApiKeyCreatedMsg struct {
		Name  string
		Key   string
		Error error
	}

	// SessionCreatedMsg is sent after an emulated session is created
	SessionCreatedMsg struct {
		Info  *models.SessionInfo
		Error error
	}

	// NextSpecLoadedMsg carries a nextSpec assignment and the refreshed session
	NextSpecLoadedMsg struct {
		Machine string
		Result  *sessions.NextSpecResult
		Error   error
	}

	// DeletedMsg is sent after a delete mutation resolves
	DeletedMsg struct {
		Kind  string // "session", "project" or "api key"
		ID    string
		Error error
	}

	// SignedInMsg is sent after a sign in or sign up attempt
	SignedInMsg struct {
		Error error
	}

	// SignedOutMsg is sent after the user signed out
	SignedOutMsg struct {
		Error error
	}

	// AuthChangedMsg relays a gate state change into the program
	AuthChangedMsg struct {
		LoggedIn bool
	}

	// NoticeExpiredMsg dismisses a notification
	NoticeExpiredMsg struct {
		ID int
	}

	// TickMsg is sent periodically for spinner animation
	TickMsg time.Time
)

// Commands for async operations. Each one only talks to the service; the
// model decides what to re-fetch once the message arrives.

func loadProjectsCmd(ctx context.Context, svc *sessions.Service) tea.Cmd {
	return func() tea.Msg {
		projects, err := svc.FetchProjects(ctx)
		return ProjectsLoadedMsg{Projects: projects, Error: err}
	}
}

func loadProjectPageCmd(ctx context.Context, svc *sessions.Service, name string, pager viewmodel.Pager) tea.Cmd {
	return func() tea.Msg {
		page, err := svc.FetchProjectPage(ctx, name, pager)
		return ProjectPageLoadedMsg{Page: page, Error: err}
	}
}

func loadSessionCmd(ctx context.Context, svc *sessions.Service, id string) tea.Cmd {
	return func() tea.Msg {
		session, err := svc.FetchSession(ctx, id)
		return SessionLoadedMsg{Session: session, Error: err}
	}
}

func loadHistoryCmd(ctx context.Context, svc *sessions.Service, project, file string) tea.Cmd {
	return func() tea.Msg {
		records, err := svc.FetchSpecHistory(ctx, project, file)
		return HistoryLoadedMsg{Project: project, File: file, Records: records, Error: err}
	}
}

func loadStatsCmd(ctx context.Context, svc *sessions.Service, analyzer *stats.Analyzer, project string) tea.Cmd {
	return func() tea.Msg {
		p, err := svc.FetchProject(ctx, project)
		if err != nil {
			return StatsLoadedMsg{Project: project, Error: err}
		}
		files, summary, err := analyzer.Analyze(ctx, *p)
		return StatsLoadedMsg{Project: project, Files: files, Summary: summary, Error: err}
	}
}

func loadApiKeysCmd(ctx context.Context, svc *sessions.Service) tea.Cmd {
	return func() tea.Msg {
		keys, err := svc.FetchApiKeys(ctx)
		return ApiKeysLoadedMsg{Keys: keys, Error: err}
	}
}

func createApiKeyCmd(ctx context.Context, svc *sessions.Service, name string) tea.Cmd {
	return func() tea.Msg {
		key, err := svc.CreateApiKey(ctx, name, time.Time{})
		return ApiKeyCreatedMsg{Name: name, Key: key, Error: err}
	}
}

func createSessionCmd(ctx context.Context, svc *sessions.Service, project string, files []string) tea.Cmd {
	return func() tea.Msg {
		info, err := svc.CreateSession(ctx, project, files)
		return SessionCreatedMsg{Info: info, Error: err}
	}
}

func nextSpecCmd(ctx context.Context, svc *sessions.Service, sessionID, machine string) tea.Cmd {
	return func() tea.Msg {
		result, err := svc.RequestNextSpec(ctx, sessionID, machine)
		return NextSpecLoadedMsg{Machine: machine, Result: result, Error: err}
	}
}

func deleteSessionCmd(ctx context.Context, svc *sessions.Service, id string) tea.Cmd {
	return func() tea.Msg {
		return DeletedMsg{Kind: "session", ID: id, Error: svc.DeleteSession(ctx, id)}
	}
}

func deleteProjectCmd(ctx context.Context, svc *sessions.Service, name string) tea.Cmd {
	return func() tea.Msg {
		return DeletedMsg{Kind: "project", ID: name, Error: svc.DeleteProject(ctx, name)}
	}
}

func deleteApiKeyCmd(ctx context.Context, svc *sessions.Service, id string) tea.Cmd {
	return func() tea.Msg {
		return DeletedMsg{Kind: "api key", ID: id, Error: svc.DeleteApiKey(ctx, id)}
	}
}

func signInCmd(ctx context.Context, svc *sessions.Service, email, password string, signUp bool) tea.Cmd {
	return func() tea.Msg {
		if signUp {
			return SignedInMsg{Error: svc.SignUp(ctx, email, password)}
		}
		return SignedInMsg{Error: svc.SignIn(ctx, email, password)}
	}
}

func signOutCmd(ctx context.Context, svc *sessions.Service) tea.Cmd {
	return func() tea.Msg {
		return SignedOutMsg{Error: svc.SignOut(ctx)}
	}
}
