package tui

import (
	"context"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strrl/split-specs-dashboard/internal/api"
	"github.com/strrl/split-specs-dashboard/internal/api/apitest"
	"github.com/strrl/split-specs-dashboard/internal/auth"
	"github.com/strrl/split-specs-dashboard/internal/db"
	serrors "github.com/strrl/split-specs-dashboard/internal/errors"
	"github.com/strrl/split-specs-dashboard/internal/retry"
	"github.com/strrl/split-specs-dashboard/internal/sessions"
	"github.com/strrl/split-specs-dashboard/internal/stats"
	"github.com/strrl/split-specs-dashboard/internal/viewmodel"
	"github.com/strrl/split-specs-dashboard/pkg/models"
)

func newTestModel(t *testing.T, loggedIn bool) (model, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer(t)
	token := srv.AddUser("dev@example.com", "secret")
	if !loggedIn {
		token = ""
	}

	ctx := context.Background()
	gate, err := auth.NewGate(ctx, auth.NewMemoryStore(token), zerolog.Nop())
	require.NoError(t, err)
	client := api.NewClient(srv.Endpoint(), time.Second, gate, gate, zerolog.Nop())
	svc := sessions.NewService(client, gate, sessions.Options{
		Refetch: retry.Config{MaxAttempts: 2, BaseDelay: time.Millisecond},
	}, zerolog.Nop())

	database, err := db.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	m := initialModel(ctx, svc, stats.NewAnalyzer(database, zerolog.Nop()), zerolog.Nop())
	m = update(t, m, tea.WindowSizeMsg{Width: 160, Height: 40})
	return m, srv
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(model)
}

func updateCmd(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(t *testing.T, m model, text string) model {
	t.Helper()
	for _, r := range text {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func seed(srv *apitest.Server, project string, n int) {
	for i := 1; i <= n; i++ {
		srv.AddSession(project, models.Session{
			ID:    fmt.Sprintf("%s-%02d", project, i),
			Start: int64(i * 1000),
			End:   int64(i*1000 + 30),
			Backlog: []models.Spec{
				{File: "a.spec.js", EstimatedDuration: 10, AssignedTo: "m1", Start: int64(i * 1000), End: int64(i*1000 + 10), Passed: true},
				{File: "b.spec.js", EstimatedDuration: 50, AssignedTo: "m2", Start: int64(i * 1000), End: int64(i*1000 + 30)},
			},
		})
	}
}

func TestInitialModel(t *testing.T) {
	m, _ := newTestModel(t, false)
	assert.Equal(t, loginView, m.currentMode)
	assert.Equal(t, sessions.StateIdle, m.loading.State())
	assert.Contains(t, m.View(), "Sign in")

	m, _ = newTestModel(t, true)
	assert.Equal(t, projectsView, m.currentMode)
	assert.NotNil(t, m.Init())
}

func TestLoginFlow(t *testing.T) {
	m, _ := newTestModel(t, false)

	m = typeText(t, m, "dev@example.com")
	m = update(t, m, keyPress("tab"))
	m = typeText(t, m, "secret")
	assert.Equal(t, "dev@example.com", m.authForm.value(0))

	m, cmd := updateCmd(t, m, keyPress("enter"))
	require.NotNil(t, cmd)
	assert.True(t, m.loading.Busy())

	msg := signInCmd(m.ctx, m.svc, m.authForm.value(0), m.authForm.inputs[1].Value(), m.signUp)()
	m = update(t, m, msg)
	assert.Equal(t, projectsView, m.currentMode)
	assert.True(t, m.svc.Gate().LoggedIn())
}

func TestLoginFailureShowsNotice(t *testing.T) {
	m, _ := newTestModel(t, false)
	m = update(t, m, keyPress("enter")) // focus password

	msg := signInCmd(m.ctx, m.svc, "dev@example.com", "wrong", false)()
	m = update(t, m, msg)
	assert.Equal(t, loginView, m.currentMode)
	require.NotNil(t, m.notice)
	assert.True(t, m.notice.Error)
	assert.Contains(t, m.View(), "invalid email or password")
}

func TestProjectNavigationAndPaging(t *testing.T) {
	m, srv := newTestModel(t, true)
	seed(srv, "alpha", 32)
	seed(srv, "beta", 1)

	m = update(t, m, loadProjectsCmd(m.ctx, m.svc)())
	require.Equal(t, []string{"alpha", "beta"}, m.projects)

	m = update(t, m, keyPress("down"))
	assert.Equal(t, 1, m.projectCursor)
	m = update(t, m, keyPress("up"))

	m, cmd := updateCmd(t, m, keyPress("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, projectView, m.currentMode)
	assert.Equal(t, "alpha", m.currentProject)

	m = update(t, m, loadProjectPageCmd(m.ctx, m.svc, "alpha", m.pager)())
	require.NotNil(t, m.page)
	assert.Equal(t, 3, m.pager.PageCount())
	assert.Len(t, m.page.Sessions, 15)
	assert.Contains(t, m.View(), "32 sessions")

	m, cmd = updateCmd(t, m, keyPress("n"))
	require.NotNil(t, cmd)
	// the pager follows the page once it has arrived
	assert.Equal(t, 0, m.pager.Page)
	m = update(t, m, loadProjectPageCmd(m.ctx, m.svc, "alpha", nextPage(t, m))())
	assert.Equal(t, 1, m.pager.Page)

	m = update(t, m, keyPress("n"))
	m = update(t, m, loadProjectPageCmd(m.ctx, m.svc, "alpha", nextPage(t, m))())
	assert.Equal(t, 2, m.pager.Page)
	assert.Len(t, m.page.Sessions, 2)

	// past the last page nothing happens
	m, cmd = updateCmd(t, m, keyPress("n"))
	assert.Nil(t, cmd)
	assert.Equal(t, 2, m.pager.Page)

	m, cmd = updateCmd(t, m, keyPress("p"))
	require.NotNil(t, cmd)
	prev, ok := m.pager.Prev()
	require.True(t, ok)
	m = update(t, m, loadProjectPageCmd(m.ctx, m.svc, "alpha", prev)())
	assert.Equal(t, 1, m.pager.Page)
}

func nextPage(t *testing.T, m model) viewmodel.Pager {
	t.Helper()
	next, ok := m.pager.Next()
	require.True(t, ok)
	return next
}

func TestFailedPageLoadKeepsPager(t *testing.T) {
	m, srv := newTestModel(t, true)
	seed(srv, "alpha", 40)

	m = update(t, m, loadProjectsCmd(m.ctx, m.svc)())
	m = update(t, m, keyPress("enter"))
	m = update(t, m, loadProjectPageCmd(m.ctx, m.svc, "alpha", m.pager)())
	require.Equal(t, 0, m.pager.Page)

	m = update(t, m, keyPress("n"))
	m = update(t, m, ProjectPageLoadedMsg{Error: &serrors.TransportError{StatusCode: 502}})
	assert.Equal(t, 0, m.pager.Page)
	assert.Equal(t, 0, m.page.Pager.Page)

	// the next page after a failure is still page 1
	m = update(t, m, keyPress("n"))
	m = update(t, m, loadProjectPageCmd(m.ctx, m.svc, "alpha", nextPage(t, m))())
	assert.Equal(t, 1, m.pager.Page)
	assert.Equal(t, m.pager, m.page.Pager)
}

func TestSessionViewAndDelete(t *testing.T) {
	m, srv := newTestModel(t, true)
	seed(srv, "alpha", 2)

	m = update(t, m, loadProjectsCmd(m.ctx, m.svc)())
	m = update(t, m, keyPress("enter"))
	m = update(t, m, loadProjectPageCmd(m.ctx, m.svc, "alpha", m.pager)())

	m, cmd := updateCmd(t, m, keyPress("enter"))
	require.NotNil(t, cmd)
	require.Equal(t, sessionView, m.currentMode)
	assert.Equal(t, "alpha-02", m.session.ID)

	m = update(t, m, loadSessionCmd(m.ctx, m.svc, "alpha-02")())
	view := m.View()
	assert.Contains(t, view, "b.spec.js")
	assert.Contains(t, view, "passed")
	assert.Contains(t, view, "failed")
	assert.Equal(t, int64(30), m.summary.SavedDuration)

	m = update(t, m, keyPress("x"))
	require.NotNil(t, m.confirm)
	assert.Contains(t, m.View(), "Delete session alpha-02?")
	m = update(t, m, keyPress("n"))
	assert.Nil(t, m.confirm)
	_, ok := srv.Session("alpha-02")
	assert.True(t, ok)

	m = update(t, m, keyPress("x"))
	m, cmd = updateCmd(t, m, keyPress("y"))
	require.NotNil(t, cmd)
	assert.Equal(t, sessions.StateMutating, m.loading.State())

	m = update(t, m, deleteSessionCmd(m.ctx, m.svc, "alpha-02")())
	assert.Equal(t, projectView, m.currentMode)
	require.NotNil(t, m.notice)
	assert.Equal(t, "session deleted", m.notice.Text)
	_, ok = srv.Session("alpha-02")
	assert.False(t, ok)
}

func TestSpecHistoryAndStats(t *testing.T) {
	m, srv := newTestModel(t, true)
	seed(srv, "alpha", 3)

	m = update(t, m, loadProjectsCmd(m.ctx, m.svc)())
	m = update(t, m, keyPress("enter"))
	m = update(t, m, loadProjectPageCmd(m.ctx, m.svc, "alpha", m.pager)())
	m = update(t, m, keyPress("enter"))
	m = update(t, m, loadSessionCmd(m.ctx, m.svc, m.session.ID)())

	// longest spec first
	m, cmd := updateCmd(t, m, keyPress("h"))
	require.NotNil(t, cmd)
	assert.Equal(t, historyView, m.currentMode)
	assert.Equal(t, "b.spec.js", m.historyFile)

	m = update(t, m, loadHistoryCmd(m.ctx, m.svc, "alpha", "b.spec.js")())
	require.Len(t, m.history, 3)
	assert.Equal(t, "alpha-03", m.history[0].SessionID)
	assert.Contains(t, m.View(), "166.67")

	m = update(t, m, keyPress("esc"))
	assert.Equal(t, sessionView, m.currentMode)
	m = update(t, m, keyPress("esc"))
	assert.Equal(t, projectView, m.currentMode)

	m, cmd = updateCmd(t, m, keyPress("s"))
	require.NotNil(t, cmd)
	assert.Equal(t, statsView, m.currentMode)
	m = update(t, m, loadStatsCmd(m.ctx, m.svc, m.analyzer, "alpha")())
	require.Len(t, m.fileStats, 2)
	assert.Equal(t, "b.spec.js", m.fileStats[0].File)
	assert.Equal(t, 6, m.statsSummary.Runs)
	assert.Contains(t, m.View(), "pass rate 50.00%")
}

func TestAccessDeniedReturnsToLogin(t *testing.T) {
	m, srv := newTestModel(t, true)
	srv.RevokeAll()

	msg := loadProjectsCmd(m.ctx, m.svc)()
	m = update(t, m, msg)
	assert.Equal(t, loginView, m.currentMode)
	assert.False(t, m.svc.Gate().LoggedIn())
	require.NotNil(t, m.notice)
	assert.Equal(t, "access denied", m.notice.Text)
}

func TestAuthChangedMsg(t *testing.T) {
	m, _ := newTestModel(t, true)
	m = update(t, m, AuthChangedMsg{LoggedIn: false})
	assert.Equal(t, loginView, m.currentMode)

	m, cmd := updateCmd(t, m, AuthChangedMsg{LoggedIn: true})
	assert.Equal(t, projectsView, m.currentMode)
	assert.NotNil(t, cmd)
}

func TestNotificationLifecycle(t *testing.T) {
	m, _ := newTestModel(t, true)

	m = update(t, m, ProjectsLoadedMsg{Error: &serrors.GraphQLError{Message: "boom"}})
	require.NotNil(t, m.notice)
	first := m.notice.ID

	m = update(t, m, ProjectsLoadedMsg{Error: &serrors.GraphQLError{Message: "again"}})
	second := m.notice.ID
	assert.NotEqual(t, first, second)

	// an older expiry does not clear a newer notice
	m = update(t, m, NoticeExpiredMsg{ID: first})
	require.NotNil(t, m.notice)
	assert.Equal(t, "again", m.notice.Text)

	m = update(t, m, NoticeExpiredMsg{ID: second})
	assert.Nil(t, m.notice)

	m = update(t, m, ProjectsLoadedMsg{Error: &serrors.GraphQLError{Message: "dismiss me"}})
	m = update(t, m, keyPress("esc"))
	assert.Nil(t, m.notice)
	assert.Equal(t, projectsView, m.currentMode)
}

func TestApiKeys(t *testing.T) {
	m, srv := newTestModel(t, true)
	srv.AddKey(models.ApiKey{ID: "k1", Name: "old", ExpireAt: 1})

	m, cmd := updateCmd(t, m, keyPress("a"))
	require.NotNil(t, cmd)
	assert.Equal(t, apiKeysView, m.currentMode)
	m = update(t, m, loadApiKeysCmd(m.ctx, m.svc)())
	require.Len(t, m.keys, 1)
	assert.True(t, m.keys[0].Expired)
	assert.Contains(t, m.View(), "expired")

	m = update(t, m, keyPress("c"))
	require.NotNil(t, m.keyForm)
	m = typeText(t, m, "ci")
	m, cmd = updateCmd(t, m, keyPress("enter"))
	require.NotNil(t, cmd)

	m = update(t, m, createApiKeyCmd(m.ctx, m.svc, m.keyForm.value(0))())
	assert.Nil(t, m.keyForm)
	assert.NotEmpty(t, m.createdKey)
	assert.Contains(t, m.View(), m.createdKey)

	m = update(t, m, loadApiKeysCmd(m.ctx, m.svc)())
	require.Len(t, m.keys, 2)

	m = update(t, m, keyPress("x"))
	require.NotNil(t, m.confirm)
	m = update(t, m, keyPress("y"))
	m = update(t, m, deleteApiKeyCmd(m.ctx, m.svc, "k1")())
	assert.Equal(t, "api key deleted", m.notice.Text)
	m = update(t, m, loadApiKeysCmd(m.ctx, m.svc)())
	assert.Len(t, m.keys, 1)
}

func TestEmulateSession(t *testing.T) {
	m, _ := newTestModel(t, true)

	m = update(t, m, keyPress("e"))
	require.Equal(t, emulateView, m.currentMode)
	m = typeText(t, m, "gamma")
	m, cmd := updateCmd(t, m, keyPress("enter"))
	require.NotNil(t, cmd)

	files := sessions.ParseSpecFiles(DefaultEmulateFiles)
	m = update(t, m, createSessionCmd(m.ctx, m.svc, m.emulateForm.value(0), files)())
	require.NotNil(t, m.emulated)
	assert.Equal(t, "gamma", m.emulated.ProjectName)

	m = update(t, m, loadSessionCmd(m.ctx, m.svc, m.emulated.SessionID)())
	require.NotNil(t, m.emulateSession)
	assert.Len(t, m.emulateSession.Backlog, 6)
	assert.Contains(t, m.View(), "Session created")

	m, cmd = updateCmd(t, m, keyPress("enter"))
	require.NotNil(t, cmd)
	m = update(t, m, nextSpecCmd(m.ctx, m.svc, m.emulated.SessionID, m.machineForm.value(0))())
	assert.Equal(t, "a", m.lastAssignment)
	assert.Contains(t, m.View(), "next spec: ")
}

func TestQuitKeys(t *testing.T) {
	m, _ := newTestModel(t, true)
	_, cmd := m.handleKey(keyPress("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	// q is text while a form has focus
	m, _ = newTestModel(t, false)
	m, _ = updateCmd(t, m, keyPress("q"))
	assert.Equal(t, "q", m.authForm.value(0))
}

func TestLoadingIndicator(t *testing.T) {
	l := NewLoadingIndicator()
	assert.False(t, l.Busy())
	assert.Empty(t, l.View())

	assert.True(t, l.Set(sessions.StateLoadingProjects))
	// already spinning, no second tick loop
	assert.False(t, l.Set(sessions.StateLoadingSession))
	assert.Contains(t, l.View(), "loading session")

	assert.False(t, l.Set(sessions.StateError))
	assert.False(t, l.Busy())
	assert.True(t, l.Set(sessions.StateMutating))
}

func TestFormNavigation(t *testing.T) {
	f := newEmulateForm()
	assert.Equal(t, 0, f.focus)
	f.nextField()
	assert.Equal(t, 1, f.focus)
	f.nextField()
	assert.Equal(t, 0, f.focus)
	f.prevField()
	assert.Equal(t, 1, f.focus)

	f.inputs[1].SetValue("  a.spec.js, b.spec.js ")
	assert.Equal(t, "a.spec.js, b.spec.js", f.value(1))
	machine := newMachineForm()
	assert.Equal(t, "default", machine.value(0))
}
