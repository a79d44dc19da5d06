package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	serrors "github.com/strrl/split-specs-dashboard/internal/errors"
	"github.com/strrl/split-specs-dashboard/internal/sessions"
	"github.com/strrl/split-specs-dashboard/internal/stats"
	"github.com/strrl/split-specs-dashboard/internal/viewmodel"
	"github.com/strrl/split-specs-dashboard/pkg/models"
)

type viewMode int

const (
	loginView viewMode = iota
	projectsView
	projectView
	sessionView
	historyView
	statsView
	apiKeysView
	emulateView
)

// confirmation is a pending destructive action waiting for "y"
type confirmation struct {
	prompt string
	state  sessions.LoadingState
	cmd    tea.Cmd
}

type model struct {
	ctx      context.Context
	svc      *sessions.Service
	analyzer *stats.Analyzer
	logger   zerolog.Logger

	currentMode viewMode
	loading     *LoadingIndicator
	notice      *Notification
	noticeSeq   int
	confirm     *confirmation

	// sign in / sign up
	authForm form
	signUp   bool

	projects      []string
	projectCursor int

	currentProject string
	pager          viewmodel.Pager
	page           *sessions.ProjectPage
	sessionCursor  int

	session    *models.Session
	summary    viewmodel.SessionSummary
	specCursor int

	historyFile string
	history     []viewmodel.SpecHistoryRecord
	historyBack viewMode

	fileStats    []stats.FileStats
	statsSummary stats.Summary

	keys       []sessions.ApiKeyRow
	keyCursor  int
	keyForm    *form
	createdKey string

	emulateForm    form
	machineForm    form
	emulated       *models.SessionInfo
	emulateSession *models.Session
	lastAssignment string

	viewport   viewport.Model
	cursorLine int
	ready      bool
	width      int
	height     int
}

func initialModel(ctx context.Context, svc *sessions.Service, analyzer *stats.Analyzer, logger zerolog.Logger) model {
	m := model{
		ctx:         ctx,
		svc:         svc,
		analyzer:    analyzer,
		logger:      logger.With().Str("component", "tui").Logger(),
		currentMode: loginView,
		loading:     NewLoadingIndicator(),
		authForm:    newAuthForm(),
		pager:       viewmodel.NewPager(0, svc.PageSize()),
		emulateForm: newEmulateForm(),
		machineForm: newMachineForm(),
	}
	if svc.Gate().LoggedIn() {
		m.currentMode = projectsView
	}
	return m
}

func (m model) Init() tea.Cmd {
	if m.currentMode == projectsView {
		return tea.Batch(tea.EnterAltScreen, m.startLoading(sessions.StateLoadingProjects), loadProjectsCmd(m.ctx, m.svc))
	}
	return tea.EnterAltScreen
}

// startLoading flips the indicator and starts the spinner if it was idle.
// The indicator is shared by pointer, so this works on a value receiver.
func (m model) startLoading(state sessions.LoadingState) tea.Cmd {
	if m.loading.Set(state) {
		return tickCmd()
	}
	return nil
}

func (m *model) done() {
	m.loading.Set(sessions.StateIdle)
}

// notify replaces the current notification and schedules its expiry.
func (m *model) notify(text string, isErr bool) tea.Cmd {
	m.noticeSeq++
	m.notice = &Notification{ID: m.noticeSeq, Text: text, Error: isErr}
	return expireNoticeCmd(m.noticeSeq)
}

// fail surfaces err as a notification. Access denied also drops back to the
// sign in form.
func (m *model) fail(err error) tea.Cmd {
	m.loading.Set(sessions.StateError)
	m.logger.Warn().Err(err).Msg("operation failed")
	if serrors.IsAccessDenied(err) {
		m.toLogin()
	}
	return m.notify(serrors.Message(err), true)
}

func (m *model) toLogin() {
	m.currentMode = loginView
	m.authForm = newAuthForm()
	m.projects = nil
	m.page = nil
	m.session = nil
	m.keys = nil
	m.confirm = nil
	m.keyForm = nil
	m.emulated = nil
	m.emulateSession = nil
}

func (m *model) toProjects() tea.Cmd {
	m.currentMode = projectsView
	return tea.Batch(m.startLoading(sessions.StateLoadingProjects), loadProjectsCmd(m.ctx, m.svc))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		bodyHeight := msg.Height - 4
		if bodyHeight < 1 {
			bodyHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, bodyHeight)
			m.viewport.KeyMap = pagingKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = bodyHeight
		}

	case TickMsg:
		if m.loading.Busy() {
			m.loading.Tick()
			cmds = append(cmds, tickCmd())
		}

	case NoticeExpiredMsg:
		if m.notice != nil && m.notice.ID == msg.ID {
			m.notice = nil
		}

	case AuthChangedMsg:
		if !msg.LoggedIn && m.currentMode != loginView {
			m.toLogin()
		}
		if msg.LoggedIn && m.currentMode == loginView {
			cmds = append(cmds, m.toProjects())
		}

	case SignedInMsg:
		m.done()
		if msg.Error != nil {
			cmds = append(cmds, m.fail(msg.Error))
			break
		}
		if m.currentMode == loginView {
			cmds = append(cmds, m.toProjects())
		}

	case SignedOutMsg:
		m.done()
		m.toLogin()
		if msg.Error != nil {
			cmds = append(cmds, m.fail(msg.Error))
		} else {
			cmds = append(cmds, m.notify("signed out", false))
		}

	case ProjectsLoadedMsg:
		m.done()
		if msg.Error != nil {
			cmds = append(cmds, m.fail(msg.Error))
			break
		}
		m.projects = msg.Projects
		if m.projectCursor >= len(m.projects) {
			m.projectCursor = max(0, len(m.projects)-1)
		}

	case ProjectPageLoadedMsg:
		m.done()
		if msg.Error != nil {
			cmds = append(cmds, m.fail(msg.Error))
			break
		}
		if m.page == nil || m.page.Pager.Page != msg.Page.Pager.Page {
			m.sessionCursor = 0
		}
		m.page = msg.Page
		m.pager = msg.Page.Pager
		if m.sessionCursor >= len(m.page.Sessions) {
			m.sessionCursor = max(0, len(m.page.Sessions)-1)
		}

	case SessionLoadedMsg:
		m.done()
		if msg.Error != nil {
			cmds = append(cmds, m.fail(msg.Error))
			break
		}
		if m.currentMode == emulateView {
			m.emulateSession = msg.Session
			break
		}
		m.session = msg.Session
		m.summary = viewmodel.SummarizeSession(*msg.Session)
		if m.specCursor >= len(m.session.Backlog) {
			m.specCursor = max(0, len(m.session.Backlog)-1)
		}

	case HistoryLoadedMsg:
		m.done()
		if msg.Error != nil {
			cmds = append(cmds, m.fail(msg.Error))
			break
		}
		m.historyFile = msg.File
		m.history = msg.Records

	case StatsLoadedMsg:
		m.done()
		if msg.Error != nil {
			cmds = append(cmds, m.fail(msg.Error))
			break
		}
		m.fileStats = msg.Files
		m.statsSummary = msg.Summary

	case ApiKeysLoadedMsg:
		m.done()
		if msg.Error != nil {
			cmds = append(cmds, m.fail(msg.Error))
			break
		}
		m.keys = msg.Keys
		if m.keyCursor >= len(m.keys) {
			m.keyCursor = max(0, len(m.keys)-1)
		}

	case ApiKeyCreatedMsg:
		m.done()
		if msg.Error != nil {
			cmds = append(cmds, m.fail(msg.Error))
			break
		}
		m.keyForm = nil
		m.createdKey = msg.Key
		cmds = append(cmds,
			m.notify(fmt.Sprintf("api key %q created", msg.Name), false),
			m.startLoading(sessions.StateLoadingKeys),
			loadApiKeysCmd(m.ctx, m.svc),
		)

	case SessionCreatedMsg:
		m.done()
		if msg.Error != nil {
			cmds = append(cmds, m.fail(msg.Error))
			break
		}
		m.emulated = msg.Info
		m.lastAssignment = ""
		m.machineForm = newMachineForm()
		cmds = append(cmds,
			m.notify("session created", false),
			m.startLoading(sessions.StateLoadingSession),
			loadSessionCmd(m.ctx, m.svc, msg.Info.SessionID),
		)

	case NextSpecLoadedMsg:
		m.done()
		if msg.Error != nil {
			cmds = append(cmds, m.fail(msg.Error))
			break
		}
		m.emulateSession = msg.Result.Session
		if msg.Result.Finished {
			m.lastAssignment = ""
			cmds = append(cmds, m.notify("session finished", false))
		} else {
			m.lastAssignment = msg.Result.File
		}

	case DeletedMsg:
		m.done()
		if msg.Error != nil {
			cmds = append(cmds, m.fail(msg.Error))
			break
		}
		cmds = append(cmds, m.notify(fmt.Sprintf("%s deleted", msg.Kind), false))
		cmds = append(cmds, m.afterDelete(msg.Kind))

	case tea.KeyMsg:
		next, cmd := m.handleKey(msg)
		m = next
		cmds = append(cmds, cmd)
		m.updateViewport()
		return m, tea.Batch(cmds...)
	}

	if _, isKey := msg.(tea.KeyMsg); !isKey {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.updateViewport()
	return m, tea.Batch(cmds...)
}

// afterDelete re-fetches whatever the deleted item was listed in.
func (m *model) afterDelete(kind string) tea.Cmd {
	switch kind {
	case "session":
		m.currentMode = projectView
		m.session = nil
		return tea.Batch(m.startLoading(sessions.StateLoadingSessions),
			loadProjectPageCmd(m.ctx, m.svc, m.currentProject, m.pager))
	case "project":
		m.page = nil
		m.currentProject = ""
		return m.toProjects()
	default:
		return tea.Batch(m.startLoading(sessions.StateLoadingKeys), loadApiKeysCmd(m.ctx, m.svc))
	}
}

func (m model) inForm() bool {
	return m.currentMode == loginView ||
		(m.currentMode == apiKeysView && m.keyForm != nil) ||
		m.currentMode == emulateView
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.confirm != nil {
		c := m.confirm
		m.confirm = nil
		if msg.String() == "y" || msg.String() == "Y" {
			return m, tea.Batch(m.startLoading(c.state), c.cmd)
		}
		return m, nil
	}

	if msg.String() == "esc" && m.notice != nil {
		m.notice = nil
		return m, nil
	}

	switch msg.String() {
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.inForm() {
		return m.handleFormKey(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "L":
		return m, tea.Batch(m.startLoading(sessions.StateMutating), signOutCmd(m.ctx, m.svc))
	}

	switch m.currentMode {
	case projectsView:
		return m.handleProjectsKey(msg)
	case projectView:
		return m.handleProjectKey(msg)
	case sessionView:
		return m.handleSessionKey(msg)
	case apiKeysView:
		return m.handleApiKeysKey(msg)
	case historyView, statsView:
		if msg.String() == "esc" || msg.String() == "backspace" {
			if m.currentMode == historyView {
				m.currentMode = m.historyBack
			} else {
				m.currentMode = projectView
			}
		}
	}
	return m, nil
}

func (m model) handleProjectsKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.projectCursor > 0 {
			m.projectCursor--
		}
	case "down", "j":
		if m.projectCursor < len(m.projects)-1 {
			m.projectCursor++
		}
	case "enter":
		if m.projectCursor < len(m.projects) {
			m.currentProject = m.projects[m.projectCursor]
			m.pager = viewmodel.NewPager(0, m.svc.PageSize())
			m.page = nil
			m.sessionCursor = 0
			m.currentMode = projectView
			return m, tea.Batch(m.startLoading(sessions.StateLoadingSessions),
				loadProjectPageCmd(m.ctx, m.svc, m.currentProject, m.pager))
		}
	case "r":
		return m, tea.Batch(m.startLoading(sessions.StateLoadingProjects), loadProjectsCmd(m.ctx, m.svc))
	case "a":
		m.currentMode = apiKeysView
		m.createdKey = ""
		return m, tea.Batch(m.startLoading(sessions.StateLoadingKeys), loadApiKeysCmd(m.ctx, m.svc))
	case "e":
		m.currentMode = emulateView
		m.emulateForm = newEmulateForm()
		if m.projectCursor < len(m.projects) {
			m.emulateForm.inputs[0].SetValue(m.projects[m.projectCursor])
		}
		m.emulated = nil
		m.emulateSession = nil
	}
	return m, nil
}

func (m model) handleProjectKey(msg tea.KeyMsg) (model, tea.Cmd) {
	var count int
	if m.page != nil {
		count = len(m.page.Sessions)
	}
	switch msg.String() {
	case "up", "k":
		if m.sessionCursor > 0 {
			m.sessionCursor--
		}
	case "down", "j":
		if m.sessionCursor < count-1 {
			m.sessionCursor++
		}
	// m.pager only moves when ProjectPageLoadedMsg arrives
	case "n", "right":
		if next, ok := m.pager.Next(); ok {
			return m, tea.Batch(m.startLoading(sessions.StateLoadingSessions),
				loadProjectPageCmd(m.ctx, m.svc, m.currentProject, next))
		}
	case "p", "left":
		if prev, ok := m.pager.Prev(); ok {
			return m, tea.Batch(m.startLoading(sessions.StateLoadingSessions),
				loadProjectPageCmd(m.ctx, m.svc, m.currentProject, prev))
		}
	case "enter":
		if m.sessionCursor < count {
			selected := m.page.Sessions[m.sessionCursor]
			m.session = &selected
			m.summary = viewmodel.SummarizeSession(selected)
			m.specCursor = 0
			m.currentMode = sessionView
			return m, tea.Batch(m.startLoading(sessions.StateLoadingSession),
				loadSessionCmd(m.ctx, m.svc, selected.ID))
		}
	case "r":
		return m, tea.Batch(m.startLoading(sessions.StateLoadingSessions),
			loadProjectPageCmd(m.ctx, m.svc, m.currentProject, m.pager))
	case "s":
		if m.analyzer == nil {
			return m, m.notify("stats are not available", true)
		}
		m.currentMode = statsView
		m.fileStats = nil
		return m, tea.Batch(m.startLoading(sessions.StateLoadingSessions),
			loadStatsCmd(m.ctx, m.svc, m.analyzer, m.currentProject))
	case "x":
		m.confirm = &confirmation{
			prompt: fmt.Sprintf("Delete project %q and all its sessions? (y/N)", m.currentProject),
			state:  sessions.StateMutating,
			cmd:    deleteProjectCmd(m.ctx, m.svc, m.currentProject),
		}
	case "esc", "backspace":
		m.currentMode = projectsView
		m.page = nil
	}
	return m, nil
}

func (m model) handleSessionKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if m.session == nil {
		if msg.String() == "esc" || msg.String() == "backspace" {
			m.currentMode = projectView
		}
		return m, nil
	}
	rows := viewmodel.OrderSpecs(m.session.Backlog)
	switch msg.String() {
	case "up", "k":
		if m.specCursor > 0 {
			m.specCursor--
		}
	case "down", "j":
		if m.specCursor < len(rows)-1 {
			m.specCursor++
		}
	case "r":
		return m, tea.Batch(m.startLoading(sessions.StateLoadingSession),
			loadSessionCmd(m.ctx, m.svc, m.session.ID))
	case "h", "enter":
		if m.specCursor < len(rows) {
			file := rows[m.specCursor].File
			m.currentMode = historyView
			m.historyBack = sessionView
			m.history = nil
			m.historyFile = file
			return m, tea.Batch(m.startLoading(sessions.StateLoadingSessions),
				loadHistoryCmd(m.ctx, m.svc, m.currentProject, file))
		}
	case "x":
		m.confirm = &confirmation{
			prompt: fmt.Sprintf("Delete session %s? (y/N)", m.session.ID),
			state:  sessions.StateMutating,
			cmd:    deleteSessionCmd(m.ctx, m.svc, m.session.ID),
		}
	case "esc", "backspace":
		m.currentMode = projectView
		m.session = nil
	}
	return m, nil
}

func (m model) handleApiKeysKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.keyCursor > 0 {
			m.keyCursor--
		}
	case "down", "j":
		if m.keyCursor < len(m.keys)-1 {
			m.keyCursor++
		}
	case "c":
		f := newKeyForm()
		m.keyForm = &f
		m.createdKey = ""
	case "x":
		if m.keyCursor < len(m.keys) {
			k := m.keys[m.keyCursor]
			m.confirm = &confirmation{
				prompt: fmt.Sprintf("Delete api key %q? (y/N)", k.Name),
				state:  sessions.StateMutating,
				cmd:    deleteApiKeyCmd(m.ctx, m.svc, k.ID),
			}
		}
	case "r":
		return m, tea.Batch(m.startLoading(sessions.StateLoadingKeys), loadApiKeysCmd(m.ctx, m.svc))
	case "esc", "backspace":
		m.currentMode = projectsView
		m.createdKey = ""
	}
	return m, nil
}

// handleFormKey routes keys to whichever form the current view shows.
func (m model) handleFormKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.currentMode {
	case loginView:
		switch msg.String() {
		case "tab", "down":
			m.authForm.nextField()
			return m, nil
		case "shift+tab", "up":
			m.authForm.prevField()
			return m, nil
		case "ctrl+n":
			m.signUp = !m.signUp
			return m, nil
		case "enter":
			if m.authForm.focus == 0 {
				m.authForm.nextField()
				return m, nil
			}
			if m.loading.Busy() {
				return m, nil
			}
			email, password := m.authForm.value(0), m.authForm.inputs[1].Value()
			return m, tea.Batch(m.startLoading(sessions.StateMutating),
				signInCmd(m.ctx, m.svc, email, password, m.signUp))
		case "esc":
			return m, tea.Quit
		}
		return m, m.authForm.update(msg)

	case apiKeysView:
		switch msg.String() {
		case "esc":
			m.keyForm = nil
			return m, nil
		case "enter":
			name := m.keyForm.value(0)
			return m, tea.Batch(m.startLoading(sessions.StateMutating), createApiKeyCmd(m.ctx, m.svc, name))
		}
		return m, m.keyForm.update(msg)

	case emulateView:
		if m.emulated == nil {
			switch msg.String() {
			case "tab", "down":
				m.emulateForm.nextField()
				return m, nil
			case "shift+tab", "up":
				m.emulateForm.prevField()
				return m, nil
			case "esc":
				m.currentMode = projectsView
				return m, nil
			case "enter":
				files := m.emulateForm.value(1)
				if files == "" {
					files = DefaultEmulateFiles
				}
				return m, tea.Batch(m.startLoading(sessions.StateMutating),
					createSessionCmd(m.ctx, m.svc, m.emulateForm.value(0), sessions.ParseSpecFiles(files)))
			}
			return m, m.emulateForm.update(msg)
		}
		switch msg.String() {
		case "esc":
			m.currentMode = projectsView
			m.emulated = nil
			m.emulateSession = nil
			return m, tea.Batch(m.startLoading(sessions.StateLoadingProjects), loadProjectsCmd(m.ctx, m.svc))
		case "enter":
			if m.loading.Busy() {
				return m, nil
			}
			machine := m.machineForm.value(0)
			return m, tea.Batch(m.startLoading(sessions.StateLoadingSession),
				nextSpecCmd(m.ctx, m.svc, m.emulated.SessionID, machine))
		}
		return m, m.machineForm.update(msg)
	}
	return m, nil
}

// updateViewport renders the body and keeps the cursor line visible.
func (m *model) updateViewport() {
	if !m.ready {
		return
	}
	content, cursor := m.renderBody()
	m.viewport.SetContent(content)
	m.cursorLine = cursor
	if cursor < 0 {
		return
	}
	if cursor < m.viewport.YOffset {
		m.viewport.SetYOffset(cursor)
	} else if cursor >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(cursor - m.viewport.Height + 1)
	}
}

// pagingKeyMap leaves only page keys to the viewport; arrows move cursors.
func pagingKeyMap() viewport.KeyMap {
	km := viewport.DefaultKeyMap()
	km.Up = key.NewBinding(key.WithDisabled())
	km.Down = key.NewBinding(key.WithDisabled())
	km.HalfPageUp = key.NewBinding(key.WithDisabled())
	km.HalfPageDown = key.NewBinding(key.WithDisabled())
	km.PageUp = key.NewBinding(key.WithKeys("pgup"))
	km.PageDown = key.NewBinding(key.WithKeys("pgdown"))
	return km
}

// Run starts the dashboard and blocks until the user quits. Gate changes,
// including a sign out forced by an access-denied response, are relayed into
// the program.
func Run(ctx context.Context, svc *sessions.Service, analyzer *stats.Analyzer, logger zerolog.Logger) error {
	p := tea.NewProgram(
		initialModel(ctx, svc, analyzer, logger),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	unsubscribe := svc.Gate().Subscribe(func(loggedIn bool) {
		go p.Send(AuthChangedMsg{LoggedIn: loggedIn})
	})
	defer unsubscribe()

	_, err := p.Run()
	return err
}
