// Package sessions sits between the API client and the UI. Mutations issue
// the remote call and leave re-fetching to an explicit follow-up call.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/strrl/split-specs-dashboard/internal/api"
	"github.com/strrl/split-specs-dashboard/internal/auth"
	serrors "github.com/strrl/split-specs-dashboard/internal/errors"
	"github.com/strrl/split-specs-dashboard/internal/retry"
	"github.com/strrl/split-specs-dashboard/internal/viewmodel"
	"github.com/strrl/split-specs-dashboard/pkg/models"
)

// DefaultKeyLifetime is how long a new API key lives when no expiry is given.
const DefaultKeyLifetime = 3 // months

// Options tunes a Service.
type Options struct {
	PageSize int
	// PageTimeout bounds each concurrent page fetch in FetchProject.
	PageTimeout time.Duration
	// Refetch is the backoff used after nextSpec until the assignment shows up.
	Refetch retry.Config
	Now     func() time.Time
}

// Service wraps the API client with the gate and returns view records.
type Service struct {
	client   *api.Client
	gate     *auth.Gate
	pageSize int
	timeout  time.Duration
	refetch  retry.Config
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService creates a new service.
func NewService(client *api.Client, gate *auth.Gate, opts Options, logger zerolog.Logger) *Service {
	if opts.PageSize <= 0 {
		opts.PageSize = viewmodel.DefaultPageSize
	}
	if opts.Refetch.MaxAttempts <= 0 {
		opts.Refetch = retry.DefaultConfig()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		client:   client,
		gate:     gate,
		pageSize: opts.PageSize,
		timeout:  opts.PageTimeout,
		refetch:  opts.Refetch,
		now:      opts.Now,
		logger:   logger.With().Str("component", "sessions").Logger(),
	}
}

// Gate returns the auth gate the service signs in through.
func (s *Service) Gate() *auth.Gate {
	return s.gate
}

// PageSize returns the number of sessions per project page.
func (s *Service) PageSize() int {
	return s.pageSize
}

// SignIn exchanges credentials for a token and stores it.
func (s *Service) SignIn(ctx context.Context, email, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}
	token, err := s.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return s.gate.SignIn(ctx, token)
}

// SignUp registers a new account and signs in with it.
func (s *Service) SignUp(ctx context.Context, email, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}
	token, err := s.client.Register(ctx, email, password)
	if err != nil {
		return err
	}
	return s.gate.SignIn(ctx, token)
}

// SignOut forgets the stored token.
func (s *Service) SignOut(ctx context.Context) error {
	return s.gate.SignOut(ctx)
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return fmt.Errorf("email and password are required: %w", serrors.ErrInvalidInput)
	}
	return nil
}

// FetchProjects lists project names.
func (s *Service) FetchProjects(ctx context.Context) ([]string, error) {
	return s.client.Projects(ctx)
}

// ProjectPage is one page of a project's sessions ready for display.
type ProjectPage struct {
	Name      string
	Pager     viewmodel.Pager
	Sessions  []models.Session
	Summaries []viewmodel.SessionSummary
}

// FetchProjectPage fetches the page pager points at. When the server count
// has shrunk below the requested page, the last page is fetched instead.
func (s *Service) FetchProjectPage(ctx context.Context, name string, pager viewmodel.Pager) (*ProjectPage, error) {
	if pager.PageSize <= 0 {
		pager.PageSize = s.pageSize
	}
	project, err := s.client.Project(ctx, name, api.Pagination{Limit: pager.Limit(), Offset: pager.Page * pager.PageSize})
	if err != nil {
		return nil, err
	}

	clamped := pager.WithTotal(project.TotalSessions)
	if clamped.Page != pager.Page {
		s.logger.Debug().
			Str("project", name).
			Int("requested_page", pager.Page).
			Int("page", clamped.Page).
			Msg("requested page out of range, refetching")
		project, err = s.client.Project(ctx, name, api.Pagination{Limit: clamped.Limit(), Offset: clamped.Offset()})
		if err != nil {
			return nil, err
		}
		clamped = clamped.WithTotal(project.TotalSessions)
	}

	sessions := viewmodel.SortSessions(project.Sessions)
	return &ProjectPage{
		Name:      project.ProjectName,
		Pager:     clamped,
		Sessions:  sessions,
		Summaries: viewmodel.SummarizeSessions(sessions),
	}, nil
}

// FetchProject fetches every session of a project. The first page gives the
// total, the rest are fetched concurrently.
func (s *Service) FetchProject(ctx context.Context, name string) (*models.Project, error) {
	first, err := s.client.Project(ctx, name, api.Pagination{Limit: s.pageSize, Offset: 0})
	if err != nil {
		return nil, err
	}

	pager := viewmodel.NewPager(first.TotalSessions, s.pageSize)
	pages, err := fetchRemainingPages(ctx, s.client, name, s.pageSize, pager.PageCount(), s.timeout)
	if err != nil {
		return nil, err
	}

	all := append([]models.Session(nil), first.Sessions...)
	seen := make(map[string]bool, first.TotalSessions)
	for _, sess := range all {
		seen[sess.ID] = true
	}
	for _, page := range pages {
		for _, sess := range page {
			// pages can overlap when sessions are added mid-fetch
			if seen[sess.ID] {
				continue
			}
			seen[sess.ID] = true
			all = append(all, sess)
		}
	}

	return &models.Project{
		ProjectName:   first.ProjectName,
		TotalSessions: first.TotalSessions,
		Sessions:      viewmodel.SortSessions(all),
	}, nil
}

// FetchSession fetches one session.
func (s *Service) FetchSession(ctx context.Context, id string) (*models.Session, error) {
	return s.client.Session(ctx, id)
}

// FetchSpecHistory fetches the whole project and projects file across it.
func (s *Service) FetchSpecHistory(ctx context.Context, project, file string) ([]viewmodel.SpecHistoryRecord, error) {
	p, err := s.FetchProject(ctx, project)
	if err != nil {
		return nil, err
	}
	return viewmodel.SpecHistory(p.Sessions, file), nil
}

// CreateSession starts a new session for project with the given files.
func (s *Service) CreateSession(ctx context.Context, project string, files []string) (*models.SessionInfo, error) {
	project = strings.TrimSpace(project)
	if project == "" {
		return nil, fmt.Errorf("project name is required: %w", serrors.ErrInvalidInput)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("at least one spec file is required: %w", serrors.ErrInvalidInput)
	}
	info, err := s.client.AddSession(ctx, project, files)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("project", project).Str("session_id", info.SessionID).Int("specs", len(files)).Msg("session created")
	return info, nil
}

// DeleteSession deletes a session.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if err := s.client.DeleteSession(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("session_id", id).Msg("session deleted")
	return nil
}

// DeleteProject deletes a project with all its sessions.
func (s *Service) DeleteProject(ctx context.Context, name string) error {
	if err := s.client.DeleteProject(ctx, name); err != nil {
		return err
	}
	s.logger.Info().Str("project", name).Msg("project deleted")
	return nil
}

// NextSpecResult is what a machine got from nextSpec, plus the session
// snapshot fetched after it.
type NextSpecResult struct {
	File     string
	Finished bool
	Session  *models.Session
}

var errNotVisible = errors.New("assignment not visible yet")

// RequestNextSpec asks for the next spec of machineID, then re-fetches the
// session with backoff until the returned file shows as started. When the
// backoff gives up the latest snapshot is returned as is.
func (s *Service) RequestNextSpec(ctx context.Context, sessionID, machineID string) (*NextSpecResult, error) {
	file, err := s.client.NextSpec(ctx, sessionID, machineID)
	if err != nil {
		if !errors.Is(err, serrors.ErrSessionFinished) {
			return nil, err
		}
		session, fetchErr := s.client.Session(ctx, sessionID)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return &NextSpecResult{Finished: true, Session: session}, nil
	}

	cfg := s.refetch
	cfg.Retryable = func(err error) bool {
		return errors.Is(err, errNotVisible) || serrors.IsRetryable(err)
	}

	var latest *models.Session
	err = retry.Do(ctx, cfg, func(ctx context.Context) error {
		session, err := s.client.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		latest = session
		for _, spec := range session.Backlog {
			if spec.File == file && spec.Start > 0 {
				return nil
			}
		}
		return errNotVisible
	})
	switch {
	case errors.Is(err, errNotVisible):
		s.logger.Warn().Str("session_id", sessionID).Str("file", file).Msg("assignment not visible after re-fetch")
	case err != nil:
		return nil, err
	}

	return &NextSpecResult{File: file, Session: latest}, nil
}

// ParseSpecFiles splits a comma separated list of spec files. Blank entries
// and repeats are dropped.
func ParseSpecFiles(csv string) []string {
	var files []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(csv, ",") {
		file := strings.TrimSpace(part)
		if file == "" || seen[file] {
			continue
		}
		seen[file] = true
		files = append(files, file)
	}
	return files
}
