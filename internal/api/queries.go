package api

import (
	"context"
	"fmt"
	"strings"

	serrors "github.com/strrl/split-specs-dashboard/internal/errors"
	"github.com/strrl/split-specs-dashboard/pkg/models"
)

// DefaultMachineID is sent to nextSpec when no machine id is given.
const DefaultMachineID = "default"

// Pagination selects a window of a project's sessions.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

const backlogFields = `
		backlog {
			file
			estimatedDuration
			assignedTo
			start
			end
			passed
		}`

const (
	projectsQuery = `query projects {
	projects
}`

	projectQuery = `query project($name: String!, $pagination: Pagination) {
	project(name: $name, pagination: $pagination) {
		projectName
		totalSessions
		sessions {
			id
			start
			end` + backlogFields + `
		}
	}
}`

	sessionQuery = `query session($id: String!) {
	session(sessionId: $id) {
		id
		start
		end` + backlogFields + `
	}
}`

	nextSpecQuery = `query nextSpec($sessionId: String!, $options: NextOptions) {
	nextSpec(sessionId: $sessionId, options: $options)
}`

	apiKeysQuery = `query getApiKeys {
	getApiKeys {
		id
		name
		expireAt
	}
}`

	registerMutation = `mutation register($email: String!, $password: String!) {
	register(input: { email: $email, password: $password })
}`

	loginMutation = `mutation login($email: String!, $password: String!) {
	login(input: { email: $email, password: $password })
}`

	addSessionMutation = `mutation addSession($session: SessionInput!) {
	addSession(session: $session) {
		sessionId
		projectName
	}
}`

	deleteSessionMutation = `mutation deleteSession($sessionId: String!) {
	deleteSession(sessionId: $sessionId)
}`

	deleteProjectMutation = `mutation deleteProject($projectName: String!) {
	deleteProject(projectName: $projectName)
}`

	addApiKeyMutation = `mutation addApiKey($name: String!, $expireAt: Int!) {
	addApiKey(name: $name, expireAt: $expireAt)
}`

	deleteApiKeyMutation = `mutation deleteApiKey($keyId: String!) {
	deleteApiKey(keyId: $keyId)
}`
)

// Projects lists the names of the projects visible to the user.
func (c *Client) Projects(ctx context.Context) ([]string, error) {
	var out struct {
		Projects []string `json:"projects"`
	}
	if err := c.Do(ctx, "projects", projectsQuery, nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// Project fetches a project with one page of its sessions. A zero Pagination
// asks the server for every session.
func (c *Client) Project(ctx context.Context, name string, page Pagination) (*models.Project, error) {
	vars := map[string]any{"name": name}
	if page.Limit > 0 {
		vars["pagination"] = page
	}
	var out struct {
		Project *models.Project `json:"project"`
	}
	if err := c.Do(ctx, "project", projectQuery, vars, &out); err != nil {
		return nil, err
	}
	if out.Project == nil {
		return nil, fmt.Errorf("project %q: %w", name, serrors.ErrNotFound)
	}
	return out.Project, nil
}

// Session fetches one session with its full backlog.
func (c *Client) Session(ctx context.Context, id string) (*models.Session, error) {
	var out struct {
		Session *models.Session `json:"session"`
	}
	if err := c.Do(ctx, "session", sessionQuery, map[string]any{"id": id}, &out); err != nil {
		return nil, err
	}
	if out.Session == nil {
		return nil, fmt.Errorf("session %q: %w", id, serrors.ErrNotFound)
	}
	return out.Session, nil
}

// NextSpec asks the server for the next spec file machineID should run.
// It fails with an error matching ErrSessionFinished once the backlog is drained.
func (c *Client) NextSpec(ctx context.Context, sessionID, machineID string) (string, error) {
	if strings.TrimSpace(machineID) == "" {
		machineID = DefaultMachineID
	}
	vars := map[string]any{
		"sessionId": sessionID,
		"options":   map[string]any{"machineId": machineID},
	}
	var out struct {
		NextSpec string `json:"nextSpec"`
	}
	if err := c.Do(ctx, "nextSpec", nextSpecQuery, vars, &out); err != nil {
		return "", err
	}
	return out.NextSpec, nil
}

// ApiKeys lists the user's API keys.
func (c *Client) ApiKeys(ctx context.Context) ([]models.ApiKey, error) {
	var out struct {
		ApiKeys []models.ApiKey `json:"getApiKeys"`
	}
	if err := c.Do(ctx, "getApiKeys", apiKeysQuery, nil, &out); err != nil {
		return nil, err
	}
	return out.ApiKeys, nil
}

// Register creates an account and returns its auth token.
func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Register string `json:"register"`
	}
	vars := map[string]any{"email": email, "password": password}
	if err := c.Do(ctx, "register", registerMutation, vars, &out); err != nil {
		return "", err
	}
	return out.Register, nil
}

// Login exchanges credentials for an auth token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Login string `json:"login"`
	}
	vars := map[string]any{"email": email, "password": password}
	if err := c.Do(ctx, "login", loginMutation, vars, &out); err != nil {
		return "", err
	}
	return out.Login, nil
}

// AddSession creates a session for projectName with the given spec files.
func (c *Client) AddSession(ctx context.Context, projectName string, files []string) (*models.SessionInfo, error) {
	specFiles := make([]models.SpecFile, 0, len(files))
	for _, f := range files {
		specFiles = append(specFiles, models.SpecFile{FilePath: f})
	}
	vars := map[string]any{
		"session": map[string]any{
			"projectName": projectName,
			"specFiles":   specFiles,
		},
	}
	var out struct {
		AddSession *models.SessionInfo `json:"addSession"`
	}
	if err := c.Do(ctx, "addSession", addSessionMutation, vars, &out); err != nil {
		return nil, err
	}
	if out.AddSession == nil {
		return nil, fmt.Errorf("addSession returned no session")
	}
	return out.AddSession, nil
}

// DeleteSession removes a session.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.Do(ctx, "deleteSession", deleteSessionMutation, map[string]any{"sessionId": sessionID}, nil)
}

// DeleteProject removes a project and all its sessions.
func (c *Client) DeleteProject(ctx context.Context, projectName string) error {
	return c.Do(ctx, "deleteProject", deleteProjectMutation, map[string]any{"projectName": projectName}, nil)
}

// AddApiKey creates a key expiring at expireAt (epoch seconds) and returns
// the key secret. The secret is only shown once.
func (c *Client) AddApiKey(ctx context.Context, name string, expireAt int64) (string, error) {
	var out struct {
		AddApiKey string `json:"addApiKey"`
	}
	vars := map[string]any{"name": name, "expireAt": expireAt}
	if err := c.Do(ctx, "addApiKey", addApiKeyMutation, vars, &out); err != nil {
		return "", err
	}
	return out.AddApiKey, nil
}

// DeleteApiKey revokes a key.
func (c *Client) DeleteApiKey(ctx context.Context, keyID string) error {
	return c.Do(ctx, "deleteApiKey", deleteApiKeyMutation, map[string]any{"keyId": keyID}, nil)
}
