// Package apitest provides an in-memory fake of the split-specs GraphQL
// endpoint for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/strrl/split-specs-dashboard/pkg/models"
)

// Server is a fake GraphQL endpoint keyed on operationName. It is not a
// scheduler: nextSpec hands out backlog entries in order.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]string // email -> password
	tokens   map[string]string // token -> email
	projects map[string][]*models.Session
	keys     []models.ApiKey
	now      int64
	calls    []string
}

// NewServer starts a fake endpoint that is closed when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:    make(map[string]string),
		tokens:   make(map[string]string),
		projects: make(map[string][]*models.Session),
		now:      1_000,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Endpoint returns the URL to point an api.Client at.
func (s *Server) Endpoint() string {
	return s.URL + "/query"
}

// AddUser registers an account and returns a token valid for it.
func (s *Server) AddUser(email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = password
	return s.issueToken(email)
}

// AddSession stores a session snapshot under project.
func (s *Server) AddSession(project string, session models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := session
	cp.Backlog = append([]models.Spec(nil), session.Backlog...)
	s.projects[project] = append(s.projects[project], &cp)
}

// AddKey stores an API key.
func (s *Server) AddKey(key models.ApiKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
}

// Advance moves the fake clock forward.
func (s *Server) Advance(seconds int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now += seconds
}

// Calls returns the operation names received so far.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// RevokeAll invalidates every issued token.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

// Session returns a copy of a stored session.
func (s *Server) Session(id string) (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, _ := s.findSession(id); sess != nil {
		cp := *sess
		cp.Backlog = append([]models.Spec(nil), sess.Backlog...)
		return cp, true
	}
	return models.Session{}, false
}

// Projects returns the stored project names.
func (s *Server) Projects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectNames()
}

type request struct {
	OperationName string          `json:"operationName"`
	Variables     json.RawMessage `json:"variables"`
}

type gqlError struct {
	Message string   `json:"message"`
	Path    []string `json:"path"`
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req.OperationName)

	var vars map[string]json.RawMessage
	if len(req.Variables) > 0 {
		_ = json.Unmarshal(req.Variables, &vars)
	}

	data, err := s.dispatch(req.OperationName, r.Header.Get("Authorization"), vars)
	w.Header().Set("Content-Type", "application/json")
	if err != "" {
		json.NewEncoder(w).Encode(map[string]any{
			"data":   nil,
			"errors": []gqlError{{Message: err, Path: []string{req.OperationName}}},
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{req.OperationName: data}})
}

func str(vars map[string]json.RawMessage, key string) string {
	var v string
	_ = json.Unmarshal(vars[key], &v)
	return v
}

func (s *Server) dispatch(op, token string, vars map[string]json.RawMessage) (any, string) {
	switch op {
	case "register":
		email := str(vars, "email")
		if _, ok := s.users[email]; ok {
			return nil, "user already exists"
		}
		s.users[email] = str(vars, "password")
		return s.issueToken(email), ""
	case "login":
		email := str(vars, "email")
		if pw, ok := s.users[email]; !ok || pw != str(vars, "password") {
			return nil, "invalid email or password"
		}
		return s.issueToken(email), ""
	}

	if _, ok := s.tokens[token]; !ok {
		return nil, "access denied"
	}

	switch op {
	case "projects":
		return s.projectNames(), ""
	case "project":
		return s.project(vars)
	case "session":
		sess, _ := s.findSession(str(vars, "id"))
		if sess == nil {
			return nil, "session not found"
		}
		return sess, ""
	case "nextSpec":
		return s.nextSpec(vars)
	case "addSession":
		return s.addSession(vars)
	case "deleteSession":
		id := str(vars, "sessionId")
		sess, project := s.findSession(id)
		if sess == nil {
			return nil, "session not found"
		}
		kept := s.projects[project][:0]
		for _, other := range s.projects[project] {
			if other.ID != id {
				kept = append(kept, other)
			}
		}
		s.projects[project] = kept
		return "session deleted", ""
	case "deleteProject":
		name := str(vars, "projectName")
		if _, ok := s.projects[name]; !ok {
			return nil, "project not found"
		}
		delete(s.projects, name)
		return "project deleted", ""
	case "getApiKeys":
		return s.keys, ""
	case "addApiKey":
		var expireAt int64
		_ = json.Unmarshal(vars["expireAt"], &expireAt)
		s.keys = append(s.keys, models.ApiKey{ID: uuid.NewString(), Name: str(vars, "name"), ExpireAt: expireAt})
		return "key-" + uuid.NewString(), ""
	case "deleteApiKey":
		id := str(vars, "keyId")
		for i, k := range s.keys {
			if k.ID == id {
				s.keys = append(s.keys[:i], s.keys[i+1:]...)
				return "key deleted", ""
			}
		}
		return nil, "key not found"
	}
	return nil, fmt.Sprintf("unknown operation %q", op)
}

func (s *Server) issueToken(email string) string {
	token := uuid.NewString()
	s.tokens[token] = email
	return token
}

func (s *Server) projectNames() []string {
	names := make([]string, 0, len(s.projects))
	for name := range s.projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) findSession(id string) (*models.Session, string) {
	for project, sessions := range s.projects {
		for _, sess := range sessions {
			if sess.ID == id {
				return sess, project
			}
		}
	}
	return nil, ""
}

func (s *Server) project(vars map[string]json.RawMessage) (any, string) {
	name := str(vars, "name")
	stored, ok := s.projects[name]
	if !ok {
		return nil, "project not found"
	}

	// newest first
	sessions := make([]models.Session, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		sessions = append(sessions, *stored[i])
	}
	total := len(sessions)

	var page struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	}
	if raw, ok := vars["pagination"]; ok {
		_ = json.Unmarshal(raw, &page)
	}
	if page.Limit > 0 {
		start := page.Offset
		if start > total {
			start = total
		}
		end := start + page.Limit
		if end > total {
			end = total
		}
		sessions = sessions[start:end]
	}

	return models.Project{ProjectName: name, TotalSessions: total, Sessions: sessions}, ""
}

func (s *Server) addSession(vars map[string]json.RawMessage) (any, string) {
	var input struct {
		ProjectName string            `json:"projectName"`
		SpecFiles   []models.SpecFile `json:"specFiles"`
	}
	if err := json.Unmarshal(vars["session"], &input); err != nil || input.ProjectName == "" {
		return nil, "invalid session input"
	}
	sess := &models.Session{ID: uuid.NewString()}
	for _, f := range input.SpecFiles {
		sess.Backlog = append(sess.Backlog, models.Spec{File: f.FilePath})
	}
	s.projects[input.ProjectName] = append(s.projects[input.ProjectName], sess)
	return models.SessionInfo{SessionID: sess.ID, ProjectName: input.ProjectName}, ""
}

func (s *Server) nextSpec(vars map[string]json.RawMessage) (any, string) {
	sess, _ := s.findSession(str(vars, "sessionId"))
	if sess == nil {
		return nil, "session not found"
	}
	var opts struct {
		MachineID string `json:"machineId"`
	}
	_ = json.Unmarshal(vars["options"], &opts)

	if sess.Start == 0 {
		sess.Start = s.now
	}
	for i := range sess.Backlog {
		spec := &sess.Backlog[i]
		if spec.AssignedTo == opts.MachineID && spec.Start > 0 && spec.End == 0 {
			spec.End = s.now
			spec.Passed = true
		}
	}
	for i := range sess.Backlog {
		spec := &sess.Backlog[i]
		if spec.Start == 0 {
			spec.Start = s.now
			spec.AssignedTo = opts.MachineID
			return spec.File, ""
		}
	}
	done := true
	for _, spec := range sess.Backlog {
		if spec.End == 0 {
			done = false
		}
	}
	if done && sess.End == 0 {
		sess.End = s.now
	}
	return nil, "session finished"
}
