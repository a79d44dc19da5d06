package models

// Spec is a single spec file entry in a session backlog
type Spec struct {
	File              string `json:"file"`
	EstimatedDuration int64  `json:"estimatedDuration"`
	AssignedTo        string `json:"assignedTo"`
	Start             int64  `json:"start"`
	End               int64  `json:"end"`
	Passed            bool   `json:"passed"`
}

// Session represents one execution run of a project's specs
type Session struct {
	ID      string `json:"id"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
	Backlog []Spec `json:"backlog"`
}

// Project represents a project with a (possibly paginated) slice of its sessions
type Project struct {
	ProjectName   string    `json:"projectName"`
	TotalSessions int       `json:"totalSessions"`
	Sessions      []Session `json:"sessions"`
}

// ApiKey is a named, expiring API key owned by the signed in user
type ApiKey struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ExpireAt int64  `json:"expireAt"`
}

// SessionInfo is returned when a session is created
type SessionInfo struct {
	SessionID   string `json:"sessionId"`
	ProjectName string `json:"projectName"`
}

// SpecFile is the input form of a spec when creating a session
type SpecFile struct {
	FilePath string `json:"filePath"`
}
