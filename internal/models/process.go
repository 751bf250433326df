package models

// Process is a display snapshot of a PM2 managed process
type Process struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Pid      int    `json:"pid"`
	Cwd      string `json:"cwd"`
	Uptime   string `json:"uptime"`
	Memory   string `json:"memory"`
	CPU      string `json:"cpu"`
	Restarts int    `json:"restarts"`
	Rule     string `json:"matchedBy,omitempty"`
}

// LogEntry represents a log entry
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Level     string `json:"level"`
	Project   string `json:"project,omitempty"`
}
