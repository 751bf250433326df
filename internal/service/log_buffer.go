package service

import (
	"sync"
	"time"

	"nodedeck/internal/models"
)

const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// LogBuffer keeps the most recent user-facing log entries.
type LogBuffer struct {
	mu         sync.RWMutex
	entries    []models.LogEntry
	maxEntries int
	now        func() time.Time
}

func NewLogBuffer(maxEntries int) *LogBuffer {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &LogBuffer{
		entries:    make([]models.LogEntry, 0, maxEntries),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (lb *LogBuffer) Add(entry models.LogEntry) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if entry.Timestamp == "" {
		entry.Timestamp = lb.now().Format(time.RFC3339)
	}
	lb.entries = append(lb.entries, entry)
	if len(lb.entries) > lb.maxEntries {
		lb.entries = lb.entries[len(lb.entries)-lb.maxEntries:]
	}
}

func (lb *LogBuffer) Log(level, project, message string) {
	lb.Add(models.LogEntry{Level: level, Project: project, Message: message})
}

// Query returns up to n of the newest entries, oldest first. Empty project
// or level match every entry.
func (lb *LogBuffer) Query(project, level string, n int) []models.LogEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	if n <= 0 || len(lb.entries) == 0 {
		return []models.LogEntry{}
	}

	var filtered []models.LogEntry
	for i := len(lb.entries) - 1; i >= 0 && len(filtered) < n; i-- {
		e := lb.entries[i]
		if (project == "" || e.Project == project) && (level == "" || e.Level == level) {
			filtered = append(filtered, e)
		}
	}

	result := make([]models.LogEntry, len(filtered))
	for i, e := range filtered {
		result[len(filtered)-1-i] = e
	}
	return result
}
