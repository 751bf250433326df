package service

import (
	"fmt"
	"testing"
	"time"

	"nodedeck/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestLogBufferBounded(t *testing.T) {
	lb := NewLogBuffer(3)
	for i := 0; i < 5; i++ {
		lb.Log(LevelInfo, "", fmt.Sprintf("m%d", i))
	}

	entries := lb.Query("", "", 10)
	assert.Len(t, entries, 3)
	assert.Equal(t, "m2", entries[0].Message)
	assert.Equal(t, "m4", entries[2].Message)
	assert.NotEmpty(t, entries[0].Timestamp)
}

func TestLogBufferQuery(t *testing.T) {
	lb := NewLogBuffer(10)
	lb.Log(LevelInfo, "a", "a1")
	lb.Log(LevelError, "b", "b1")
	lb.Log(LevelInfo, "a", "a2")
	lb.Log(LevelError, "a", "a3")

	assert.Equal(t, []string{"a2", "a3"}, messages(lb.Query("a", "", 2)))
	assert.Equal(t, []string{"b1", "a3"}, messages(lb.Query("", LevelError, 10)))
	assert.Equal(t, []string{"a3"}, messages(lb.Query("a", LevelError, 10)))
	assert.Empty(t, lb.Query("a", "", 0))
}

func messages(entries []models.LogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message)
	}
	return out
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "2h 0m 5s", formatDuration(2*time.Hour+5*time.Second))
	assert.Equal(t, "1d 1h 0m", formatDuration(25*time.Hour))
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 MB", formatBytes(3*1024*1024/2))
}
